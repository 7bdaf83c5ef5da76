package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
	"github.com/kelasio/kelas-admin-api/internal/observability"
)

// ErrSessionNotFound indicates the grading session does not exist or expired.
var ErrSessionNotFound = errors.New("grading session not found")

// ErrNoFieldsToApply indicates an answer update carried no mutation at all.
var ErrNoFieldsToApply = errors.New("no fields to apply")

// RubricProvider supplies the rubric criteria declared per question type.
type RubricProvider interface {
	ListRubricCriteria(ctx context.Context, questionType models.QuestionType) ([]models.RubricCriterion, error)
}

// GradingSessionService owns the live grading sessions. Every session is
// opened, edited, saved and closed through here; closing cancels the
// session's auto-save task deterministically.
type GradingSessionService interface {
	Open(ctx context.Context, submissionID uint, actor ActivityActor) (dto.SessionResponse, error)
	Get(sessionID string) (dto.SessionResponse, error)
	UpdateAnswer(ctx context.Context, sessionID string, answerID uint, payload dto.UpdateAnswerRequest) (dto.SessionResponse, error)
	ApplySuggested(ctx context.Context, sessionID string, answerID uint) (dto.SessionResponse, error)
	EvaluateRubric(ctx context.Context, sessionID string, answerID uint, payload dto.RubricEvaluationRequest) (dto.RubricSummaryResponse, error)
	Save(ctx context.Context, sessionID string, actor ActivityActor) (dto.SessionResponse, error)
	Close(sessionID string) error
	CloseAll()
	Sweep(maxIdle time.Duration) int
}

type sessionEntry struct {
	session    *grading.Session
	lastAccess time.Time
}

type gradingSessionService struct {
	gateway   grading.Gateway
	rubrics   RubricProvider
	validator *validator.Validate
	activity  ActivityRecorder
	events    EventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	now       func() time.Time

	autoSaveInterval time.Duration
	gatewayTimeout   time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewGradingSessionService constructs the session manager.
func NewGradingSessionService(
	gateway grading.Gateway,
	rubrics RubricProvider,
	validator *validator.Validate,
	activity ActivityRecorder,
	events EventPublisher,
	autoSaveInterval, gatewayTimeout time.Duration,
	logger zerolog.Logger,
) GradingSessionService {
	if autoSaveInterval <= 0 {
		autoSaveInterval = grading.DefaultAutoSaveInterval
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}

	return &gradingSessionService{
		gateway:          gateway,
		rubrics:          rubrics,
		validator:        validator,
		activity:         activity,
		events:           events,
		sanitizer:        bluemonday.StrictPolicy(),
		logger:           logger.With().Str("component", "grading_session_service").Logger(),
		now:              time.Now,
		autoSaveInterval: autoSaveInterval,
		gatewayTimeout:   gatewayTimeout,
		sessions:         make(map[string]*sessionEntry),
	}
}

func (s *gradingSessionService) Open(ctx context.Context, submissionID uint, actor ActivityActor) (dto.SessionResponse, error) {
	tracer := otel.Tracer("github.com/kelasio/kelas-admin-api/internal/service/grading_session")
	ctx, span := tracer.Start(ctx, "grading.session.open")
	span.SetAttributes(
		attribute.Int64("grading.submission_id", int64(submissionID)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	)
	defer span.End()

	session, err := grading.OpenSession(ctx, s.gateway, submissionID, s.logger,
		grading.WithAutoSaveInterval(s.autoSaveInterval),
		grading.WithGatewayTimeout(s.gatewayTimeout))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session_open_failed")
		return dto.SessionResponse{}, err
	}

	s.mu.Lock()
	s.sessions[session.ID()] = &sessionEntry{session: session, lastAccess: s.now()}
	s.mu.Unlock()
	observability.GradingSessionsOpen().Inc()

	s.logger.Info().
		Str("session_id", session.ID()).
		Uint("submission_id", submissionID).
		Uint("actor_id", actor.ID).
		Msg("grading session opened")

	return dto.NewSessionResponse(session), nil
}

func (s *gradingSessionService) Get(sessionID string) (dto.SessionResponse, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	return dto.NewSessionResponse(session), nil
}

func (s *gradingSessionService) UpdateAnswer(ctx context.Context, sessionID string, answerID uint, payload dto.UpdateAnswerRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}
	if payload.Score == nil && payload.Feedback == nil && payload.QuickComment == nil {
		return dto.SessionResponse{}, ErrNoFieldsToApply
	}

	session, err := s.lookup(sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	if payload.Score != nil {
		if err := session.SetScore(answerID, *payload.Score); err != nil {
			return dto.SessionResponse{}, err
		}
	}
	if payload.Feedback != nil {
		if err := session.SetFeedback(answerID, s.sanitizer.Sanitize(*payload.Feedback)); err != nil {
			return dto.SessionResponse{}, err
		}
	}
	if payload.QuickComment != nil {
		if err := session.AppendQuickComment(answerID, s.sanitizer.Sanitize(*payload.QuickComment)); err != nil {
			return dto.SessionResponse{}, err
		}
	}

	return dto.NewSessionResponse(session), nil
}

func (s *gradingSessionService) ApplySuggested(ctx context.Context, sessionID string, answerID uint) (dto.SessionResponse, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	if _, err := session.ApplySuggestedScore(answerID); err != nil {
		return dto.SessionResponse{}, err
	}

	return dto.NewSessionResponse(session), nil
}

func (s *gradingSessionService) EvaluateRubric(ctx context.Context, sessionID string, answerID uint, payload dto.RubricEvaluationRequest) (dto.RubricSummaryResponse, error) {
	session, err := s.lookup(sessionID)
	if err != nil {
		return dto.RubricSummaryResponse{}, err
	}

	var target *models.Answer
	for _, answer := range session.Answers() {
		if answer.ID == answerID {
			copied := answer
			target = &copied
			break
		}
	}
	if target == nil {
		return dto.RubricSummaryResponse{}, grading.ErrAnswerNotFound
	}

	criteria, err := s.rubrics.ListRubricCriteria(ctx, target.QuestionType)
	if err != nil {
		return dto.RubricSummaryResponse{}, &grading.FetchError{Op: "rubric criteria", Err: err}
	}

	allocation := grading.NewRubricAllocation(criteria)
	for criterionID, score := range payload.Scores {
		if err := allocation.Allocate(criterionID, score); err != nil {
			return dto.RubricSummaryResponse{}, err
		}
	}
	if err := allocation.Validate(); err != nil {
		return dto.RubricSummaryResponse{}, err
	}

	finalScore := 0
	if target.Score != nil {
		finalScore = *target.Score
	}

	return dto.NewRubricSummaryResponse(criteria, allocation, allocation.Summary(finalScore, target.MaxPoints)), nil
}

func (s *gradingSessionService) Save(ctx context.Context, sessionID string, actor ActivityActor) (dto.SessionResponse, error) {
	tracer := otel.Tracer("github.com/kelasio/kelas-admin-api/internal/service/grading_session")
	ctx, span := tracer.Start(ctx, "grading.session.save")
	span.SetAttributes(attribute.String("grading.session_id", sessionID))
	defer span.End()

	session, err := s.lookup(sessionID)
	if err != nil {
		span.RecordError(err)
		return dto.SessionResponse{}, err
	}

	saveCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	submission := session.Submission()
	if err := session.Save(saveCtx); err != nil {
		observability.GradingSaves().WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "session_save_failed")
		return dto.SessionResponse{}, err
	}
	observability.GradingSaves().WithLabelValues("success").Inc()

	totals := session.Totals()
	if s.activity != nil {
		submissionID := submission.ID
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "submission.graded",
			EntityType: "submission",
			EntityID:   &submissionID,
			Metadata: map[string]interface{}{
				"submission_id": submissionID,
				"student_id":    submission.StudentID,
				"total_score":   totals.TotalScore,
				"max_score":     totals.MaxScore,
			},
		})
	}

	publishEvent(s.events, s.logger, EventSubmissionGraded, map[string]interface{}{
		"submission_id": submission.ID,
		"student_id":    submission.StudentID,
		"total_score":   totals.TotalScore,
		"percentage":    totals.Percentage,
		"graded_by":     actor.ID,
	})

	span.SetAttributes(attribute.Int("grading.total_score", totals.TotalScore))
	return dto.NewSessionResponse(session), nil
}

func (s *gradingSessionService) Close(sessionID string) error {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	entry.session.Close()
	observability.GradingSessionsOpen().Dec()
	return nil
}

// CloseAll discards every live session, cancelling their auto-save tasks.
// Called on shutdown.
func (s *gradingSessionService) CloseAll() {
	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, entry := range s.sessions {
		entries = append(entries, entry)
	}
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, entry := range entries {
		entry.session.Close()
		observability.GradingSessionsOpen().Dec()
	}
}

// Sweep closes sessions that have been idle longer than maxIdle and reports
// how many were evicted.
func (s *gradingSessionService) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	expired := make([]*sessionEntry, 0)
	for id, entry := range s.sessions {
		if entry.lastAccess.Before(cutoff) {
			expired = append(expired, entry)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, entry := range expired {
		entry.session.Close()
		observability.GradingSessionsOpen().Dec()
	}

	if len(expired) > 0 {
		s.logger.Info().Int("count", len(expired)).Msg("expired idle grading sessions")
	}
	return len(expired)
}

func (s *gradingSessionService) lookup(sessionID string) (*grading.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.lastAccess = s.now()
	return entry.session, nil
}
