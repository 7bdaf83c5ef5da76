package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

// stubGateway is an in-memory grading.Gateway for service tests.
type stubGateway struct {
	submissions []models.Submission
	answers     map[uint][]models.Answer

	listErr   error
	submitErr error
	batchErr  error

	submitCalls     int
	submittedGrades []grading.AnswerGrade
	batchIDs        []uint
	batchAction     grading.BatchActionType
	batchResult     grading.BatchResult
}

func (g *stubGateway) ListPendingGrading(ctx context.Context) ([]models.Submission, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]models.Submission(nil), g.submissions...), nil
}

func (g *stubGateway) GetAttempt(ctx context.Context, submissionID uint) (models.Submission, error) {
	for _, submission := range g.submissions {
		if submission.ID == submissionID {
			return submission, nil
		}
	}
	return models.Submission{}, &grading.FetchError{Op: "attempt"}
}

func (g *stubGateway) ListAnswers(ctx context.Context, submissionID uint) ([]models.Answer, error) {
	return append([]models.Answer(nil), g.answers[submissionID]...), nil
}

func (g *stubGateway) SubmitGrading(ctx context.Context, submissionID uint, grades []grading.AnswerGrade) error {
	g.submitCalls++
	g.submittedGrades = append([]grading.AnswerGrade(nil), grades...)
	return g.submitErr
}

func (g *stubGateway) BatchAction(ctx context.Context, ids []uint, action grading.BatchActionType) (grading.BatchResult, error) {
	g.batchIDs = append([]uint(nil), ids...)
	g.batchAction = action
	if g.batchErr != nil {
		return grading.BatchResult{}, g.batchErr
	}
	return g.batchResult, nil
}

type stubRubrics struct {
	criteria []models.RubricCriterion
	err      error
}

func (s *stubRubrics) ListRubricCriteria(ctx context.Context, questionType models.QuestionType) ([]models.RubricCriterion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.RubricCriterion(nil), s.criteria...), nil
}

type stubActivity struct {
	entries []ActivityEntry
}

func (s *stubActivity) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	s.entries = append(s.entries, entry)
	return dto.ActivityResponse{ID: uint(len(s.entries))}, nil
}

type stubPublisher struct {
	subjects []string
	payloads []interface{}
	err      error
}

func (s *stubPublisher) Publish(subject string, payload interface{}) error {
	s.subjects = append(s.subjects, subject)
	s.payloads = append(s.payloads, payload)
	return s.err
}

type stubStats struct {
	response    dto.QueueStatsResponse
	err         error
	invalidated int
}

func (s *stubStats) Stats(ctx context.Context, queue *grading.Queue) (dto.QueueStatsResponse, error) {
	if s.err != nil {
		return dto.QueueStatsResponse{}, s.err
	}
	return s.response, nil
}

func (s *stubStats) Invalidate(ctx context.Context) {
	s.invalidated++
}

func queueSubmission(id uint, studentName, studentCode, examTitle string, questionType models.QuestionType, status models.SubmissionStatus, submittedAt time.Time) models.Submission {
	return models.Submission{
		ID:          id,
		StudentID:   id,
		ExamID:      id,
		ClassName:   "XII-A",
		SubmittedAt: submittedAt,
		Status:      status,
		Student:     models.Student{ID: id, Name: studentName, Code: studentCode},
		Exam:        models.Exam{ID: id, Title: examTitle, Type: questionType},
	}
}

func sessionFixture(gateway *stubGateway) {
	submitted := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	gateway.submissions = []models.Submission{
		queueSubmission(1, "Siti Rahma", "STU-001", "Essay Midterm", models.QuestionTypeWriting, models.SubmissionStatusPending, submitted),
	}
	gateway.answers = map[uint][]models.Answer{
		1: {
			{
				ID:           11,
				SubmissionID: 1,
				QuestionText: "Describe your hometown.",
				QuestionType: models.QuestionTypeWriting,
				MaxPoints:    5,
				Content:      "My hometown is...",
				AIAnalysis:   datatypes.JSON(`{"score": 82, "feedback": "Solid structure.", "suggestions": ["Check articles"]}`),
			},
			{
				ID:           12,
				SubmissionID: 1,
				QuestionText: "Write a formal letter.",
				QuestionType: models.QuestionTypeWriting,
				MaxPoints:    10,
				Content:      "Dear Sir...",
			},
		},
	}
}
