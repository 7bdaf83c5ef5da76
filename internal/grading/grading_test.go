package grading

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kelasio/kelas-admin-api/internal/models"
)

type fakeGateway struct {
	submissions []models.Submission
	answers     map[uint][]models.Answer

	listErr    error
	attemptErr error
	answersErr error
	submitErr  error

	submitCalls     int
	submittedGrades [][]AnswerGrade
	submitDeadlines []bool

	batchResult BatchResult
	batchErr    error
	batchCalls  int
	batchIDs    []uint
	batchAction BatchActionType
}

func (f *fakeGateway) ListPendingGrading(ctx context.Context) ([]models.Submission, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.submissions, nil
}

func (f *fakeGateway) GetAttempt(ctx context.Context, submissionID uint) (models.Submission, error) {
	if f.attemptErr != nil {
		return models.Submission{}, f.attemptErr
	}
	for _, submission := range f.submissions {
		if submission.ID == submissionID {
			return submission, nil
		}
	}
	return models.Submission{}, errors.New("not found")
}

func (f *fakeGateway) ListAnswers(ctx context.Context, submissionID uint) ([]models.Answer, error) {
	if f.answersErr != nil {
		return nil, f.answersErr
	}
	return f.answers[submissionID], nil
}

func (f *fakeGateway) SubmitGrading(ctx context.Context, submissionID uint, grades []AnswerGrade) error {
	f.submitCalls++
	snapshot := make([]AnswerGrade, len(grades))
	copy(snapshot, grades)
	f.submittedGrades = append(f.submittedGrades, snapshot)
	_, bounded := ctx.Deadline()
	f.submitDeadlines = append(f.submitDeadlines, bounded)
	return f.submitErr
}

func (f *fakeGateway) BatchAction(ctx context.Context, ids []uint, action BatchActionType) (BatchResult, error) {
	f.batchCalls++
	f.batchIDs = ids
	f.batchAction = action
	if f.batchErr != nil {
		return BatchResult{}, f.batchErr
	}
	return f.batchResult, nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testSubmission(id uint, name, code, title string, questionType models.QuestionType, status models.SubmissionStatus, submittedAt time.Time) models.Submission {
	return models.Submission{
		ID:          id,
		StudentID:   id,
		ExamID:      id,
		Status:      status,
		SubmittedAt: submittedAt,
		Student:     models.Student{ID: id, Name: name, Code: code},
		Exam:        models.Exam{ID: id, Title: title, Type: questionType},
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
