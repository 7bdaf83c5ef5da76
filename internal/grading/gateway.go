package grading

import (
	"context"

	"github.com/kelasio/kelas-admin-api/internal/models"
)

// AnswerGrade is the per-answer payload persisted on save.
type AnswerGrade struct {
	AnswerID uint   `json:"id"`
	Score    *int   `json:"score"`
	Feedback string `json:"feedback"`
}

// BatchActionType names a bulk operation applied to a selection set.
type BatchActionType string

const (
	// BatchActionGrade marks the selected submissions as reviewed.
	BatchActionGrade BatchActionType = "grade"
	// BatchActionExport flags the selected submissions for export.
	BatchActionExport BatchActionType = "export"
)

// Valid reports whether the action is one the coordinator knows how to run.
func (a BatchActionType) Valid() bool {
	return a == BatchActionGrade || a == BatchActionExport
}

// BatchResult reports per-item outcomes of a batch action. The backing store
// treats each item independently, so a batch can partially fail.
type BatchResult struct {
	Action    BatchActionType `json:"action,omitempty"`
	Succeeded []uint          `json:"succeeded"`
	Failed    []uint          `json:"failed"`
}

// Gateway is the persistence boundary consumed by the grading workflow.
type Gateway interface {
	ListPendingGrading(ctx context.Context) ([]models.Submission, error)
	GetAttempt(ctx context.Context, submissionID uint) (models.Submission, error)
	ListAnswers(ctx context.Context, submissionID uint) ([]models.Answer, error)
	SubmitGrading(ctx context.Context, submissionID uint, grades []AnswerGrade) error
	BatchAction(ctx context.Context, ids []uint, action BatchActionType) (BatchResult, error)
}
