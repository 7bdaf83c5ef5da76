package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

// GradingRepository is the GORM-backed persistence gateway for the grading
// workflow. It satisfies grading.Gateway.
type GradingRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGradingRepository constructs the grading repository.
func NewGradingRepository(db *gorm.DB) *GradingRepository {
	return &GradingRepository{db: db, now: time.Now}
}

// ListPendingGrading returns every submission awaiting grading action,
// newest first, with student, exam and grade history preloaded so the queue
// and the export can show recorded grades without extra round trips.
func (r *GradingRepository) ListPendingGrading(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Exam").
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("graded_at DESC")
		}).
		Order("submitted_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}

	return submissions, nil
}

// GetAttempt loads one submission with its relations and grade history.
func (r *GradingRepository) GetAttempt(ctx context.Context, submissionID uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Exam").
		Preload("History", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("graded_at DESC")
		}).
		First(&submission, submissionID).Error
	if err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

// ListAnswers loads a submission's answers in question order.
func (r *GradingRepository) ListAnswers(ctx context.Context, submissionID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("id ASC").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}

	return answers, nil
}

// SubmitGrading persists the per-answer scores and feedback in one
// transaction, advances the submission to graded and appends a history row.
func (r *GradingRepository) SubmitGrading(ctx context.Context, submissionID uint, grades []grading.AnswerGrade) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission models.Submission
		if err := tx.First(&submission, submissionID).Error; err != nil {
			return err
		}

		totalScore := 0
		maxScore := 0
		for _, grade := range grades {
			update := tx.Model(&models.Answer{}).
				Where("id = ? AND submission_id = ?", grade.AnswerID, submissionID).
				Updates(map[string]interface{}{
					"score":    grade.Score,
					"feedback": grade.Feedback,
				})
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected == 0 {
				return fmt.Errorf("answer %d does not belong to submission %d", grade.AnswerID, submissionID)
			}
		}

		var answers []models.Answer
		if err := tx.Where("submission_id = ?", submissionID).Find(&answers).Error; err != nil {
			return err
		}
		for _, answer := range answers {
			maxScore += answer.MaxPoints
			if answer.Score != nil {
				totalScore += *answer.Score
			}
		}

		gradedAt := r.now()
		submission.Status = models.SubmissionStatusGraded
		submission.GradedAt = &gradedAt
		if err := tx.Save(&submission).Error; err != nil {
			return err
		}

		history := models.SubmissionGradeHistory{
			SubmissionID: submissionID,
			TotalScore:   totalScore,
			MaxScore:     maxScore,
			GradedBy:     gradedByFromContext(ctx),
			GradedAt:     gradedAt,
		}
		return tx.Create(&history).Error
	})
}

// BatchAction applies the action to each submission independently so one bad
// item never poisons the rest of the selection.
func (r *GradingRepository) BatchAction(ctx context.Context, ids []uint, action grading.BatchActionType) (grading.BatchResult, error) {
	result := grading.BatchResult{
		Succeeded: make([]uint, 0, len(ids)),
		Failed:    make([]uint, 0),
	}

	for _, id := range ids {
		var err error
		switch action {
		case grading.BatchActionGrade:
			err = r.markReviewed(ctx, id)
		case grading.BatchActionExport:
			err = r.verifyExists(ctx, id)
		default:
			err = fmt.Errorf("unsupported batch action %q", action)
		}

		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	return result, nil
}

func (r *GradingRepository) markReviewed(ctx context.Context, id uint) error {
	update := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ? AND status = ?", id, models.SubmissionStatusGraded).
		Update("status", models.SubmissionStatusReviewed)
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected == 0 {
		return fmt.Errorf("submission %d is not in a reviewable state", id)
	}
	return nil
}

func (r *GradingRepository) verifyExists(ctx context.Context, id uint) error {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SaveAnalysis attaches an externally computed analysis to an answer and
// refreshes the submission-level suggested score as the average across its
// analysed answers.
func (r *GradingRepository) SaveAnalysis(ctx context.Context, submissionID, answerID uint, analysis models.AIAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Answer{}).
			Where("id = ? AND submission_id = ?", answerID, submissionID).
			Update("ai_analysis", payload)
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var answers []models.Answer
		if err := tx.Where("submission_id = ?", submissionID).Find(&answers).Error; err != nil {
			return err
		}

		sum := 0.0
		count := 0
		for _, answer := range answers {
			if parsed, ok := answer.Analysis(); ok {
				sum += parsed.Score
				count++
			}
		}
		if count == 0 {
			return nil
		}

		average := sum / float64(count)
		return tx.Model(&models.Submission{}).
			Where("id = ?", submissionID).
			Update("suggested_score", average).Error
	})
}

// ListRubricCriteria returns the rubric declared for one question type.
func (r *GradingRepository) ListRubricCriteria(ctx context.Context, questionType models.QuestionType) ([]models.RubricCriterion, error) {
	var criteria []models.RubricCriterion
	err := r.db.WithContext(ctx).
		Where("question_type = ?", questionType).
		Order("id ASC").
		Find(&criteria).Error
	if err != nil {
		return nil, err
	}

	return criteria, nil
}

type gradedByKey struct{}

// ContextWithGrader tags the context with the acting grader's id so the
// history row records who graded.
func ContextWithGrader(ctx context.Context, graderID uint) context.Context {
	return context.WithValue(ctx, gradedByKey{}, graderID)
}

func gradedByFromContext(ctx context.Context) uint {
	if value := ctx.Value(gradedByKey{}); value != nil {
		if id, ok := value.(uint); ok {
			return id
		}
	}
	return 0
}
