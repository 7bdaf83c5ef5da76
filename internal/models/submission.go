package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus tracks where a submission sits in the grading lifecycle.
type SubmissionStatus string

const (
	// SubmissionStatusPending indicates the submission is waiting to be graded.
	SubmissionStatusPending SubmissionStatus = "pending"
	// SubmissionStatusGraded indicates scores and feedback have been recorded.
	SubmissionStatusGraded SubmissionStatus = "graded"
	// SubmissionStatusReviewed indicates a grader has confirmed the final result.
	SubmissionStatusReviewed SubmissionStatus = "reviewed"
)

// Submission represents one learner's graded attempt at an exam.
// Submissions are created by the learner-facing platform; this service only
// advances their status through grading actions and never deletes them.
type Submission struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	StudentID        uint             `gorm:"not null;index" json:"student_id"`
	ExamID           uint             `gorm:"not null;index" json:"exam_id"`
	ClassName        string           `gorm:"size:128" json:"class_name"`
	SubmittedAt      time.Time        `gorm:"not null" json:"submitted_at"`
	CompletedAt      *time.Time       `json:"completed_at"`
	TimeSpentSeconds int              `json:"time_spent_seconds"`
	Status           SubmissionStatus `gorm:"size:32;not null;default:pending" json:"status"`
	SuggestedScore   *float64         `json:"suggested_score"`
	SuggestedNotes   datatypes.JSON   `gorm:"type:json" json:"suggested_notes"`
	GradedBy         *uint            `json:"graded_by"`
	GradedAt         *time.Time       `json:"graded_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	Student Student                  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Exam    Exam                     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exam"`
	Answers []Answer                 `json:"answers,omitempty"`
	History []SubmissionGradeHistory `json:"history,omitempty"`
}

// IsGraded reports whether the submission already carries a recorded grade.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusGraded || s.Status == SubmissionStatusReviewed
}

// Type derives the submission's question type from its exam.
func (s Submission) Type() QuestionType {
	return s.Exam.Type
}

// SuggestedNoteList decodes the externally supplied suggestion notes.
func (s Submission) SuggestedNoteList() []string {
	if len(s.SuggestedNotes) == 0 {
		return nil
	}

	var notes []string
	if err := json.Unmarshal(s.SuggestedNotes, &notes); err != nil {
		return nil
	}

	return notes
}

// SubmissionGradeHistory records every grading pass over a submission.
type SubmissionGradeHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	TotalScore   int       `gorm:"not null" json:"total_score"`
	MaxScore     int       `gorm:"not null" json:"max_score"`
	GradedBy     uint      `gorm:"not null" json:"graded_by"`
	GradedAt     time.Time `gorm:"not null" json:"graded_at"`
}
