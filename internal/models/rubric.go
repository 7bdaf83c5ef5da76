package models

import "time"

// RubricCriterion is a named, capped scoring dimension declared per question
// type. Criterion weights for a type are expected to sum to the question's
// total points; the grading rules flag a mismatch rather than clamping it.
type RubricCriterion struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	QuestionType QuestionType `gorm:"size:32;not null;index" json:"question_type"`
	Name         string       `gorm:"size:128;not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description"`
	MaxScore     int          `gorm:"not null" json:"max_score"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
