package models

import "time"

// Exam describes an assessment whose submissions flow through the grading queue.
type Exam struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Type        QuestionType `gorm:"size:32;not null" json:"type"`
	TotalPoints int          `gorm:"not null" json:"total_points"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Submissions []Submission `json:"-"`
}
