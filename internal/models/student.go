package models

import "time"

// Student represents a learner whose submissions appear in the grading queue.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Code      string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	ClassName string    `gorm:"size:128" json:"class_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
