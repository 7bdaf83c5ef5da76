package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// QuestionType classifies the skill a question assesses.
type QuestionType string

const (
	QuestionTypeWriting        QuestionType = "writing"
	QuestionTypeSpeaking       QuestionType = "speaking"
	QuestionTypeListening      QuestionType = "listening"
	QuestionTypeReading        QuestionType = "reading"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
)

// Answer is one question's response within a submission. The score stays nil
// until a grader records one; a non-nil score is always within [0, MaxPoints].
type Answer struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	SubmissionID uint           `gorm:"not null;index" json:"submission_id"`
	QuestionText string         `gorm:"type:text;not null" json:"question_text"`
	QuestionType QuestionType   `gorm:"size:32;not null" json:"question_type"`
	MaxPoints    int            `gorm:"not null" json:"max_points"`
	Content      string         `gorm:"type:text" json:"content"`
	ArtifactURL  string         `gorm:"size:512" json:"artifact_url"`
	Score        *int           `json:"score"`
	Feedback     string         `gorm:"type:text" json:"feedback"`
	AIAnalysis   datatypes.JSON `gorm:"type:json" json:"ai_analysis"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// AIAnalysis is the precomputed scoring hint attached to an answer by the
// external assistance pipeline. It is advisory input only; graders may copy
// the suggested score but the workflow never mutates the analysis itself.
type AIAnalysis struct {
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Analysis decodes the attached AI analysis, reporting whether one exists.
func (a Answer) Analysis() (AIAnalysis, bool) {
	if len(a.AIAnalysis) == 0 {
		return AIAnalysis{}, false
	}

	var analysis AIAnalysis
	if err := json.Unmarshal(a.AIAnalysis, &analysis); err != nil {
		return AIAnalysis{}, false
	}

	return analysis, true
}

// IsScored reports whether a grader has recorded a score for the answer.
func (a Answer) IsScored() bool {
	return a.Score != nil
}
