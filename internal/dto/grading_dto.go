package dto

import (
	"time"

	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

// OpenSessionRequest opens a grading session for one submission.
type OpenSessionRequest struct {
	SubmissionID uint `json:"submission_id" validate:"required,gt=0"`
}

// UpdateAnswerRequest patches one answer inside a session. Exactly the fields
// present are applied; a quick comment is appended rather than replacing the
// existing feedback.
type UpdateAnswerRequest struct {
	Score        *int    `json:"score" validate:"omitempty,gte=0"`
	Feedback     *string `json:"feedback" validate:"omitempty,max=5000"`
	QuickComment *string `json:"quick_comment" validate:"omitempty,min=1,max=500"`
}

// AnswerResponse serializes one answer within a grading session.
type AnswerResponse struct {
	ID           uint               `json:"id"`
	QuestionText string             `json:"question_text"`
	QuestionType string             `json:"question_type"`
	TypeBadge    *models.Descriptor `json:"type_badge,omitempty"`
	MaxPoints    int                `json:"max_points"`
	Content      string             `json:"content"`
	ArtifactURL  string             `json:"artifact_url,omitempty"`
	Score        *int               `json:"score"`
	Feedback     string             `json:"feedback"`
	AIAnalysis   *models.AIAnalysis `json:"ai_analysis,omitempty"`
}

// SessionResponse is the full snapshot of an open grading session.
type SessionResponse struct {
	SessionID          string           `json:"session_id"`
	SubmissionID       uint             `json:"submission_id"`
	StudentName        string           `json:"student_name"`
	ExamTitle          string           `json:"exam_title"`
	State              string           `json:"state"`
	Dirty              bool             `json:"dirty"`
	FocusedAnswerIndex int              `json:"focused_answer_index"`
	LastSavedAt        *time.Time       `json:"last_saved_at"`
	Answers            []AnswerResponse `json:"answers"`
	Totals             grading.Totals   `json:"totals"`
	AutoSaveError      string           `json:"auto_save_error,omitempty"`
}

// NewAnswerResponse converts an answer model into its session DTO.
func NewAnswerResponse(answer models.Answer) AnswerResponse {
	response := AnswerResponse{
		ID:           answer.ID,
		QuestionText: answer.QuestionText,
		QuestionType: string(answer.QuestionType),
		MaxPoints:    answer.MaxPoints,
		Content:      answer.Content,
		ArtifactURL:  answer.ArtifactURL,
		Score:        answer.Score,
		Feedback:     answer.Feedback,
	}

	if badge, ok := models.TypeDescriptor(answer.QuestionType); ok {
		response.TypeBadge = &badge
	}
	if analysis, ok := answer.Analysis(); ok {
		response.AIAnalysis = &analysis
	}

	return response
}

// NewSessionResponse builds the session snapshot DTO.
func NewSessionResponse(session *grading.Session) SessionResponse {
	submission := session.Submission()
	answers := session.Answers()

	response := SessionResponse{
		SessionID:          session.ID(),
		SubmissionID:       submission.ID,
		StudentName:        submission.Student.Name,
		ExamTitle:          submission.Exam.Title,
		State:              string(session.State()),
		Dirty:              session.Dirty(),
		FocusedAnswerIndex: session.FocusedAnswerIndex(),
		LastSavedAt:        session.LastSavedAt(),
		Answers:            make([]AnswerResponse, 0, len(answers)),
		Totals:             session.Totals(),
	}

	for _, answer := range answers {
		response.Answers = append(response.Answers, NewAnswerResponse(answer))
	}

	if err := session.LastAutoSaveError(); err != nil {
		response.AutoSaveError = err.Error()
	}

	return response
}

// RubricEvaluationRequest allocates per-criterion scores for one answer.
// Keys are rubric criterion ids.
type RubricEvaluationRequest struct {
	Scores map[uint]int `json:"scores" validate:"required,min=1"`
}

// RubricCriterionResponse pairs a criterion with its allocated score.
type RubricCriterionResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxScore    int    `json:"max_score"`
	Score       int    `json:"score"`
}

// RubricSummaryResponse reports a rubric allocation with its advisory flags.
type RubricSummaryResponse struct {
	Criteria []RubricCriterionResponse `json:"criteria"`
	Summary  grading.RubricSummary     `json:"summary"`
}

// NewRubricSummaryResponse joins the criteria with the evaluated allocation.
func NewRubricSummaryResponse(criteria []models.RubricCriterion, allocation *grading.RubricAllocation, summary grading.RubricSummary) RubricSummaryResponse {
	response := RubricSummaryResponse{
		Criteria: make([]RubricCriterionResponse, 0, len(criteria)),
		Summary:  summary,
	}
	for _, criterion := range criteria {
		response.Criteria = append(response.Criteria, RubricCriterionResponse{
			ID:          criterion.ID,
			Name:        criterion.Name,
			Description: criterion.Description,
			MaxScore:    criterion.MaxScore,
			Score:       allocation.Score(criterion.ID),
		})
	}
	return response
}

// IngestAnalysisRequest carries an externally computed answer analysis.
type IngestAnalysisRequest struct {
	Score       float64  `json:"score" validate:"gte=0,lte=100"`
	Feedback    string   `json:"feedback" validate:"omitempty,max=5000"`
	Suggestions []string `json:"suggestions" validate:"omitempty,dive,min=1,max=500"`
}

// ExportResponse reports a stored export artifact.
type ExportResponse struct {
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Rows        int       `json:"rows"`
	URL         string    `json:"url,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
