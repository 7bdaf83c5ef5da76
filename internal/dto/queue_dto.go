package dto

import (
	"time"

	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// QueueListRequest defines the grading queue filter inputs.
type QueueListRequest struct {
	Search    string
	Type      string
	Status    string
	DateStart *time.Time
	DateEnd   *time.Time
	SortField string
	SortDir   string
	Page      int
	PageSize  int
}

// QueueItemResponse serializes one submission row in the grading queue.
type QueueItemResponse struct {
	ID               uint               `json:"id"`
	StudentID        uint               `json:"student_id"`
	StudentName      string             `json:"student_name"`
	StudentCode      string             `json:"student_code"`
	ExamID           uint               `json:"exam_id"`
	ExamTitle        string             `json:"exam_title"`
	Type             string             `json:"type"`
	TypeBadge        *models.Descriptor `json:"type_badge,omitempty"`
	ClassName        string             `json:"class_name"`
	Status           string             `json:"status"`
	StatusBadge      *models.Descriptor `json:"status_badge,omitempty"`
	SubmittedAt      time.Time          `json:"submitted_at"`
	CompletedAt      *time.Time         `json:"completed_at"`
	TimeSpentSeconds int                `json:"time_spent_seconds"`
	SuggestedScore   *float64           `json:"suggested_score"`
	SuggestedNotes   []string           `json:"suggested_notes,omitempty"`
}

// QueueStatsResponse serializes the portfolio-wide summary.
type QueueStatsResponse struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	ByType           map[string]int `json:"by_type"`
	AverageSuggested float64        `json:"average_suggested"`
	GeneratedAt      time.Time      `json:"generated_at"`
	CacheHit         bool           `json:"cache_hit"`
}

// QueueListResponse wraps the paginated queue view with its stats.
type QueueListResponse struct {
	Items      []QueueItemResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
	Stats      QueueStatsResponse  `json:"stats"`
}

// NewQueueItemResponse converts a submission model into a queue row.
func NewQueueItemResponse(submission models.Submission) QueueItemResponse {
	item := QueueItemResponse{
		ID:               submission.ID,
		StudentID:        submission.StudentID,
		StudentName:      submission.Student.Name,
		StudentCode:      submission.Student.Code,
		ExamID:           submission.ExamID,
		ExamTitle:        submission.Exam.Title,
		Type:             string(submission.Type()),
		ClassName:        submission.ClassName,
		Status:           string(submission.Status),
		SubmittedAt:      submission.SubmittedAt,
		CompletedAt:      submission.CompletedAt,
		TimeSpentSeconds: submission.TimeSpentSeconds,
		SuggestedScore:   submission.SuggestedScore,
		SuggestedNotes:   submission.SuggestedNoteList(),
	}

	if badge, ok := models.StatusDescriptor(submission.Status); ok {
		item.StatusBadge = &badge
	}
	if badge, ok := models.TypeDescriptor(submission.Type()); ok {
		item.TypeBadge = &badge
	}

	return item
}

// NewQueueStatsResponse converts core queue stats into the response shape.
func NewQueueStatsResponse(stats grading.QueueStats, generatedAt time.Time) QueueStatsResponse {
	response := QueueStatsResponse{
		Total:            stats.Total,
		ByStatus:         make(map[string]int, len(stats.ByStatus)),
		ByType:           make(map[string]int, len(stats.ByType)),
		AverageSuggested: stats.AverageSuggested,
		GeneratedAt:      generatedAt,
	}
	for status, count := range stats.ByStatus {
		response.ByStatus[string(status)] = count
	}
	for questionType, count := range stats.ByType {
		response.ByType[string(questionType)] = count
	}
	return response
}

// BatchPrepareRequest captures the explicit selection for a batch action.
type BatchPrepareRequest struct {
	IDs    []uint `json:"ids" validate:"required,min=1,dive,gt=0"`
	Action string `json:"action" validate:"required,oneof=grade export"`
}

// BatchExecuteRequest confirms a prepared batch.
type BatchExecuteRequest struct {
	Token string `json:"token" validate:"required,uuid4"`
}

// BatchResultResponse reports per-item outcomes plus the refreshed queue size.
type BatchResultResponse struct {
	Succeeded []uint `json:"succeeded"`
	Failed    []uint `json:"failed"`
	Refreshed bool   `json:"refreshed"`
}
