package grading

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kelasio/kelas-admin-api/internal/models"
)

// Queue presents a filtered, sorted, paginated, multi-selectable view over the
// submissions awaiting grading. It holds an unfiltered snapshot from the
// gateway; every view transition is a pure in-memory operation, so the queue
// can be exercised in isolation without any transport.
type Queue struct {
	gateway Gateway
	logger  zerolog.Logger

	items  []models.Submission
	filter FilterState
}

// QueueStats summarises the complete portfolio. The figures are derived from
// the unfiltered snapshot so the operator always sees portfolio-wide numbers,
// regardless of the active filters.
type QueueStats struct {
	Total            int                             `json:"total"`
	ByStatus         map[models.SubmissionStatus]int `json:"by_status"`
	ByType           map[models.QuestionType]int     `json:"by_type"`
	AverageSuggested float64                         `json:"average_suggested"`
}

// NewQueue constructs an empty queue backed by the gateway.
func NewQueue(gateway Gateway, logger zerolog.Logger) *Queue {
	return &Queue{
		gateway: gateway,
		logger:  logger.With().Str("component", "grading_queue").Logger(),
		filter:  NewFilterState(),
	}
}

// Load refreshes the snapshot from the gateway. On failure the previous list
// stays intact and a retryable *FetchError is returned.
func (q *Queue) Load(ctx context.Context) error {
	items, err := q.gateway.ListPendingGrading(ctx)
	if err != nil {
		q.logger.Warn().Err(err).Msg("queue load failed, keeping previous snapshot")
		return &FetchError{Op: "pending grading list", Err: err}
	}

	q.items = items
	q.pruneSelection()
	return nil
}

// ApplyFilters replaces the filter inputs and resets pagination to page 1.
func (q *Queue) ApplyFilters(search, typeFilter, statusFilter string, dates DateRange) {
	q.filter.Search = search
	q.filter.Type = typeFilter
	q.filter.Status = statusFilter
	q.filter.Dates = dates
	q.filter.Page = 1
	q.filter.SelectAll = false
}

// SortBy changes the sort key. Sorting is stable: ties keep their prior order.
func (q *Queue) SortBy(field string, dir SortDirection) {
	q.filter.SortField = field
	q.filter.SortDir = dir
}

// ToggleSelect flips one submission's selection. Deselecting a single item
// while everything was selected clears the select-all flag without touching
// the rest of the selection.
func (q *Queue) ToggleSelect(id uint) {
	if _, ok := q.filter.Selected[id]; ok {
		delete(q.filter.Selected, id)
		q.filter.SelectAll = false
		return
	}
	q.filter.Selected[id] = struct{}{}
}

// ToggleSelectAll selects exactly the currently filtered and sorted set, not
// the full unfiltered list. Toggling again empties the selection.
func (q *Queue) ToggleSelectAll() {
	if q.filter.SelectAll {
		q.filter.Selected = make(map[uint]struct{})
		q.filter.SelectAll = false
		return
	}

	q.filter.Selected = make(map[uint]struct{})
	for _, submission := range q.Visible() {
		q.filter.Selected[submission.ID] = struct{}{}
	}
	q.filter.SelectAll = true
}

// SetPage moves the view to the requested page with the given page size.
func (q *Queue) SetPage(page, size int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = DefaultQueuePageSize
	}
	q.filter.Page = page
	q.filter.PageSize = size
}

// Visible returns the filtered and sorted submissions.
func (q *Queue) Visible() []models.Submission {
	visible := make([]models.Submission, 0, len(q.items))
	for _, submission := range q.items {
		if q.filter.Matches(submission) {
			visible = append(visible, submission)
		}
	}

	sortSubmissions(visible, q.filter.SortField, q.filter.SortDir)
	return visible
}

// PageSlice returns the current page of the filtered and sorted view.
func (q *Queue) PageSlice() []models.Submission {
	visible := q.Visible()

	start := (q.filter.Page - 1) * q.filter.PageSize
	if start >= len(visible) {
		return []models.Submission{}
	}

	end := start + q.filter.PageSize
	if end > len(visible) {
		end = len(visible)
	}

	return visible[start:end]
}

// SelectedIDs returns the explicit selection in visible order, followed by any
// selected ids no longer visible under the current filters.
func (q *Queue) SelectedIDs() []uint {
	if len(q.filter.Selected) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(q.filter.Selected))
	seen := make(map[uint]struct{}, len(q.filter.Selected))
	for _, submission := range q.Visible() {
		if _, ok := q.filter.Selected[submission.ID]; ok {
			ids = append(ids, submission.ID)
			seen[submission.ID] = struct{}{}
		}
	}
	for _, submission := range q.items {
		if _, ok := q.filter.Selected[submission.ID]; !ok {
			continue
		}
		if _, ok := seen[submission.ID]; !ok {
			ids = append(ids, submission.ID)
		}
	}

	return ids
}

// Stats recomputes the portfolio summary from the unfiltered snapshot.
func (q *Queue) Stats() QueueStats {
	stats := QueueStats{
		Total:    len(q.items),
		ByStatus: make(map[models.SubmissionStatus]int),
		ByType:   make(map[models.QuestionType]int),
	}

	suggestedSum := 0.0
	suggestedCount := 0
	for _, submission := range q.items {
		stats.ByStatus[submission.Status]++
		stats.ByType[submission.Type()]++
		if submission.SuggestedScore != nil {
			suggestedSum += *submission.SuggestedScore
			suggestedCount++
		}
	}

	if suggestedCount > 0 {
		stats.AverageSuggested = suggestedSum / float64(suggestedCount)
	}

	return stats
}

// FilterState exposes a copy of the current filter inputs.
func (q *Queue) FilterState() FilterState {
	state := q.filter
	state.Selected = make(map[uint]struct{}, len(q.filter.Selected))
	for id := range q.filter.Selected {
		state.Selected[id] = struct{}{}
	}
	return state
}

// Len returns the size of the unfiltered snapshot.
func (q *Queue) Len() int {
	return len(q.items)
}

// pruneSelection drops selected ids that no longer exist after a reload.
func (q *Queue) pruneSelection() {
	existing := make(map[uint]struct{}, len(q.items))
	for _, submission := range q.items {
		existing[submission.ID] = struct{}{}
	}

	for id := range q.filter.Selected {
		if _, ok := existing[id]; !ok {
			delete(q.filter.Selected, id)
			q.filter.SelectAll = false
		}
	}
}
