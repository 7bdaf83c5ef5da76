package grading

import (
	"sort"
	"strings"
	"time"

	"github.com/kelasio/kelas-admin-api/internal/models"
)

// FilterAll matches every value for the type and status filters.
const FilterAll = "all"

// SortDirection orders a sorted queue view.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Sortable queue fields.
const (
	SortByStudent      = "student"
	SortByTitle        = "title"
	SortBySubmittedAt  = "submitted_at"
	SortByStatus       = "status"
	SortBySuggested    = "suggested_score"
	SortByTimeSpent    = "time_spent"
)

// DefaultQueuePageSize applies when the operator has not chosen a page size.
const DefaultQueuePageSize = 20

// DateRange bounds the submitted-at filter. Either side may be open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether the timestamp falls within the closed range.
func (r DateRange) Contains(ts time.Time) bool {
	if r.Start != nil && ts.Before(*r.Start) {
		return false
	}
	if r.End != nil && ts.After(*r.End) {
		return false
	}
	return true
}

// FilterState holds every queue view input: search, filters, sort, pagination
// and the operator's selection. It is transient state rebuilt from filter
// inputs; it is never persisted.
type FilterState struct {
	Search    string
	Type      string
	Status    string
	Dates     DateRange
	SortField string
	SortDir   SortDirection
	Page      int
	PageSize  int

	Selected  map[uint]struct{}
	SelectAll bool
}

// NewFilterState returns the neutral filter state: everything visible, sorted
// by newest submission first, nothing selected.
func NewFilterState() FilterState {
	return FilterState{
		Type:      FilterAll,
		Status:    FilterAll,
		SortField: SortBySubmittedAt,
		SortDir:   SortDescending,
		Page:      1,
		PageSize:  DefaultQueuePageSize,
		Selected:  make(map[uint]struct{}),
	}
}

// Matches applies the conjunctive filter predicates to one submission.
func (f FilterState) Matches(submission models.Submission) bool {
	if search := strings.TrimSpace(f.Search); search != "" {
		needle := strings.ToLower(search)
		haystacks := []string{
			strings.ToLower(submission.Student.Name),
			strings.ToLower(submission.Student.Code),
			strings.ToLower(submission.Exam.Title),
		}
		found := false
		for _, haystack := range haystacks {
			if strings.Contains(haystack, needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Type != "" && f.Type != FilterAll && string(submission.Type()) != f.Type {
		return false
	}

	if f.Status != "" && f.Status != FilterAll && string(submission.Status) != f.Status {
		return false
	}

	return f.Dates.Contains(submission.SubmittedAt)
}

// sortSubmissions orders the slice in place. The sort is stable, so equal
// keys keep their prior relative order. String fields compare byte-wise.
func sortSubmissions(items []models.Submission, field string, dir SortDirection) {
	if field == "" {
		return
	}

	less := func(a, b models.Submission) bool {
		switch field {
		case SortByStudent:
			return a.Student.Name < b.Student.Name
		case SortByTitle:
			return a.Exam.Title < b.Exam.Title
		case SortByStatus:
			return a.Status < b.Status
		case SortBySuggested:
			return suggestedOrZero(a) < suggestedOrZero(b)
		case SortByTimeSpent:
			return a.TimeSpentSeconds < b.TimeSpentSeconds
		default:
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if dir == SortDescending {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func suggestedOrZero(submission models.Submission) float64 {
	if submission.SuggestedScore == nil {
		return 0
	}
	return *submission.SuggestedScore
}
