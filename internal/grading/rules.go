package grading

import (
	"strings"

	"github.com/kelasio/kelas-admin-api/internal/models"
)

// RubricAllocation tracks per-criterion scores for one answer. Criteria carry
// fixed MaxScore weights; the allocation enforces the per-criterion cap and
// the overall sum bound, while the rubric total itself stays advisory.
type RubricAllocation struct {
	criteria []models.RubricCriterion
	scores   map[uint]int
}

// RubricSummary reports the allocation alongside its advisory flags. Nothing
// is clamped: a mismatch is surfaced for the operator to resolve.
type RubricSummary struct {
	Total          int  `json:"total"`
	MaxTotal       int  `json:"max_total"`
	ScoreMismatch  bool `json:"score_mismatch"`
	WeightMismatch bool `json:"weight_mismatch"`
}

// NewRubricAllocation builds an empty allocation over the given criteria.
func NewRubricAllocation(criteria []models.RubricCriterion) *RubricAllocation {
	return &RubricAllocation{
		criteria: criteria,
		scores:   make(map[uint]int, len(criteria)),
	}
}

// Allocate records a score against one criterion. A score above the
// criterion's cap, below zero, or against an unknown criterion is rejected.
func (r *RubricAllocation) Allocate(criterionID uint, score int) error {
	var criterion *models.RubricCriterion
	for i := range r.criteria {
		if r.criteria[i].ID == criterionID {
			criterion = &r.criteria[i]
			break
		}
	}
	if criterion == nil {
		return &ValidationError{Field: "criterion", Reason: "unknown rubric criterion"}
	}

	if score < 0 {
		return &ValidationError{Field: "criterion score", Reason: "must not be negative"}
	}

	if score > criterion.MaxScore {
		return &RubricBoundsError{Criterion: criterion.Name, Max: criterion.MaxScore, Got: score}
	}

	r.scores[criterionID] = score
	return nil
}

// Score returns the allocation for one criterion.
func (r *RubricAllocation) Score(criterionID uint) int {
	return r.scores[criterionID]
}

// Total sums the allocated criterion scores.
func (r *RubricAllocation) Total() int {
	total := 0
	for _, score := range r.scores {
		total += score
	}
	return total
}

// MaxTotal sums the criterion caps.
func (r *RubricAllocation) MaxTotal() int {
	total := 0
	for _, criterion := range r.criteria {
		total += criterion.MaxScore
	}
	return total
}

// Validate enforces the submit-time invariant: the allocated sum must not
// exceed the sum of the criterion caps.
func (r *RubricAllocation) Validate() error {
	if total, max := r.Total(), r.MaxTotal(); total > max {
		return &RubricBoundsError{Criterion: "total", Max: max, Got: total}
	}
	return nil
}

// Summary compares the allocation against the final answer score and the
// question's declared points. The rubric sum is a suggested total, not an
// enforced equality; both mismatches are flagged, never corrected silently.
func (r *RubricAllocation) Summary(finalScore, questionPoints int) RubricSummary {
	total := r.Total()
	maxTotal := r.MaxTotal()
	return RubricSummary{
		Total:          total,
		MaxTotal:       maxTotal,
		ScoreMismatch:  total != finalScore,
		WeightMismatch: maxTotal != questionPoints,
	}
}

// ComposeQuickComment appends a canned comment to existing feedback with a
// single space separator, or returns the comment alone when feedback is empty.
func ComposeQuickComment(existing, comment string) string {
	if strings.TrimSpace(existing) == "" {
		return comment
	}
	return existing + " " + comment
}
