package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultHistoryLimit is applied when a filter leaves Limit unset.
	DefaultHistoryLimit = 100
	// MaxHistoryLimit caps a single page of history.
	MaxHistoryLimit = 500
)

// CalculationRecord is an immutable, persisted calculator run.
type CalculationRecord struct {
	ID           string    `json:"id"`
	CalculatorID string    `json:"calculator_id"`
	Inputs       Inputs    `json:"inputs"`
	Result       Result    `json:"result"`
	SubjectID    string    `json:"subject_id,omitempty"`
	AuthorID     string    `json:"author_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate ensures the record can be stored.
func (r *CalculationRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record validation: %w", errors.New("ID is required"))
	}
	if r.CalculatorID == "" {
		return fmt.Errorf("record validation: %w", errors.New("calculator ID is required"))
	}
	if err := r.Result.Validate(); err != nil {
		return fmt.Errorf("record validation: %w", err)
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("record validation: %w", errors.New("creation time is required"))
	}
	return nil
}

// HistoryFilter selects calculation records. Empty fields do not filter.
type HistoryFilter struct {
	CalculatorID string `json:"calculator_id,omitempty" form:"calculator_id"`
	SubjectID    string `json:"subject_id,omitempty" form:"subject_id"`
	AuthorID     string `json:"author_id,omitempty" form:"author_id"`
	Limit        int    `json:"limit,omitempty" form:"limit"`
	Offset       int    `json:"offset,omitempty" form:"offset"`
}

// Normalized returns a copy with paging defaults applied.
func (f HistoryFilter) Normalized() HistoryFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether r passes the filter. Used by in-memory stores and tests.
func (f HistoryFilter) Matches(r *CalculationRecord) bool {
	if f.CalculatorID != "" && r.CalculatorID != f.CalculatorID {
		return false
	}
	if f.SubjectID != "" && r.SubjectID != f.SubjectID {
		return false
	}
	if f.AuthorID != "" && r.AuthorID != f.AuthorID {
		return false
	}
	return true
}
