// Package domain contains the core types of the clinical scoring engine: field schemas,
// tagged input values, results, severity tiers and the calculator contract shared by the
// engine, its registry and every collaborator that wraps it.
//
// Nothing in this package performs I/O or logging. Values built here are safe to share
// across goroutines once constructed.
package domain

import (
	"errors"
	"fmt"
)

// Severity is the clinical urgency tier attached to a Result.
// The four tiers are fixed and ordered: low < normal < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityNormal   Severity = "normal"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FieldKind describes how a field is entered and interpreted.
type FieldKind string

const (
	FieldNumber  FieldKind = "number"
	FieldSelect  FieldKind = "select"
	FieldBoolean FieldKind = "boolean"
)

// Validation errors for catalog integrity
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidSeverity     = errors.New("invalid severity tier")
	ErrInvalidFieldKind    = errors.New("invalid field kind")
	ErrMissingOptions      = errors.New("select field requires options")
	ErrInvalidDefault      = errors.New("default is not one of the field options")
	ErrNonFiniteValue      = errors.New("result value is not finite")
	ErrDuplicateRecord     = errors.New("calculation record already exists")
	ErrDuplicateCalculator = errors.New("duplicate calculator id")
)

// IsValid reports whether the severity is one of the four known tiers.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityNormal, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Rank orders tiers for comparisons and sorting. Unknown tiers rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityNormal:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// RequiresAttention reports whether the tier should be surfaced to a clinician.
func (s Severity) RequiresAttention() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// LogFields returns structured logging fields for audit trails.
func (s Severity) LogFields() map[string]any {
	return map[string]any{
		"severity":           string(s),
		"severity_rank":      s.Rank(),
		"requires_attention": s.RequiresAttention(),
	}
}

// ParseSeverity converts a stored severity string back into a tier.
// An empty string is accepted and yields an empty (absent) severity.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if s == "" || sev.IsValid() {
		return sev, nil
	}
	return "", fmt.Errorf("parse severity %q: %w", s, ErrInvalidSeverity)
}

// IsValid validates the field kind.
func (k FieldKind) IsValid() bool {
	switch k {
	case FieldNumber, FieldSelect, FieldBoolean:
		return true
	default:
		return false
	}
}

// Option is one entry of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldSchema describes one calculator input. Min, Max and Step are presentation hints;
// compute functions never enforce them.
type FieldSchema struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Kind        FieldKind `json:"kind"`
	Placeholder string    `json:"placeholder,omitempty"`
	Step        *float64  `json:"step,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Options     []Option  `json:"options,omitempty"`
	// Default names the reference option of a select field. Empty means the first option.
	Default string `json:"default,omitempty"`
}

// Validate checks the schema invariants: a known kind, and for selects a non-empty
// option list containing the reference option.
func (f *FieldSchema) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("field validation: %w", errors.New("ID is required"))
	}
	if !f.Kind.IsValid() {
		return fmt.Errorf("field %s: %w", f.ID, ErrInvalidFieldKind)
	}
	if f.Kind != FieldSelect {
		return nil
	}
	if len(f.Options) == 0 {
		return fmt.Errorf("field %s: %w", f.ID, ErrMissingOptions)
	}
	if f.Default != "" {
		for _, o := range f.Options {
			if o.Value == f.Default {
				return nil
			}
		}
		return fmt.Errorf("field %s: %w: %q", f.ID, ErrInvalidDefault, f.Default)
	}
	return nil
}

// ReferenceOption returns the option substituted when a select input is missing.
func (f *FieldSchema) ReferenceOption() string {
	if f.Default != "" {
		return f.Default
	}
	if len(f.Options) > 0 {
		return f.Options[0].Value
	}
	return ""
}

// Calculator is one clinical scoring formula. Compute must be pure: no I/O, no logging,
// no mutation of shared state, and it never fails on malformed inputs.
type Calculator interface {
	ID() string
	Name() string
	Description() string
	Specialty() string
	Version() string
	Fields() []FieldSchema
	Compute(inputs Inputs) Result
}

// Disclaimed is implemented by calculators that carry a usage disclaimer to show
// next to their result.
type Disclaimed interface {
	Disclaimer() string
}

// Category groups the calculators of one specialty.
type Category struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	Icon        string       `json:"icon"`
	ColorHint   string       `json:"color_hint"`
	Calculators []Calculator `json:"-"`
}

// CalculatorInfo is the serializable description of a calculator, used by transports
// and the rendering collaborator.
type CalculatorInfo struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Specialty   string        `json:"specialty"`
	Version     string        `json:"version"`
	Disclaimer  string        `json:"disclaimer,omitempty"`
	Fields      []FieldSchema `json:"fields"`
}

// Describe builds the serializable description of c.
func Describe(c Calculator) CalculatorInfo {
	info := CalculatorInfo{
		ID:          c.ID(),
		Name:        c.Name(),
		Description: c.Description(),
		Specialty:   c.Specialty(),
		Version:     c.Version(),
		Fields:      c.Fields(),
	}
	if d, ok := c.(Disclaimed); ok {
		info.Disclaimer = d.Disclaimer()
	}
	return info
}

// CategoryInfo is the serializable summary of a category.
type CategoryInfo struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Icon            string `json:"icon"`
	ColorHint       string `json:"color_hint"`
	CalculatorCount int    `json:"calculator_count"`
}

// Summary returns the serializable summary of the category.
func (c Category) Summary() CategoryInfo {
	return CategoryInfo{
		ID:              c.ID,
		DisplayName:     c.DisplayName,
		Icon:            c.Icon,
		ColorHint:       c.ColorHint,
		CalculatorCount: len(c.Calculators),
	}
}
