// Package registry indexes the calculator catalog. A Registry is built once and
// is read-only afterwards, so it is safe for concurrent use.
package registry

import (
	"errors"
	"fmt"

	"github.com/clinical-scoring-engine/internal/calculators"
	"github.com/clinical-scoring-engine/internal/domain"
)

// Registry implements domain.CalculatorCatalog.
type Registry struct {
	categories []domain.Category
	flat       []domain.Calculator
	byID       map[string]domain.Calculator
	byCategory map[string][]domain.Calculator
}

var _ domain.CalculatorCatalog = (*Registry)(nil)

// Build indexes the given categories. It fails on duplicate calculator ids, on
// calculators without an id and on malformed field schemas.
func Build(categories []domain.Category) (*Registry, error) {
	r := &Registry{
		categories: make([]domain.Category, 0, len(categories)),
		byID:       make(map[string]domain.Calculator),
		byCategory: make(map[string][]domain.Calculator, len(categories)),
	}

	for _, cat := range categories {
		if cat.ID == "" {
			return nil, errors.New("category ID is required")
		}
		if _, dup := r.byCategory[cat.ID]; dup {
			return nil, fmt.Errorf("category %s registered twice", cat.ID)
		}

		list := make([]domain.Calculator, 0, len(cat.Calculators))
		for _, c := range cat.Calculators {
			if err := r.add(c); err != nil {
				return nil, fmt.Errorf("category %s: %w", cat.ID, err)
			}
			list = append(list, c)
		}
		r.byCategory[cat.ID] = list

		cat.Calculators = list
		r.categories = append(r.categories, cat)
	}

	return r, nil
}

// NewDefault builds a registry over the built-in catalog.
func NewDefault() (*Registry, error) {
	return Build(calculators.Categories())
}

func (r *Registry) add(c domain.Calculator) error {
	if c == nil || c.ID() == "" {
		return errors.New("calculator ID is required")
	}
	if _, dup := r.byID[c.ID()]; dup {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCalculator, c.ID())
	}
	fields := c.Fields()
	for i := range fields {
		if err := fields[i].Validate(); err != nil {
			return fmt.Errorf("calculator %s: %w", c.ID(), err)
		}
	}
	r.byID[c.ID()] = c
	r.flat = append(r.flat, c)
	return nil
}

// CalculatorByID looks a calculator up. A miss is not an error.
func (r *Registry) CalculatorByID(id string) (domain.Calculator, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// CalculatorsByCategory returns the calculators of a category in catalog order,
// or an empty slice for an unknown category.
func (r *Registry) CalculatorsByCategory(categoryID string) []domain.Calculator {
	list := r.byCategory[categoryID]
	return append(make([]domain.Calculator, 0, len(list)), list...)
}

// Categories returns the categories in catalog order.
func (r *Registry) Categories() []domain.Category {
	out := make([]domain.Category, len(r.categories))
	for i, cat := range r.categories {
		cat.Calculators = append([]domain.Calculator(nil), cat.Calculators...)
		out[i] = cat
	}
	return out
}

// Calculators returns every calculator, in catalog order.
func (r *Registry) Calculators() []domain.Calculator {
	return append([]domain.Calculator(nil), r.flat...)
}

// Len returns the number of registered calculators.
func (r *Registry) Len() int {
	return len(r.flat)
}

// Compute runs the calculator registered under id. It only fails when the id is
// unknown; malformed inputs degrade to defaults or the invalid-data result.
func (r *Registry) Compute(id string, inputs domain.Inputs) (domain.Result, error) {
	c, ok := r.byID[id]
	if !ok {
		return domain.Result{}, &domain.UnknownCalculatorError{ID: id}
	}
	return c.Compute(inputs), nil
}
