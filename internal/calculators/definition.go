// Package calculators implements the clinical scoring formulas and groups them by
// specialty. Every calculator is a Definition wrapping a pure compute function; the
// specialty files register them explicitly through Categories.
package calculators

import (
	"math"
	"strconv"

	"github.com/clinical-scoring-engine/internal/domain"
)

// DefaultVersion is the version assigned to calculators that do not declare one.
const DefaultVersion = "1.0.0"

const (
	disclaimerClinical  = "Aide au calcul. Interprétation clinique à valider."
	disclaimerPathology = "Aide au calcul uniquement. Toute interprétation clinique/pathologique doit être validée par un anatomo-pathologiste."
)

// ComputeFunc is the pure formula behind a calculator.
type ComputeFunc func(in domain.Inputs) domain.Result

// Definition implements domain.Calculator.
type Definition struct {
	id          string
	name        string
	description string
	specialty   string
	version     string
	disclaimer  string
	fields      []domain.FieldSchema
	compute     ComputeFunc
}

// NewDefinition builds a calculator definition. The field list is copied.
func NewDefinition(id, name, description, specialty string, fields []domain.FieldSchema, compute ComputeFunc) *Definition {
	return &Definition{
		id:          id,
		name:        name,
		description: description,
		specialty:   specialty,
		version:     DefaultVersion,
		fields:      append([]domain.FieldSchema(nil), fields...),
		compute:     compute,
	}
}

// WithVersion overrides the calculator version.
func (d *Definition) WithVersion(v string) *Definition {
	d.version = v
	return d
}

// WithDisclaimer attaches the usage disclaimer shown with the calculator.
func (d *Definition) WithDisclaimer(text string) *Definition {
	d.disclaimer = text
	return d
}

func (d *Definition) ID() string          { return d.id }
func (d *Definition) Name() string        { return d.name }
func (d *Definition) Description() string { return d.description }
func (d *Definition) Specialty() string   { return d.specialty }
func (d *Definition) Version() string     { return d.version }
func (d *Definition) Disclaimer() string  { return d.disclaimer }

// Fields returns a copy of the field schemas in presentation order.
func (d *Definition) Fields() []domain.FieldSchema {
	return append([]domain.FieldSchema(nil), d.fields...)
}

// Compute runs the formula. A nil input map is treated as empty.
func (d *Definition) Compute(in domain.Inputs) domain.Result {
	if in == nil {
		in = domain.Inputs{}
	}
	return d.compute(in)
}

// field builders

type fieldOption func(*domain.FieldSchema)

func number(id, label string, opts ...fieldOption) domain.FieldSchema {
	f := domain.FieldSchema{ID: id, Label: label, Kind: domain.FieldNumber}
	for _, o := range opts {
		o(&f)
	}
	return f
}

func checkbox(id, label string) domain.FieldSchema {
	return domain.FieldSchema{ID: id, Label: label, Kind: domain.FieldBoolean}
}

func choice(id, label string, options []domain.Option, opts ...fieldOption) domain.FieldSchema {
	f := domain.FieldSchema{ID: id, Label: label, Kind: domain.FieldSelect, Options: options}
	for _, o := range opts {
		o(&f)
	}
	return f
}

func opt(value, label string) domain.Option {
	return domain.Option{Value: value, Label: label}
}

func placeholder(p string) fieldOption {
	return func(f *domain.FieldSchema) { f.Placeholder = p }
}

func step(s float64) fieldOption {
	return func(f *domain.FieldSchema) { f.Step = &s }
}

func bounds(lo, hi float64) fieldOption {
	return func(f *domain.FieldSchema) {
		f.Min = &lo
		f.Max = &hi
	}
}

func reference(value string) fieldOption {
	return func(f *domain.FieldSchema) { f.Default = value }
}

// rangeOptions builds consecutive "n - label" options starting at from.
func rangeOptions(from int, labels ...string) []domain.Option {
	out := make([]domain.Option, len(labels))
	for i, l := range labels {
		v := strconv.Itoa(from + i)
		out[i] = opt(v, v+" - "+l)
	}
	return out
}

// result helpers

func scored(total int, unit, interpretation, normalRange string, sev domain.Severity) domain.Result {
	return domain.Result{
		Value:          domain.NumberValue(float64(total)),
		Unit:           unit,
		Interpretation: interpretation,
		NormalRange:    normalRange,
		Severity:       sev,
	}
}

func measured(v domain.Value, unit, interpretation, normalRange string, sev domain.Severity) domain.Result {
	return domain.Result{
		Value:          v,
		Unit:           unit,
		Interpretation: interpretation,
		NormalRange:    normalRange,
		Severity:       sev,
	}
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// finiteAt reports whether x is finite and stays finite once scaled for rounding
// to decimals places.
func finiteAt(x float64, decimals int) bool {
	return finite(x, x*math.Pow(10, float64(decimals)))
}

// sum adds the ordinal scores of ids, each defaulting to def when missing.
func sum(in domain.Inputs, def int, ids ...string) int {
	total := 0
	for _, id := range ids {
		total += in.Score(id, def)
	}
	return total
}

// intSum adds the truncated numeric values of ids, each reading 0 when missing.
func intSum(in domain.Inputs, ids ...string) int {
	total := 0
	for _, id := range ids {
		total += in.Int(id, 0)
	}
	return total
}

// tier is one bucket of an ordered threshold table: the first tier whose upper
// bound is reached by the score wins.
type tier struct {
	upTo           float64
	interpretation string
	severity       domain.Severity
}

func classifyUpTo(x float64, tiers []tier, otherwise tier) tier {
	for _, t := range tiers {
		if x <= t.upTo {
			return t
		}
	}
	return otherwise
}
