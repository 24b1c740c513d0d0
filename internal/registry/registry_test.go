package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-engine/internal/calculators"
	"github.com/clinical-scoring-engine/internal/domain"
)

func constant(id string, fields ...domain.FieldSchema) *calculators.Definition {
	return calculators.NewDefinition(id, id, "test calculator", "test", fields, func(domain.Inputs) domain.Result {
		return domain.Result{Value: domain.NumberValue(1), Severity: domain.SeverityNormal, Interpretation: id}
	})
}

func TestNewDefault(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	assert.Equal(t, 56, r.Len())
	assert.Len(t, r.Calculators(), 56)
	assert.Len(t, r.Categories(), 10)

	c, ok := r.CalculatorByID("glasgow")
	require.True(t, ok)
	assert.Equal(t, "reanimation", c.Specialty())

	ids := make([]string, 0)
	for _, c := range r.CalculatorsByCategory("pulmonology") {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"curb65", "berlin", "bode"}, ids)
}

func TestLookupMisses(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	_, ok := r.CalculatorByID("nope")
	assert.False(t, ok)

	list := r.CalculatorsByCategory("astrology")
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCompute(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	res, err := r.Compute("bmi", domain.NewInputs(map[string]any{"weight": 70, "height": 175}))
	require.NoError(t, err)
	assert.Equal(t, "22.9", res.Value.String())

	_, err = r.Compute("does_not_exist", domain.Inputs{})
	require.Error(t, err)

	var unknown *domain.UnknownCalculatorError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "does_not_exist", unknown.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBuildRejectsDuplicates(t *testing.T) {
	_, err := Build([]domain.Category{
		{ID: "a", Calculators: []domain.Calculator{constant("x")}},
		{ID: "b", Calculators: []domain.Calculator{constant("x")}},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCalculator)

	_, err = Build([]domain.Category{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
}

func TestBuildRejectsSelectWithoutOptions(t *testing.T) {
	bad := constant("broken", domain.FieldSchema{ID: "choice", Label: "Choice", Kind: domain.FieldSelect})
	_, err := Build([]domain.Category{{ID: "a", Calculators: []domain.Calculator{bad}}})
	assert.ErrorIs(t, err, domain.ErrMissingOptions)
}

func TestBuildRejectsEmptyIDs(t *testing.T) {
	_, err := Build([]domain.Category{{ID: "a", Calculators: []domain.Calculator{constant("")}}})
	assert.Error(t, err)

	_, err = Build([]domain.Category{{ID: ""}})
	assert.Error(t, err)
}

func TestAccessorsReturnCopies(t *testing.T) {
	r, err := Build([]domain.Category{{ID: "a", Calculators: []domain.Calculator{constant("x"), constant("y")}}})
	require.NoError(t, err)

	list := r.Calculators()
	list[0] = constant("z")
	assert.Equal(t, "x", r.Calculators()[0].ID())

	cats := r.Categories()
	cats[0].Calculators[0] = constant("z")
	assert.Equal(t, "x", r.Categories()[0].Calculators[0].ID())
}

func TestConcurrentReads(t *testing.T) {
	r, err := NewDefault()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, c := range r.Calculators() {
				_, err := r.Compute(c.ID(), domain.Inputs{})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
