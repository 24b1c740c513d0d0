package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-engine/internal/domain"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name   string
		result domain.Result
		want   float64
	}{
		{"number", domain.Result{Value: domain.NumberValue(12)}, 12},
		{"fixed", domain.Result{Value: domain.Fixed(22.857, 1)}, 22.9},
		{"leading float", domain.Result{Value: domain.TextValue("4+3=7")}, 4},
		{"stage text", domain.Result{Value: domain.TextValue("S3/I2")}, 0},
		{"empty", domain.Result{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ValueOf(tt.result), 1e-9)
		})
	}
}

func record(id string, value float64, sev domain.Severity, at time.Time) *domain.CalculationRecord {
	return &domain.CalculationRecord{
		ID:           id,
		CalculatorID: "news",
		SubjectID:    "patient-1",
		Result:       domain.Result{Value: domain.NumberValue(value), Severity: sev},
		CreatedAt:    at,
	}
}

func TestComputeTrend(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("up, newest first input", func(t *testing.T) {
		trend := ComputeTrend([]*domain.CalculationRecord{
			record("c", 7, domain.SeverityCritical, base.Add(2*time.Hour)),
			record("b", 3, domain.SeverityLow, base.Add(time.Hour)),
			record("a", 1, domain.SeverityLow, base),
		})

		assert.Equal(t, DirectionUp, trend.Direction)
		assert.Equal(t, 4.0, trend.Delta)
		assert.Equal(t, "news", trend.CalculatorID)
		assert.Equal(t, "patient-1", trend.SubjectID)
		require.Len(t, trend.Series, 3)
		assert.Equal(t, base, trend.Series[0].Timestamp)
		assert.Equal(t, 7.0, trend.Series[2].Value)
		assert.Equal(t, domain.SeverityCritical, trend.Series[2].Severity)
	})

	t.Run("down", func(t *testing.T) {
		trend := ComputeTrend([]*domain.CalculationRecord{
			record("a", 9, domain.SeverityCritical, base),
			record("b", 5, domain.SeverityHigh, base.Add(time.Hour)),
		})
		assert.Equal(t, DirectionDown, trend.Direction)
		assert.Equal(t, -4.0, trend.Delta)
	})

	t.Run("stable when equal", func(t *testing.T) {
		trend := ComputeTrend([]*domain.CalculationRecord{
			record("a", 5, domain.SeverityHigh, base),
			record("b", 5, domain.SeverityHigh, base.Add(time.Hour)),
		})
		assert.Equal(t, DirectionStable, trend.Direction)
	})

	t.Run("only the two most recent count", func(t *testing.T) {
		trend := ComputeTrend([]*domain.CalculationRecord{
			record("a", 0, domain.SeverityLow, base),
			record("b", 8, domain.SeverityCritical, base.Add(time.Hour)),
			record("c", 8, domain.SeverityCritical, base.Add(2*time.Hour)),
		})
		assert.Equal(t, DirectionStable, trend.Direction)
	})

	t.Run("single and empty", func(t *testing.T) {
		one := ComputeTrend([]*domain.CalculationRecord{record("a", 3, domain.SeverityLow, base)})
		assert.Equal(t, DirectionStable, one.Direction)
		assert.Len(t, one.Series, 1)

		none := ComputeTrend(nil)
		assert.Equal(t, DirectionStable, none.Direction)
		assert.NotNil(t, none.Series)
		assert.Empty(t, none.Series)
	})
}

func TestTrendFromPoints(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	trend := TrendFromPoints([]Point{
		{Timestamp: base, Value: 12},
		{Timestamp: base.Add(time.Hour), Value: 9.5},
	})
	assert.Equal(t, DirectionDown, trend.Direction)
	assert.Equal(t, -2.5, trend.Delta)

	empty := TrendFromPoints(nil)
	assert.Equal(t, DirectionStable, empty.Direction)
	assert.NotNil(t, empty.Series)
}
