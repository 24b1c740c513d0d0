package history

import (
	"sort"
	"time"

	"github.com/clinical-scoring-engine/internal/domain"
)

// Direction of a score between its two most recent records.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// Point is one entry of a trend series.
type Point struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     float64         `json:"value"`
	Severity  domain.Severity `json:"severity,omitempty"`
}

// Trend summarizes how a calculator's score evolves for one subject.
type Trend struct {
	CalculatorID string    `json:"calculator_id"`
	SubjectID    string    `json:"subject_id,omitempty"`
	Direction    Direction `json:"direction"`
	Delta        float64   `json:"delta"`
	Series       []Point   `json:"series"`
}

// ValueOf extracts a plottable number from a result: the numeric value, else
// the leading number of a text value ("4+3=7" reads 4), else 0.
func ValueOf(r domain.Result) float64 {
	if n, ok := r.Value.Number(); ok {
		return n
	}
	return 0
}

// ComputeTrend orders records oldest first and compares the two most recent.
// Fewer than two records are stable.
func ComputeTrend(records []*domain.CalculationRecord) Trend {
	sorted := make([]*domain.CalculationRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			sorted = append(sorted, rec)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	points := make([]Point, 0, len(sorted))
	for _, rec := range sorted {
		points = append(points, Point{
			Timestamp: rec.CreatedAt,
			Value:     ValueOf(rec.Result),
			Severity:  rec.Result.Severity,
		})
	}

	t := TrendFromPoints(points)
	if len(sorted) > 0 {
		latest := sorted[len(sorted)-1]
		t.CalculatorID = latest.CalculatorID
		t.SubjectID = latest.SubjectID
	}
	return t
}

// TrendFromPoints derives the direction of a series already ordered oldest first.
func TrendFromPoints(points []Point) Trend {
	if points == nil {
		points = []Point{}
	}
	t := Trend{Direction: DirectionStable, Series: points}
	if n := len(points); n >= 2 {
		t.Delta = points[n-1].Value - points[n-2].Value
		switch {
		case t.Delta > 0:
			t.Direction = DirectionUp
		case t.Delta < 0:
			t.Direction = DirectionDown
		}
	}
	return t
}
