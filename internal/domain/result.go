package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// InvalidDataInterpretation is the interpretation carried by the invalid-data sentinel.
const InvalidDataInterpretation = "données invalides"

// Value is a result value: either a number or a preformatted string such as "22.9",
// "3+4=7" or "T2N1M0". It marshals to a JSON number or a JSON string accordingly.
type Value struct {
	num    float64
	text   string
	isText bool
}

// NumberValue returns a numeric value.
func NumberValue(n float64) Value {
	return Value{num: n}
}

// TextValue returns a string value.
func TextValue(s string) Value {
	return Value{text: s, isText: true}
}

// Fixed renders n with the given number of decimals, rounding half away from zero.
func Fixed(n float64, decimals int) Value {
	return TextValue(FormatFixed(n, decimals))
}

// FormatFixed formats n with exactly decimals places, rounding half away from zero.
// NaN and infinities render as "NaN", "+Inf" and "-Inf", which IsFinite rejects.
func FormatFixed(n float64, decimals int) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'f', decimals, 64)
	}
	p := math.Pow(10, float64(decimals))
	scaled := n * p
	if math.IsInf(scaled, 0) {
		// too large to carry a fractional part anyway
		return strconv.FormatFloat(n, 'f', decimals, 64)
	}
	r := math.Round(scaled) / p
	if r == 0 {
		// avoid "-0.0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', decimals, 64)
}

// IsText reports whether the value is a preformatted string.
func (v Value) IsText() bool {
	return v.isText
}

// Number returns the numeric value, or the leading number of a text value.
// The second return is false when no number can be read.
func (v Value) Number() (float64, bool) {
	if !v.isText {
		return v.num, true
	}
	return LeadingFloat(v.text)
}

// String renders the value for display.
func (v Value) String() string {
	if v.isText {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// IsFinite reports whether a numeric value is neither NaN nor infinite. Text values
// are finite unless they spell a non-finite float, as FormatFixed renders one.
func (v Value) IsFinite() bool {
	if v.isText {
		return !nonFiniteText(v.text)
	}
	return !math.IsNaN(v.num) && !math.IsInf(v.num, 0)
}

func nonFiniteText(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nan", "inf", "+inf", "-inf", "infinity", "+infinity", "-infinity":
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isText {
		return json.Marshal(v.text)
	}
	if !v.IsFinite() {
		return nil, ErrNonFiniteValue
	}
	return json.Marshal(v.num)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode result value: %w", err)
		}
		*v = TextValue(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode result value: %w", err)
	}
	*v = NumberValue(n)
	return nil
}

// Result is the uniform output of every calculator.
type Result struct {
	Value          Value    `json:"value"`
	Unit           string   `json:"unit"`
	Interpretation string   `json:"interpretation"`
	NormalRange    string   `json:"normal_range"`
	Severity       Severity `json:"severity,omitempty"`
}

// InvalidResult builds the invalid-data sentinel returned when inputs are missing,
// non-numeric or degenerate. It is an ordinary Result distinguished only by content.
func InvalidResult(unit, normalRange string) Result {
	return Result{
		Value:          NumberValue(0),
		Unit:           unit,
		Interpretation: InvalidDataInterpretation,
		NormalRange:    normalRange,
		Severity:       SeverityNormal,
	}
}

// IsInvalid reports whether r is the invalid-data sentinel.
func (r Result) IsInvalid() bool {
	return r.Interpretation == InvalidDataInterpretation
}

// Validate checks the result invariants: a finite value and a known or absent severity.
func (r Result) Validate() error {
	if !r.Value.IsFinite() {
		return ErrNonFiniteValue
	}
	if r.Severity != "" && !r.Severity.IsValid() {
		return fmt.Errorf("result validation: %w", ErrInvalidSeverity)
	}
	return nil
}

// LogFields returns structured logging fields for audit trails.
func (r Result) LogFields() map[string]any {
	return map[string]any{
		"value":    r.Value.String(),
		"unit":     r.Unit,
		"severity": string(r.Severity),
		"invalid":  r.IsInvalid(),
	}
}

// LeadingFloat parses the longest numeric prefix of s, the way a lenient form parser
// reads "12.5 mg" as 12.5. It returns false when s does not start with a number.
func LeadingFloat(s string) (float64, bool) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	end := i
	// optional exponent, only consumed when complete
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			end = k
		}
	}
	n, err := strconv.ParseFloat(s[start:end], 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
