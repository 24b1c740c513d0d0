package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindMissing valueKind = iota
	kindNumber
	kindText
	kindFlag
)

// FieldValue is one raw calculator input: a number, a text (select values and
// free-form entries) or a flag (checkboxes). The zero value is a missing input.
type FieldValue struct {
	kind valueKind
	num  float64
	text string
	flag bool
}

// Number returns a numeric input.
func Number(n float64) FieldValue {
	return FieldValue{kind: kindNumber, num: n}
}

// Text returns a text input.
func Text(s string) FieldValue {
	return FieldValue{kind: kindText, text: s}
}

// Flag returns a boolean input.
func Flag(b bool) FieldValue {
	return FieldValue{kind: kindFlag, flag: b}
}

// IsMissing reports whether the value carries nothing.
func (v FieldValue) IsMissing() bool {
	return v.kind == kindMissing
}

// Float coerces the value to a finite number. Text is read with a lenient numeric
// prefix parse; flags read as 1 or 0.
func (v FieldValue) Float() (float64, bool) {
	switch v.kind {
	case kindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, false
		}
		return v.num, true
	case kindText:
		return LeadingFloat(v.text)
	case kindFlag:
		if v.flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Bool coerces the value to a checkbox state. Missing and unrecognised values are false.
func (v FieldValue) Bool() bool {
	switch v.kind {
	case kindFlag:
		return v.flag
	case kindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case kindText:
		switch strings.ToLower(strings.TrimSpace(v.text)) {
		case "true", "1", "on", "yes", "oui":
			return true
		}
	}
	return false
}

// String renders the value as a select option would be written.
func (v FieldValue) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	case kindFlag:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}

// Any returns the value as a plain Go value for generic encoders.
func (v FieldValue) Any() any {
	switch v.kind {
	case kindNumber:
		return v.num
	case kindText:
		return v.text
	case kindFlag:
		return v.flag
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.kind == kindNumber && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON implements json.Unmarshaler. Numbers, strings, booleans and null are accepted.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = FieldValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode field value: %w", err)
		}
		*v = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decode field value: %w", err)
		}
		*v = Flag(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode field value: %w", err)
		}
		*v = Number(n)
	}
	return nil
}

// Inputs maps field ids to raw values.
type Inputs map[string]FieldValue

// NewInputs converts a generic decoded payload (HTTP, MCP, CLI) into Inputs.
// Unsupported value types are dropped and therefore treated as missing.
func NewInputs(raw map[string]any) Inputs {
	in := make(Inputs, len(raw))
	for k, val := range raw {
		switch t := val.(type) {
		case float64:
			in[k] = Number(t)
		case float32:
			in[k] = Number(float64(t))
		case int:
			in[k] = Number(float64(t))
		case int64:
			in[k] = Number(float64(t))
		case json.Number:
			if n, err := t.Float64(); err == nil {
				in[k] = Number(n)
			} else {
				in[k] = Text(t.String())
			}
		case string:
			in[k] = Text(t)
		case bool:
			in[k] = Flag(t)
		case FieldValue:
			in[k] = t
		}
	}
	return in
}

// Has reports whether id carries a non-missing value.
func (in Inputs) Has(id string) bool {
	v, ok := in[id]
	return ok && !v.IsMissing()
}

// Number reads a numeric field, substituting def when missing or not parsable.
func (in Inputs) Number(id string, def float64) float64 {
	if n, ok := in[id].Float(); ok {
		return n
	}
	return def
}

// Int reads a numeric field truncated towards zero.
func (in Inputs) Int(id string, def int) int {
	if n, ok := in[id].Float(); ok {
		return int(n)
	}
	return def
}

// Flag reads a checkbox field. Missing reads as unchecked.
func (in Inputs) Flag(id string) bool {
	return in[id].Bool()
}

// Text reads a select field, substituting def when missing or blank.
func (in Inputs) Text(id, def string) string {
	v, ok := in[id]
	if !ok || v.IsMissing() {
		return def
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return def
	}
	return s
}

// Score reads an ordinal select whose option values may carry a letter suffix
// ("3b", "1b"): the letters are stripped and the remaining integer is the score.
func (in Inputs) Score(id string, def int) int {
	v, ok := in[id]
	if !ok || v.IsMissing() {
		return def
	}
	if v.kind == kindNumber || v.kind == kindFlag {
		n, _ := v.Float()
		return int(n)
	}
	s := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return -1
		}
		return r
	}, strings.TrimSpace(v.text))
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Count returns how many of ids are checked.
func (in Inputs) Count(ids ...string) int {
	n := 0
	for _, id := range ids {
		if in.Flag(id) {
			n++
		}
	}
	return n
}

// Canonical returns a deterministic encoding of the inputs, with keys sorted,
// suitable for cache keys.
func (in Inputs) Canonical() string {
	keys := make([]string, 0, len(in))
	for k, v := range in {
		if !v.IsMissing() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v := in[k]
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		switch v.kind {
		case kindNumber:
			b.WriteByte('n')
		case kindText:
			b.WriteByte('s')
		case kindFlag:
			b.WriteByte('b')
		}
		b.WriteString(strconv.Quote(v.String()))
		b.WriteByte(';')
	}
	return b.String()
}

// Raw converts the inputs back into plain Go values.
func (in Inputs) Raw() map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if !v.IsMissing() {
			out[k] = v.Any()
		}
	}
	return out
}
