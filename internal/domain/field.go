package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawForecastDay is one element of the upstream "data" array.
type RawForecastDay map[string]any

// Value is an optional field read from a RawForecastDay. A missing key and an
// explicit JSON null both yield a Value that is not Present.
type Value struct {
	Raw     any
	Present bool
}

// Get returns the first present, non-null value among keys.
func (d RawForecastDay) Get(keys ...string) Value {
	for _, k := range keys {
		if v, ok := d[k]; ok && v != nil {
			return Value{Raw: v, Present: true}
		}
	}
	return Value{}
}

// Field reads a source field, falling back to its storage column name.
func (d RawForecastDay) Field(source string) Value {
	if column, ok := columnBySource[source]; ok && column != source {
		return d.Get(source, column)
	}
	return d.Get(source)
}

// Float parses the value as a number. The second result is false when the
// value is absent or not numeric.
func (v Value) Float() (float64, bool) {
	if !v.Present {
		return 0, false
	}
	var (
		f   float64
		err error
	)
	switch n := v.Raw.(type) {
	case json.Number:
		f, err = n.Float64()
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// String renders the value the way it appeared in the source. Absent values
// render as the empty string.
func (v Value) String() string {
	if !v.Present {
		return ""
	}
	switch n := v.Raw.(type) {
	case json.Number:
		return n.String()
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	default:
		return fmt.Sprint(n)
	}
}

// floatPtr returns nil for absent or non-numeric values.
func (v Value) floatPtr() *float64 {
	f, ok := v.Float()
	if !ok {
		return nil
	}
	return &f
}

// intPtr rounds numeric values to the nearest integer. Values outside the
// int64 range are treated as non-numeric.
func (v Value) intPtr() *int64 {
	f, ok := v.Float()
	if !ok || f >= math.MaxInt64 || f <= math.MinInt64 {
		return nil
	}
	i := int64(math.Round(f))
	return &i
}

func (v Value) textPtr() *string {
	if !v.Present {
		return nil
	}
	s := v.String()
	return &s
}
