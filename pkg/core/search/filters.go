// Package search maintains accumulated, cache-keyed paginated result
// sets for candidate searches and job matching.
package search

import (
	"encoding/json"
	"fmt"
)

// NumericRange is an inclusive numeric filter bound.
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterValue is a typed variant: exactly one of string, string list or
// numeric range. Sparse maps of these replace ad hoc nullable fields.
type FilterValue struct {
	str  *string
	list []string
	rng  *NumericRange
}

// String creates a string filter value.
func String(v string) FilterValue {
	return FilterValue{str: &v}
}

// List creates a string-list filter value.
func List(vs ...string) FilterValue {
	return FilterValue{list: append([]string(nil), vs...)}
}

// Range creates a numeric-range filter value.
func Range(min, max float64) FilterValue {
	return FilterValue{rng: &NumericRange{Min: min, Max: max}}
}

// StringValue returns the string variant, if held.
func (v FilterValue) StringValue() (string, bool) {
	if v.str == nil {
		return "", false
	}
	return *v.str, true
}

// ListValue returns the string-list variant, if held.
func (v FilterValue) ListValue() ([]string, bool) {
	if v.list == nil {
		return nil, false
	}
	return append([]string(nil), v.list...), true
}

// RangeValue returns the numeric-range variant, if held.
func (v FilterValue) RangeValue() (NumericRange, bool) {
	if v.rng == nil {
		return NumericRange{}, false
	}
	return *v.rng, true
}

// IsZero reports whether the value carries no variant.
func (v FilterValue) IsZero() bool {
	return v.str == nil && v.list == nil && v.rng == nil
}

// MarshalJSON emits the natural JSON for the held variant.
func (v FilterValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.str != nil:
		return json.Marshal(*v.str)
	case v.list != nil:
		return json.Marshal(v.list)
	case v.rng != nil:
		return json.Marshal(v.rng)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON sniffs the variant from the JSON shape.
func (v *FilterValue) UnmarshalJSON(data []byte) error {
	*v = FilterValue{}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.str = &s
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		v.list = list
		return nil
	}
	var rng NumericRange
	if err := json.Unmarshal(data, &rng); err == nil {
		v.rng = &rng
		return nil
	}
	return fmt.Errorf("filter value must be a string, string list or {min,max} range")
}

// Filters is a sparse map of filter keys to typed values.
type Filters map[string]FilterValue
