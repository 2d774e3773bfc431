package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Record is a single stored entity: an attribute map keyed by its "id".
// Numeric attributes may arrive as int64 (freshly built records) or as
// json.Number (records decoded from a backend).
type Record map[string]any

// Filter is an equality-conjunction predicate over record attributes.
// A record matches when every filter attribute is present and equal.
type Filter map[string]any

// KeyOf extracts the integer primary key from a record's "id" attribute.
func KeyOf(record Record) (int64, bool) {
	return AsInt64(record["id"])
}

// AsInt64 coerces a stored attribute value to int64. Fractional numbers and
// non-numeric values do not coerce.
func AsInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	case float64:
		if v == math.Trunc(v) {
			return int64(v), true
		}
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Normalize renders a decoded attribute value the way the API contract
// requires: arbitrary-precision decimals become plain integers when they have
// no fractional part, floats otherwise. Maps and slices are normalized
// recursively.
func Normalize(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v)
		}
		return v
	case map[string]any:
		return NormalizeRecord(v)
	case []any:
		normalized := make([]any, len(v))
		for i, item := range v {
			normalized[i] = Normalize(item)
		}
		return normalized
	}
	return value
}

// NormalizeRecord returns a copy of the record with every attribute
// normalized via Normalize.
func NormalizeRecord(record Record) Record {
	normalized := make(Record, len(record))
	for attr, value := range record {
		normalized[attr] = Normalize(value)
	}
	return normalized
}

// Matches reports whether the record satisfies the filter: every filter
// attribute must exist on the record and compare equal. Numbers compare by
// value regardless of their concrete representation; strings compare exactly.
func Matches(record Record, filter Filter) bool {
	for attr, expected := range filter {
		actual, ok := record[attr]
		if !ok || !valuesEqual(actual, expected) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	// Strings compare textually, never numerically: "00000007" and "7" are
	// different values. Credential checks depend on this.
	aStr, aIsStr := a.(string)
	bStr, bIsStr := b.(string)
	if aIsStr || bIsStr {
		return aIsStr && bIsStr && aStr == bStr
	}

	if aInt, ok := AsInt64(a); ok {
		if bInt, ok := AsInt64(b); ok {
			return aInt == bInt
		}
	}
	if aNum, aOK := asFloat64(a); aOK {
		if bNum, bOK := asFloat64(b); bOK {
			return aNum == bNum
		}
	}

	return a == b
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// DecodeRecord parses a JSON document into a Record, keeping numbers as
// json.Number so integral values are not silently turned into floats.
func DecodeRecord(raw []byte) (Record, error) {
	var record Record
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&record); err != nil {
		return nil, err
	}
	return record, nil
}
