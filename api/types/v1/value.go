package types

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// AsObject returns the payload as a string-keyed object.
func AsObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// AsInt recovers an integer from a decoded JSON value without precision loss.
// Decoded payloads carry numbers as json.Number; re-encoded ones may carry
// native int or float64 values.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		i := int(n)
		if float64(i) != n {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// AsCounts interprets a payload object as a room-id -> participant-count map.
func AsCounts(v any) (map[string]int, bool) {
	obj, ok := AsObject(v)
	if !ok {
		return nil, false
	}
	counts := make(map[string]int, len(obj))
	for rid, raw := range obj {
		n, ok := AsInt(raw)
		if !ok {
			return nil, false
		}
		counts[rid] = n
	}
	return counts, true
}

// PayloadInto re-decodes a schema-agnostic payload value into a typed struct.
func PayloadInto(payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}

// EqualValue compares two decoded JSON values structurally. Numbers compare by
// numeric value regardless of representation (json.Number, int, float64), so a
// message survives an encode/decode round trip as an equal value.
func EqualValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if an, aok := numericValue(a); aok {
		bn, bok := numericValue(b)
		return bok && an == bn
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !EqualValue(ae, be) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !EqualValue(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// numericValue normalizes any numeric JSON representation to float64.
// Counts are small enough that float64 comparison is exact.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
