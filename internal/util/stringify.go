package util

import (
	"encoding/json"
	"fmt"
)

// Stringify renders a decoded JSON value as a query or custom-arg string.
// Objects and arrays are JSON-encoded.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool, float64, float32, int, int64, int32, json.Number:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// StringifyMap applies Stringify to every value of m.
func StringifyMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Stringify(v)
	}
	return out
}
