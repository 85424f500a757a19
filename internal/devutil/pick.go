package devutil

import "encoding/json"

// Pick flattens any struct or map through JSON and keeps only the requested
// keys. Zero values are dropped too, so a skip-record warning shows just the
// fields that actually identify the record.
func Pick(v any, keys ...string) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{}
	}

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		switch val := m[k]; val {
		case nil, "", float64(0), false:
		default:
			out[k] = val
		}
	}
	return out
}
