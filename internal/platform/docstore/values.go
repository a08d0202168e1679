package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

type sentinel string

// ServerTimestamp is replaced by the store's clock when written.
const ServerTimestamp sentinel = "docstore.serverTimestamp"

// ResolveServerTimestamps returns a shallow copy of data with every top-level
// ServerTimestamp replaced by now.
func ResolveServerTimestamps(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if s, ok := v.(sentinel); ok && s == ServerTimestamp {
			out[k] = now.UTC()
			continue
		}
		out[k] = v
	}
	return out
}

// EncodeData serializes document data for JSON-backed stores.
func EncodeData(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func DecodeData(b []byte) (map[string]any, error) {
	data := map[string]any{}
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return data, nil
}

// MergeData overlays patch onto base at the top level.
func MergeData(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// String returns data[key] when it is a string.
func String(data map[string]any, key string) (string, bool) {
	s, ok := data[key].(string)
	return s, ok
}

func Bool(data map[string]any, key string) (bool, bool) {
	b, ok := data[key].(bool)
	return b, ok
}

// Time reads a timestamp field stored natively or as RFC 3339 text.
func Time(data map[string]any, key string) (time.Time, bool) {
	switch v := data[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// Int reads a whole number regardless of how the backend decoded it.
func Int(data map[string]any, key string) (int, bool) {
	switch v := data[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
