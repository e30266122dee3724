package pgstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// typed is the stored form of one property value.
type typed struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func encodeProps(props map[string]any) ([]byte, error) {
	out := make(map[string]typed, len(props))
	for k, v := range props {
		t, raw, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = typed{Type: t, Value: raw}
	}
	return json.Marshal(out)
}

func encodeValue(v any) (string, json.RawMessage, error) {
	var (
		t   string
		raw []byte
		err error
	)
	switch x := v.(type) {
	case string:
		t = "string"
		raw, err = json.Marshal(x)
	case bool:
		t, raw = "boolean", []byte(strconv.FormatBool(x))
	case int32:
		t, raw = "int", []byte(strconv.FormatInt(int64(x), 10))
	case int64:
		// as a string; JSON numbers lose precision beyond 2^53
		t, raw = "long", []byte(strconv.Quote(strconv.FormatInt(x, 10)))
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return "", nil, fmt.Errorf("non-finite float %v", x)
		}
		t, raw = "float", []byte(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", nil, fmt.Errorf("non-finite double %v", x)
		}
		t, raw = "double", []byte(strconv.FormatFloat(x, 'g', -1, 64))
	default:
		return "", nil, fmt.Errorf("unsupported type %T", v)
	}
	return t, raw, err
}

func decodeProps(b []byte) (map[string]any, error) {
	var in map[string]typed
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(in))
	for k, tv := range in {
		v, err := decodeValue(tv)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func decodeValue(tv typed) (any, error) {
	raw := bytes.TrimSpace(tv.Value)
	switch tv.Type {
	case "string":
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	case "boolean":
		return strconv.ParseBool(string(raw))
	case "int":
		n, err := strconv.ParseInt(string(raw), 10, 32)
		return int32(n), err
	case "long":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return strconv.ParseInt(s, 10, 64)
	case "float":
		f, err := strconv.ParseFloat(string(raw), 32)
		return float32(f), err
	case "double":
		return strconv.ParseFloat(string(raw), 64)
	}
	return nil, fmt.Errorf("unknown type %q", tv.Type)
}
