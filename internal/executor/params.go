package executor

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrParamsNotObject is returned when script parameters are not a JSON object.
var ErrParamsNotObject = errors.New("params must be a JSON object")

// DecodeParams parses a JSON object of script parameters. Empty input
// yields no bindings.
func DecodeParams(b []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return nil, ErrParamsNotObject
		}
		return nil, err
	}
	if m == nil {
		return nil, ErrParamsNotObject
	}
	return ParamBindings(m), nil
}

// ParamBindings converts decoded JSON parameters into script values:
// integral numbers become int64, others float64.
func ParamBindings(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = paramValue(v)
	}
	return out
}

func paramValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = paramValue(e)
		}
		return out
	case map[string]any:
		return ParamBindings(x)
	}
	return v
}
