package graph

import "fmt"

// reservedKeys cannot be used as property names; scripts resolve them to the
// element identity and edge label.
var reservedKeys = map[string]struct{}{"id": {}, "label": {}}

// normalizeValue converts v to one of the stored scalar types:
// string, bool, int32, int64, float32 or float64.
func normalizeValue(key string, v any) (any, error) {
	if key == "" {
		return nil, &InvalidPropertyError{Key: key, Value: v, Reason: "empty key"}
	}
	if _, ok := reservedKeys[key]; ok {
		return nil, &InvalidPropertyError{Key: key, Value: v, Reason: "reserved key"}
	}
	switch x := v.(type) {
	case string, bool, int32, int64, float32, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int32(x), nil
	case int16:
		return int32(x), nil
	case uint8:
		return int32(x), nil
	case uint16:
		return int32(x), nil
	case uint32:
		return int64(x), nil
	case nil:
		return nil, &InvalidPropertyError{Key: key, Value: v, Reason: "null value"}
	default:
		return nil, &InvalidPropertyError{Key: key, Value: v, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func normalizeProps(props map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(props))
	for k, v := range props {
		nv, err := normalizeValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = nv
	}
	return out, nil
}
