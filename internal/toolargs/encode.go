package toolargs

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Encode renders args as KEY=VALUE environment entries for a tool process
// under convention c. Entries are sorted by key.
//
// Per-argument: scalars are formatted with %v, nil becomes the empty string,
// and maps, slices and other composite values are JSON-encoded.
// Bundled: a single TRELLIS_ARGS entry holding the whole map as a JSON object.
func Encode(args map[string]any, c Convention) ([]string, error) {
	switch c {
	case Bundled:
		if args == nil {
			args = map[string]any{}
		}
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", BundledVar, err)
		}
		return []string{BundledVar + "=" + string(b)}, nil
	case PerArgument:
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		env := make([]string, 0, len(keys))
		for _, k := range keys {
			val, err := scalarString(args[k])
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", VarName(k), err)
			}
			env = append(env, VarName(k)+"="+val)
		}
		return env, nil
	default:
		return nil, fmt.Errorf("encode: unsupported convention %v", c)
	}
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", t), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
