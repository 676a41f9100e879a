package normalize

import (
	"fmt"
	"strconv"
)

// The raw field map is untyped and its shapes drift between source versions:
// rollup and lookup fields flip between scalar and list depending on how the
// source computes them, and attachment fields may be bare URLs or objects.
// Everything is coerced here, once, so the rest of the code sees only strings
// and string lists.

// scalarString coerces a single raw value to a string. Returns "" for nil and
// for values that have no sensible string form.
func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// stringField returns the first non-empty scalar value among the named
// fields. A list-typed value contributes its first element.
func stringField(fields map[string]any, names ...string) string {
	for _, name := range names {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if list, isList := v.([]any); isList {
			if len(list) == 0 {
				continue
			}
			v = list[0]
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// listField coerces a raw value to a list of strings. Scalars become a
// single-element list, nil and absent become empty. Entries that cannot be
// coerced are skipped and reported in warnings.
func listField(v any, fieldName string) (out []string, warnings []string) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		for i, item := range val {
			s, err := listEntry(item)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s[%d]: %v", fieldName, i, err))
				continue
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out, warnings
	default:
		s, err := listEntry(val)
		if err != nil {
			return nil, []string{fmt.Sprintf("%s: %v", fieldName, err)}
		}
		if s == "" {
			return nil, nil
		}
		return []string{s}, nil
	}
}

// listEntry coerces a single list element. Attachment-style objects
// contribute their "url" key.
func listEntry(v any) (string, error) {
	switch item := v.(type) {
	case string:
		return item, nil
	case map[string]any:
		if u, ok := item["url"].(string); ok {
			return u, nil
		}
		return "", fmt.Errorf("object entry has no url key")
	case float64, int, bool, nil:
		return scalarString(item), nil
	default:
		return "", fmt.Errorf("unsupported entry type %T", v)
	}
}

// firstList returns the coerced list for the first named field that is
// present, without merging fields.
func firstList(fields map[string]any, names ...string) (out []string, warnings []string) {
	for _, name := range names {
		v, ok := fields[name]
		if !ok || v == nil {
			continue
		}
		out, warnings = listField(v, name)
		if len(out) > 0 || len(warnings) > 0 {
			return out, warnings
		}
	}
	return nil, nil
}
