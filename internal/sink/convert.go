package sink

import (
	"strconv"
	"strings"
	"unicode"
)

// stringify converts a JSON-decoded scalar (string or float64) to its
// string form, returning "" for a missing or non-scalar value.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// toStringList coerces a JSON-decoded value into a string slice: a
// list stringifies each element, a scalar becomes a single-element
// list (spec §4.8: "tags: scalar coerced to single-element list").
func toStringList(v interface{}) []string {
	switch t := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

// stringMap coerces a JSON-decoded value into a map[string]string,
// dropping any non-string values.
func stringMap(v interface{}) map[string]string {
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			out[k] = s
		}
	}
	return out
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// stripNonASCII removes any rune above U+007F from s (spec §4.8:
// outgoing ntfy header values must stay pure ASCII).
func stripNonASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}
