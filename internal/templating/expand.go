// Package templating implements the `{{dotted.path}}` substitution
// language used throughout the pipeline: filter values, event
// metadata, and sink templates all expand through Expand/ExpandDeep.
//
// Unresolved references are left as the literal "{{path}}" text in
// place — an intentional debug aid (spec §4.1) rather than an error.
package templating

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var refPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// HasRefs reports whether s contains at least one `{{...}}` reference.
func HasRefs(s string) bool {
	return refPattern.MatchString(s)
}

// ExtractRefs returns the dotted paths referenced in s, without the
// surrounding delimiters, in the order they appear.
func ExtractRefs(s string) []string {
	matches := refPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m[1])
	}
	return refs
}

// Expand substitutes every `{{dotted.path}}` reference in template
// against ctx. A reference whose path cannot be resolved (missing key
// at any depth, or a terminal nil) is left untouched.
func Expand(template string, ctx interface{}) string {
	return refPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := refPattern.FindStringSubmatch(match)
		path := sub[1]

		val, ok := lookup(ctx, strings.Split(path, "."))
		if !ok || val == nil {
			return match
		}
		return stringify(val)
	})
}

// ExpandDeep recursively walks a value of unknown shape (the JSON-like
// sum of scalar/slice/map produced by decoding config metadata) and
// expands every string leaf against ctx. It never mutates the input;
// it always returns a new structure.
func ExpandDeep(value interface{}, ctx interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return Expand(v, ctx)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = ExpandDeep(val, ctx)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = ExpandDeep(val, ctx)
		}
		return out
	default:
		return value
	}
}

// lookup resolves a dotted path by sequential key lookup. It supports
// map[string]interface{} nodes (the shape produced by JSON decoding
// and by record.Record.Context) at every depth.
func lookup(root interface{}, keys []string) (interface{}, bool) {
	cur := root
	for _, key := range keys {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, present := m[key]
		if !present {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// stringify renders a resolved value as the text substituted into a
// template. Booleans and numbers get their natural textual form.
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
