// Package envsubst expands ${VAR}, ${VAR:-default}, and $VAR
// references against the process environment (spec §4.3). It is
// applied to string leaves of client config, most notably
// logDirectory, so a single client config can be reused across hosts.
package envsubst

import "regexp"

// braced matches ${VAR} and ${VAR:-default}.
var braced = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// bare matches $VAR (word-bounded: letters, digits, underscore).
var bare = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// Lookup resolves an environment variable name to (value, present).
// Production callers pass os.LookupEnv; tests can substitute a fake.
type Lookup func(name string) (string, bool)

// Expand substitutes every ${VAR}, ${VAR:-default}, and $VAR reference
// in s using lookup. A variable that is absent or empty falls back to
// its declared default; absent with no default leaves the literal
// text in place.
func Expand(s string, lookup Lookup) string {
	s = braced.ReplaceAllStringFunc(s, func(match string) string {
		sub := braced.FindStringSubmatch(match)
		name := sub[1]
		hasDefault := sub[2] != ""
		def := sub[3]

		val, ok := lookup(name)
		if ok && val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		if ok {
			// present but empty, and no default: the empty value wins.
			return val
		}
		return match
	})

	s = bare.ReplaceAllStringFunc(s, func(match string) string {
		sub := bare.FindStringSubmatch(match)
		name := sub[1]
		val, ok := lookup(name)
		if !ok {
			return match
		}
		return val
	})

	return s
}

// ExpandDeep recursively applies Expand to every string leaf of value
// (a map[string]interface{}/[]interface{}/scalar tree), returning a new
// structure without mutating the input.
func ExpandDeep(value interface{}, lookup Lookup) interface{} {
	switch v := value.(type) {
	case string:
		return Expand(v, lookup)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = ExpandDeep(val, lookup)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = ExpandDeep(val, lookup)
		}
		return out
	default:
		return value
	}
}
