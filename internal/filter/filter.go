// Package filter evaluates the AND/OR predicate trees used by event
// configs to decide whether a record should match (spec §4.2).
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/hycord/irc-notify/internal/templating"
)

// Operator is a group or leaf predicate operator.
type Operator string

const (
	OpAnd        Operator = "AND"
	OpOr         Operator = "OR"
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "notEquals"
	OpContains   Operator = "contains"
	OpNotContain Operator = "notContains"
	OpMatches    Operator = "matches"
	OpNotMatches Operator = "notMatches"
	OpExists     Operator = "exists"
	OpNotExists  Operator = "notExists"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
)

// Node is either a group (Operator AND/OR, Filters populated) or a
// leaf (any other Operator, Field/Value/Pattern/Flags populated).
type Node struct {
	Operator Operator `json:"operator"`
	Filters  []Node   `json:"filters,omitempty"`

	Field   string      `json:"field,omitempty"`
	Value   interface{} `json:"value,omitempty"`
	Pattern string      `json:"pattern,omitempty"`
	Flags   string      `json:"flags,omitempty"`
}

func (n Node) isGroup() bool {
	return n.Operator == OpAnd || n.Operator == OpOr
}

// Warner receives a one-time-per-process warning when an unknown leaf
// operator is evaluated. Evaluate passes no Warner; EvaluateWithWarner
// lets a caller (such as a test) supply one.
type Warner interface {
	WarnUnknownOperator(op Operator)
}

var (
	unknownOpMu   sync.Mutex
	unknownOpSeen = map[Operator]bool{}
)

// Evaluate walks tree against ctx (typically record.Record.Context())
// and returns whether it matches. Group AND short-circuits on the
// first false, OR on the first true.
func Evaluate(tree Node, ctx interface{}) bool {
	return evaluate(tree, ctx, nil)
}

// EvaluateWithWarner is Evaluate but reports unknown leaf operators to
// w exactly once per operator value for the process lifetime.
func EvaluateWithWarner(tree Node, ctx interface{}, w Warner) bool {
	return evaluate(tree, ctx, w)
}

func evaluate(n Node, ctx interface{}, w Warner) bool {
	if n.isGroup() {
		return evaluateGroup(n, ctx, w)
	}
	return evaluateLeaf(n, ctx, w)
}

func evaluateGroup(n Node, ctx interface{}, w Warner) bool {
	switch n.Operator {
	case OpAnd:
		for _, child := range n.Filters {
			if !evaluate(child, ctx, w) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range n.Filters {
			if evaluate(child, ctx, w) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evaluateLeaf(n Node, ctx interface{}, w Warner) bool {
	fieldVal, fieldExists := lookup(ctx, strings.Split(n.Field, "."))

	switch n.Operator {
	case OpExists:
		return fieldExists && fieldVal != nil
	case OpNotExists:
		return !fieldExists || fieldVal == nil
	case OpEquals:
		return fieldExists && valuesEqual(fieldVal, expandValue(n.Value, ctx))
	case OpNotEquals:
		return !(fieldExists && valuesEqual(fieldVal, expandValue(n.Value, ctx)))
	case OpContains:
		return containsCheck(fieldVal, expandValue(n.Value, ctx))
	case OpNotContain:
		return !containsCheck(fieldVal, expandValue(n.Value, ctx))
	case OpMatches:
		return matchesCheck(fieldVal, n.Pattern, n.Flags, ctx)
	case OpNotMatches:
		return !matchesCheck(fieldVal, n.Pattern, n.Flags, ctx)
	case OpIn:
		return inCheck(fieldVal, expandValue(n.Value, ctx))
	case OpNotIn:
		return !inCheck(fieldVal, expandValue(n.Value, ctx))
	default:
		warnOnce(n.Operator, w)
		return false
	}
}

func warnOnce(op Operator, w Warner) {
	unknownOpMu.Lock()
	defer unknownOpMu.Unlock()
	if unknownOpSeen[op] {
		return
	}
	unknownOpSeen[op] = true
	if w != nil {
		w.WarnUnknownOperator(op)
	}
}

// expandValue applies template expansion to a leaf's value before
// comparison: strings expand directly, sequences expand element-wise,
// anything else passes through untouched.
func expandValue(v interface{}, ctx interface{}) interface{} {
	switch t := v.(type) {
	case string:
		if templating.HasRefs(t) {
			return templating.Expand(t, ctx)
		}
		return t
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, el := range t {
			out[i] = expandValue(el, ctx)
		}
		return out
	default:
		return v
	}
}

// valuesEqual is a strict value-identity comparison (spec §4.2:
// "equals/notEquals: strict value identity after template expansion").
// Numeric types are normalized to float64 first since JSON decoding,
// the record context, and template-expanded leaf values can each
// produce a different concrete numeric type for the same logical
// number.
func valuesEqual(a, b interface{}) bool {
	an, aIsNum := normalizeNumber(a)
	bn, bIsNum := normalizeNumber(b)
	if aIsNum && bIsNum {
		return an == bn
	}
	if aIsNum != bIsNum {
		return false
	}
	if !isComparable(a) || !isComparable(b) {
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
	return a == b
}

func isComparable(v interface{}) bool {
	switch v.(type) {
	case []interface{}, map[string]interface{}:
		return false
	default:
		return true
	}
}

func normalizeNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsCheck(field, value interface{}) bool {
	switch f := field.(type) {
	case string:
		return strings.Contains(f, fmt.Sprintf("%v", value))
	case []interface{}:
		for _, el := range f {
			if valuesEqual(el, value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matchesCheck(field interface{}, pattern, flags string, ctx interface{}) bool {
	s, ok := field.(string)
	if !ok {
		return false
	}
	if templating.HasRefs(pattern) {
		pattern = templating.Expand(pattern, ctx)
	}
	re, err := compileWithFlags(pattern, flags)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func compileWithFlags(pattern, flags string) (*regexp.Regexp, error) {
	if strings.Contains(flags, "i") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// inCheck requires value be a sequence; a non-sequence value (per
// spec boundary B4) returns false rather than erroring.
func inCheck(field, value interface{}) bool {
	list, ok := value.([]interface{})
	if !ok {
		return false
	}
	for _, el := range list {
		if valuesEqual(field, el) {
			return true
		}
	}
	return false
}

// lookup resolves a dotted path over a map[string]interface{} tree,
// returning (value, true) when resolvable and (nil, false) when a null
// or undefined intermediate is encountered.
func lookup(root interface{}, keys []string) (interface{}, bool) {
	cur := root
	for _, key := range keys {
		if cur == nil {
			return nil, false
		}
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
	return cur, cur != nil || len(keys) == 0
}

// Negate returns the dual of tree: AND<->OR for groups, and each leaf
// operator mapped to its defined dual (spec P4).
func Negate(n Node) Node {
	if n.isGroup() {
		children := make([]Node, len(n.Filters))
		for i, c := range n.Filters {
			children[i] = Negate(c)
		}
		dual := OpOr
		if n.Operator == OpOr {
			dual = OpAnd
		}
		return Node{Operator: dual, Filters: children}
	}

	out := n
	out.Operator = dualLeafOp(n.Operator)
	return out
}

// Complexity returns the tree's nesting depth and leaf-predicate count,
// used by the data-flow diagnostics endpoint to score an event's
// filter (spec §4.10: "filter complexity — a depth+leaf-count score").
// A nil tree (no filter configured) scores 0/0.
func Complexity(tree *Node) (depth, leaves int) {
	if tree == nil {
		return 0, 0
	}
	return complexity(*tree, 1)
}

func complexity(n Node, atDepth int) (depth, leaves int) {
	if !n.isGroup() {
		return atDepth, 1
	}
	depth = atDepth
	for _, child := range n.Filters {
		d, l := complexity(child, atDepth+1)
		if d > depth {
			depth = d
		}
		leaves += l
	}
	return depth, leaves
}

func dualLeafOp(op Operator) Operator {
	switch op {
	case OpEquals:
		return OpNotEquals
	case OpNotEquals:
		return OpEquals
	case OpContains:
		return OpNotContain
	case OpNotContain:
		return OpContains
	case OpMatches:
		return OpNotMatches
	case OpNotMatches:
		return OpMatches
	case OpExists:
		return OpNotExists
	case OpNotExists:
		return OpExists
	case OpIn:
		return OpNotIn
	case OpNotIn:
		return OpIn
	default:
		return op
	}
}
