package filter

import "testing"

func sampleCtx() map[string]interface{} {
	return map[string]interface{}{
		"message": map[string]interface{}{
			"content": "hey tester, how are you",
		},
		"server": map[string]interface{}{
			"clientNickname": "tester",
			"id":             "libera",
		},
		"tags": []interface{}{"alpha", "beta"},
		"count": 3,
	}
}

func TestEqualsAndNotEquals(t *testing.T) {
	ctx := sampleCtx()
	n := Node{Field: "server.id", Operator: OpEquals, Value: "libera"}
	if !Evaluate(n, ctx) {
		t.Error("expected equals match")
	}
	n2 := Node{Field: "server.id", Operator: OpNotEquals, Value: "efnet"}
	if !Evaluate(n2, ctx) {
		t.Error("expected notEquals match")
	}
}

func TestEqualsNumeric(t *testing.T) {
	ctx := sampleCtx()
	n := Node{Field: "count", Operator: OpEquals, Value: float64(3)}
	if !Evaluate(n, ctx) {
		t.Error("expected numeric equals match across types")
	}
}

func TestContainsStringAndSequence(t *testing.T) {
	ctx := sampleCtx()
	contains := Node{Field: "message.content", Operator: OpContains, Value: "{{server.clientNickname}}"}
	if !Evaluate(contains, ctx) {
		t.Error("expected templated contains match")
	}

	seqContains := Node{Field: "tags", Operator: OpContains, Value: "alpha"}
	if !Evaluate(seqContains, ctx) {
		t.Error("expected sequence contains match")
	}

	notAString := Node{Field: "count", Operator: OpContains, Value: "3"}
	if Evaluate(notAString, ctx) {
		t.Error("contains on non-string/non-sequence field should be false")
	}
}

func TestMatchesRequiresString(t *testing.T) {
	ctx := sampleCtx()
	n := Node{Field: "message.content", Operator: OpMatches, Pattern: "^hey"}
	if !Evaluate(n, ctx) {
		t.Error("expected regex match")
	}

	onNonString := Node{Field: "count", Operator: OpMatches, Pattern: "3"}
	if Evaluate(onNonString, ctx) {
		t.Error("matches on non-string field should be false")
	}

	invalidRegex := Node{Field: "message.content", Operator: OpMatches, Pattern: "("}
	if Evaluate(invalidRegex, ctx) {
		t.Error("invalid regex should fail the leaf, not panic")
	}
}

func TestExistsAndNotExists(t *testing.T) {
	ctx := sampleCtx()
	if !Evaluate(Node{Field: "server.id", Operator: OpExists}, ctx) {
		t.Error("expected exists true")
	}
	if !Evaluate(Node{Field: "server.missing", Operator: OpNotExists}, ctx) {
		t.Error("expected notExists true for missing field")
	}
}

func TestInRequiresSequenceValue(t *testing.T) {
	ctx := sampleCtx()
	n := Node{Field: "server.id", Operator: OpIn, Value: []interface{}{"libera", "efnet"}}
	if !Evaluate(n, ctx) {
		t.Error("expected in match")
	}

	// B4: a non-sequence `in` value returns false, never errors.
	bad := Node{Field: "server.id", Operator: OpIn, Value: "libera"}
	if Evaluate(bad, ctx) {
		t.Error("in with non-sequence value should be false")
	}
}

func TestGroupShortCircuit(t *testing.T) {
	ctx := sampleCtx()
	and := Node{Operator: OpAnd, Filters: []Node{
		{Field: "server.id", Operator: OpEquals, Value: "libera"},
		{Field: "server.id", Operator: OpEquals, Value: "efnet"},
	}}
	if Evaluate(and, ctx) {
		t.Error("AND should be false when one leaf fails")
	}

	or := Node{Operator: OpOr, Filters: []Node{
		{Field: "server.id", Operator: OpEquals, Value: "efnet"},
		{Field: "server.id", Operator: OpEquals, Value: "libera"},
	}}
	if !Evaluate(or, ctx) {
		t.Error("OR should be true when one leaf matches")
	}
}

func TestUnknownOperatorIsFalse(t *testing.T) {
	ctx := sampleCtx()
	n := Node{Field: "server.id", Operator: "bogus"}
	if Evaluate(n, ctx) {
		t.Error("unknown operator should evaluate false")
	}
}

// P4: evaluate(F) == NOT evaluate(negate(F))
func TestNegateIsDual(t *testing.T) {
	ctx := sampleCtx()
	trees := []Node{
		{Field: "server.id", Operator: OpEquals, Value: "libera"},
		{Field: "server.id", Operator: OpExists},
		{Operator: OpAnd, Filters: []Node{
			{Field: "server.id", Operator: OpEquals, Value: "libera"},
			{Field: "count", Operator: OpEquals, Value: float64(3)},
		}},
		{Operator: OpOr, Filters: []Node{
			{Field: "server.id", Operator: OpEquals, Value: "efnet"},
			{Field: "count", Operator: OpEquals, Value: float64(9)},
		}},
	}

	for i, tree := range trees {
		got := Evaluate(tree, ctx)
		negated := Evaluate(Negate(tree), ctx)
		if got == negated {
			t.Errorf("tree %d: evaluate=%v negate(evaluate)=%v, expected duals", i, got, negated)
		}
	}
}
