package envsubst

import "testing"

func lookupFrom(env map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

func TestExpandBracedWithDefault(t *testing.T) {
	lookup := lookupFrom(map[string]string{})
	got := Expand("${LOG_DIR:-/var/log/irc}", lookup)
	if got != "/var/log/irc" {
		t.Errorf("got %q", got)
	}
}

func TestExpandBracedPresent(t *testing.T) {
	lookup := lookupFrom(map[string]string{"LOG_DIR": "/home/alice/logs"})
	got := Expand("${LOG_DIR:-/var/log/irc}", lookup)
	if got != "/home/alice/logs" {
		t.Errorf("got %q", got)
	}
}

func TestExpandBracedAbsentNoDefaultLeavesLiteral(t *testing.T) {
	lookup := lookupFrom(map[string]string{})
	got := Expand("${UNSET_VAR}", lookup)
	if got != "${UNSET_VAR}" {
		t.Errorf("got %q", got)
	}
}

func TestExpandBareVar(t *testing.T) {
	lookup := lookupFrom(map[string]string{"HOME": "/home/alice"})
	got := Expand("$HOME/logs", lookup)
	if got != "/home/alice/logs" {
		t.Errorf("got %q", got)
	}
}

func TestExpandBareVarAbsentLeavesLiteral(t *testing.T) {
	lookup := lookupFrom(map[string]string{})
	got := Expand("$NOPE/logs", lookup)
	if got != "$NOPE/logs" {
		t.Errorf("got %q", got)
	}
}

func TestExpandEmptyFallsBackToDefault(t *testing.T) {
	lookup := lookupFrom(map[string]string{"LOG_DIR": ""})
	got := Expand("${LOG_DIR:-/default}", lookup)
	if got != "/default" {
		t.Errorf("got %q", got)
	}
}

func TestExpandDeepRecurses(t *testing.T) {
	lookup := lookupFrom(map[string]string{"BASE": "/data"})
	in := map[string]interface{}{
		"logDirectory": "${BASE}/logs",
		"nested": []interface{}{
			"$BASE/a", "literal",
		},
	}
	out := ExpandDeep(in, lookup).(map[string]interface{})
	if out["logDirectory"] != "/data/logs" {
		t.Errorf("got %v", out["logDirectory"])
	}
	nested := out["nested"].([]interface{})
	if nested[0] != "/data/a" || nested[1] != "literal" {
		t.Errorf("got %v", nested)
	}
}
