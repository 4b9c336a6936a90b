package adapter

import (
	"testing"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

func TestParsePicksHighestPriorityMatch(t *testing.T) {
	rules := []configstore.ParserRule{
		{
			Name:        "generic-privmsg",
			Pattern:     `<(?P<nick>\S+)> (?P<body>.+)`,
			Priority:    1,
			MessageType: "privmsg",
			Captures:    map[string]string{"nick": "sender.nickname", "body": "message.content"},
		},
		{
			Name:        "highlight-privmsg",
			Pattern:     `<(?P<nick>\S+)> .*tester.*`,
			Priority:    10,
			MessageType: "privmsg",
			Captures:    map[string]string{"nick": "sender.nickname"},
		},
	}
	rs := NewRuleSet(rules)
	res, ok := rs.Parse("<alice> hey tester, you around?")
	if !ok {
		t.Fatal("expected a match")
	}
	if res.RuleName != "highlight-privmsg" {
		t.Errorf("expected higher-priority rule to win, got %q", res.RuleName)
	}
}

func TestParseNoMatchReturnsFalse(t *testing.T) {
	rs := NewRuleSet([]configstore.ParserRule{
		{Name: "only", Pattern: `^\*\*\*`, Priority: 1},
	})
	if _, ok := rs.Parse("<alice> hello"); ok {
		t.Error("expected no match")
	}
}

func TestBadRegexIsDroppedNotFatal(t *testing.T) {
	rs := NewRuleSet([]configstore.ParserRule{
		{Name: "broken", Pattern: "(", Priority: 5},
		{Name: "ok", Pattern: `^hi$`, Priority: 1},
	})
	if len(rs.Errors()) != 1 {
		t.Fatalf("expected exactly one compile error, got %d", len(rs.Errors()))
	}
	if _, ok := rs.Parse("hi"); !ok {
		t.Error("expected remaining valid rule to still match")
	}
}

func TestApplyCapturesFillsRecordFields(t *testing.T) {
	rs := NewRuleSet([]configstore.ParserRule{
		{
			Name:        "privmsg",
			Pattern:     `<(?P<nick>\S+)> (?P<body>.+)`,
			Priority:    1,
			MessageType: "privmsg",
			Captures:    map[string]string{"nick": "sender.nickname", "body": "message.content"},
		},
	})
	res, ok := rs.Parse("<alice> hello there")
	if !ok {
		t.Fatal("expected match")
	}
	rec := &record.Record{}
	ApplyCaptures(rec, res)
	if rec.Sender.Nickname != "alice" {
		t.Errorf("got nickname %q", rec.Sender.Nickname)
	}
	if rec.Message.Content != "hello there" {
		t.Errorf("got content %q", rec.Message.Content)
	}
	if rec.Message.Type != record.MessagePrivmsg {
		t.Errorf("got type %q", rec.Message.Type)
	}
}

func TestSkipRuleSignalsDrop(t *testing.T) {
	rs := NewRuleSet([]configstore.ParserRule{
		{Name: "ctcp-noise", Pattern: `^\x01PING`, Priority: 1, Skip: true},
	})
	res, ok := rs.Parse("\x01PING 12345\x01")
	if !ok {
		t.Fatal("expected match")
	}
	if !res.Skip {
		t.Error("expected Skip to be true")
	}
}
