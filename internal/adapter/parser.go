// Package adapter turns a client's on-disk log layout into
// record.Record values: discovering files, extracting server/target
// context from a path, and parsing each line against a client's
// priority-ordered parser rules (spec §4.5). Grounded on GoClode's
// internal/ui/intent.go IntentParser, whose sorted-rule-list,
// first-match-wins shape generalizes directly from slash-command
// intents to IRC log line shapes.
package adapter

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// compiledRule is a configstore.ParserRule with its regex precompiled
// once, keyed by priority for first-match-wins iteration.
type compiledRule struct {
	rule configstore.ParserRule
	re   *regexp.Regexp
}

// RuleSet is a client's parser rules, sorted once by descending
// priority (ties keep declaration order) and ready for repeated use
// across every line of every log file that client owns.
type RuleSet struct {
	mu    sync.RWMutex
	rules []compiledRule
	bad   map[string]error // rules that failed to compile, by name
}

// NewRuleSet compiles rules, sorts them by priority descending
// (stable, so equal-priority rules keep declaration order), and
// drops any rule whose pattern fails to compile rather than failing
// the whole client.
func NewRuleSet(rules []configstore.ParserRule) *RuleSet {
	rs := &RuleSet{bad: map[string]error{}}
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		pattern := r.Pattern
		if containsFlag(r.Flags, 'i') {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			rs.bad[r.Name] = fmt.Errorf("compile rule %q: %w", r.Name, err)
			continue
		}
		compiled = append(compiled, compiledRule{rule: r, re: re})
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority > compiled[j].rule.Priority
	})
	rs.rules = compiled
	return rs
}

// Errors returns the compile errors for any rules that were dropped.
func (rs *RuleSet) Errors() map[string]error {
	return rs.bad
}

// ParseResult is what a successful rule match contributes to a
// record.Record: a message type and a set of captures already
// resolved to their destination record field paths (e.g.
// "sender.nickname" -> "alice").
type ParseResult struct {
	RuleName    string
	MessageType string
	Captures    map[string]string
	Skip        bool
}

// Parse walks rules in priority order and returns the first rule that
// matches line. A rule with Skip=true matches but signals the line
// should be dropped (spec: parser rules may filter out noise lines
// such as CTCP pings) without producing a record.
func (rs *RuleSet) Parse(line string) (ParseResult, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	for _, cr := range rs.rules {
		m := cr.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		names := cr.re.SubexpNames()
		// rule.Captures maps a regex group name to the record field
		// path it fills; translate straight to field-path -> value so
		// ApplyCaptures needs no further lookup into the rule itself.
		captures := map[string]string{}
		for i, name := range names {
			if i == 0 || name == "" {
				continue
			}
			fieldPath, declared := cr.rule.Captures[name]
			if !declared {
				continue
			}
			captures[fieldPath] = m[i]
		}
		return ParseResult{
			RuleName:    cr.rule.Name,
			MessageType: cr.rule.MessageType,
			Captures:    captures,
			Skip:        cr.rule.Skip,
		}, true
	}
	return ParseResult{}, false
}

func containsFlag(flags string, f byte) bool {
	for i := 0; i < len(flags); i++ {
		if flags[i] == f {
			return true
		}
	}
	return false
}

// ApplyCaptures maps a ParseResult's named captures onto rec using the
// rule's declared Captures translation (capture-group-name ->
// record-field-path), covering the handful of fields the spec treats
// as addressable: sender.nickname, sender.username, sender.hostname,
// message.content, target.name.
func ApplyCaptures(rec *record.Record, res ParseResult) {
	if rec.Message == nil {
		rec.Message = &record.Message{}
	}
	if rec.Sender == nil {
		rec.Sender = &record.Sender{}
	}
	if rec.Target == nil {
		rec.Target = &record.Target{}
	}
	if res.MessageType != "" {
		rec.Message.Type = record.MessageType(res.MessageType)
	}
	for fieldPath, value := range res.Captures {
		setField(rec, fieldPath, value)
	}
}

func setField(rec *record.Record, fieldPath, value string) {
	switch fieldPath {
	case "sender.nickname":
		rec.Sender.Nickname = value
	case "sender.username":
		rec.Sender.Username = value
	case "sender.hostname":
		rec.Sender.Hostname = value
	case "sender.realname":
		rec.Sender.Realname = value
	case "message.content":
		rec.Message.Content = value
	case "target.name":
		rec.Target.Name = value
	case "raw.timestampText":
		rec.Raw.TimestampText = value
	}
}
