// Package processor enriches a parsed record.Record with its server
// context, classifies it into a BaseEvent, matches it against the
// configstore's event rules in priority order, and resolves which
// sinks it should fan out to (spec §4.7). Grounded on GoClode's
// internal/core/modules.go ModuleManager.Emit, whose priority-ordered
// hook iteration generalizes directly to priority-ordered event
// matching.
package processor

import (
	"sort"
	"strings"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/filter"
	"github.com/hycord/irc-notify/internal/record"
	"github.com/hycord/irc-notify/internal/templating"
)

// Match is one event that matched a record, carrying the sink ids it
// should be dispatched to.
type Match struct {
	Event   configstore.EventConfig
	SinkIDs []string
}

// Processor classifies and matches records against the live
// configstore snapshot handed to it per call; it holds no state of
// its own so a config reload never leaves it working from a stale
// view.
type Processor struct{}

// New constructs a Processor.
func New() *Processor {
	return &Processor{}
}

// ResolveServer implements the spec's server-matching compatibility
// chain (§4.7.1): try progressively looser identification until one
// candidate server resolves, so a client adapter that can only offer
// a hostname still finds the right ServerConfig even when the admin
// identified servers by UUID, and vice versa.
//
// Chain, in order:
//  1. exact ServerConfig.ID match
//  2. exact hostname match
//  3. exact metadata["uuid"] match
//  4. partial UUID match: candidateUUID is a case-insensitive prefix
//     of, or prefixed by, a configured server's UUID, or equals the
//     last three hyphen-separated segments of it (a compatibility
//     shim for client families that only log a truncated UUID)
//  5. case-insensitive hostname match
//  6. case-insensitive display name match
func ResolveServer(candidateID, candidateHostname, candidateUUID string, servers []configstore.ServerConfig) (configstore.ServerConfig, bool) {
	for _, s := range servers {
		if candidateID != "" && s.ID == candidateID {
			return s, true
		}
	}
	for _, s := range servers {
		if candidateHostname != "" && s.Hostname == candidateHostname {
			return s, true
		}
	}
	for _, s := range servers {
		if candidateUUID != "" && s.UUID() == candidateUUID {
			return s, true
		}
	}
	if candidateUUID != "" {
		for _, s := range servers {
			u := s.UUID()
			if u == "" {
				continue
			}
			if hasPrefixFold(candidateUUID, u) || hasPrefixFold(u, candidateUUID) {
				return s, true
			}
			if parts := strings.Split(u, "-"); len(parts) > 3 && strings.EqualFold(strings.Join(parts[len(parts)-3:], "-"), candidateUUID) {
				return s, true
			}
		}
	}
	for _, s := range servers {
		if candidateHostname != "" && strings.EqualFold(s.Hostname, candidateHostname) {
			return s, true
		}
	}
	for _, s := range servers {
		if candidateHostname != "" && strings.EqualFold(s.DisplayName, candidateHostname) {
			return s, true
		}
	}
	return configstore.ServerConfig{}, false
}

func hasPrefixFold(s, prefix string) bool {
	if len(prefix) > len(s) {
		return false
	}
	return strings.EqualFold(s[:len(prefix)], prefix)
}

// Enrich attaches the resolved server to rec, merges the server's
// metadata and then the sender's known-user metadata into
// rec.Metadata (user keys win on conflict), and reports whether
// processing should continue: a record whose server cannot be
// resolved, or resolves to a disabled server, is dropped (spec:
// disabled servers produce no notifications).
func Enrich(rec *record.Record, resolved configstore.ServerConfig, found bool) bool {
	if !found || !resolved.Enabled {
		return false
	}
	rec.Server = record.Server{
		ID:             resolved.ID,
		Hostname:       resolved.Hostname,
		DisplayName:    resolved.DisplayName,
		ClientNickname: resolved.ClientNickname,
		Network:        resolved.Network,
		Port:           resolved.Port,
		Metadata:       resolved.Metadata,
	}
	merged := map[string]interface{}{}
	for k, v := range rec.Metadata {
		merged[k] = v
	}
	for k, v := range resolved.Metadata {
		merged[k] = v
	}
	if rec.Sender != nil {
		if u, ok := resolved.KnownUsers[rec.Sender.Nickname]; ok {
			for k, v := range u.Metadata {
				merged[k] = v
			}
		}
	}
	if len(merged) > 0 {
		rec.Metadata = merged
	}
	return true
}

// ExpandMetadata applies template expansion to rec.Metadata using the
// record's own context, so record metadata templates referencing
// e.g. "{{server.displayName}}" resolve before matching and dispatch.
// Matched events' metadata is expanded separately, in Match.
func ExpandMetadata(rec *record.Record) {
	if rec.Metadata == nil {
		return
	}
	ctx := rec.Context()
	expanded := templating.ExpandDeep(rec.Metadata, ctx)
	if m, ok := expanded.(map[string]interface{}); ok {
		rec.Metadata = m
	}
}

// Match evaluates rec against every enabled event in events (expected
// sorted by priority descending, as configstore.Store.Events already
// returns them) and returns every event that matches, most important
// first. Each matching event keeps its own SinkIDs list, since
// multiple events can fire independently for the same record.
func (p *Processor) Match(rec *record.Record, baseEvent configstore.BaseEvent, events []configstore.EventConfig) []Match {
	ctx := rec.Context()
	var matches []Match
	for _, ev := range sortEventsByPriority(events) {
		if !ev.Enabled {
			continue
		}
		if ev.BaseEvent != configstore.BaseAny && ev.BaseEvent != baseEvent {
			continue
		}
		if len(ev.ServerIDs) > 0 && !containsString(ev.ServerIDs, "*") && !containsString(ev.ServerIDs, rec.Server.ID) {
			continue
		}
		if ev.Filter != nil && !filter.Evaluate(*ev.Filter, ctx) {
			continue
		}
		sinkIDs := ev.SinkIDs
		if rec.Client.ID == record.DevClientID {
			// dev-client override: capture every matched notification
			// to the dev sink instead of whatever the event declares,
			// so a developer can watch live matches without wiring
			// real sinks.
			sinkIDs = []string{record.DevSinkID}
		}
		ev.Metadata = expandEventMetadata(ev.Metadata, ctx)
		matches = append(matches, Match{Event: ev, SinkIDs: sinkIDs})
	}
	return matches
}

// expandEventMetadata deep-template-expands a matched event's metadata
// against the enriched record's context before the sink dispatcher
// sees it (spec §4.1, §4.7.3: the dispatcher receives a shallow copy
// of the event whose metadata has already been expanded).
func expandEventMetadata(metadata map[string]interface{}, ctx map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return nil
	}
	expanded := templating.ExpandDeep(metadata, ctx)
	m, _ := expanded.(map[string]interface{})
	return m
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ClassifyBaseEvent maps a parsed message type / parser rule name to
// the coarse BaseEvent an event config matches against. Client parser
// rules declare their own MessageType string; this maps the common
// ones the built-in parser rule sets emit.
func ClassifyBaseEvent(messageType string) configstore.BaseEvent {
	switch messageType {
	case "privmsg", "notice":
		return configstore.BaseMessage
	case "join":
		return configstore.BaseJoin
	case "part":
		return configstore.BasePart
	case "quit":
		return configstore.BaseQuit
	case "nick":
		return configstore.BaseNick
	case "kick":
		return configstore.BaseKick
	case "mode":
		return configstore.BaseMode
	case "topic":
		return configstore.BaseTopic
	case "connect":
		return configstore.BaseConnect
	case "disconnect":
		return configstore.BaseDisconnect
	default:
		return configstore.BaseAny
	}
}

// sortEventsByPriority returns a copy of events ordered by priority
// descending (stable for equal priorities); Match uses it so an event
// list that did not come from configstore.Store.Events is ordered too.
func sortEventsByPriority(events []configstore.EventConfig) []configstore.EventConfig {
	out := append([]configstore.EventConfig{}, events...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}
