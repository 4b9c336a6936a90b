// Package record defines the message context threaded through the
// pipeline: raw log text, parsed message, sender/target/client/server
// context, and free-form metadata.
package record

import "time"

// Reserved identifiers used by the test-data generator's dev-client
// override (spec §4.7.4). Kept as named constants rather than
// hardcoded strings so the single place they're wired is obvious.
const (
	DevClientID = "__devgen__"
	DevSinkID   = "__devcapture__"
)

// TargetType identifies the kind of IRC-side recipient a line belongs to.
type TargetType string

const (
	TargetChannel TargetType = "channel"
	TargetQuery   TargetType = "query"
	TargetConsole TargetType = "console"
)

// MessageType is the fine-grained kind of a parsed line, distinct from
// the coarser "base event" an Event config matches against.
type MessageType string

const (
	MessagePrivmsg MessageType = "privmsg"
	MessageNotice  MessageType = "notice"
	MessageSystem  MessageType = "system"
)

// Raw holds the untouched log line and its textual timestamp, before
// any parsing has occurred.
type Raw struct {
	Line          string `json:"line"`
	TimestampText string `json:"timestampText"`
}

// Message is the parsed content of a line.
type Message struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
}

// Sender is the IRC identity that produced a line, when known.
type Sender struct {
	Nickname string   `json:"nickname,omitempty"`
	Username string   `json:"username,omitempty"`
	Hostname string   `json:"hostname,omitempty"`
	Realname string   `json:"realname,omitempty"`
	Modes    []string `json:"modes,omitempty"`
}

// Target is the IRC-side recipient of a line.
type Target struct {
	Name string     `json:"name"`
	Type TargetType `json:"type"`
}

// Client identifies the log-producing client instance.
type Client struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Name     string                 `json:"name"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Server identifies the matched server, once enrichment has run.
type Server struct {
	ID             string                 `json:"id,omitempty"`
	Hostname       string                 `json:"hostname,omitempty"`
	DisplayName    string                 `json:"displayName,omitempty"`
	ClientNickname string                 `json:"clientNickname,omitempty"`
	Network        string                 `json:"network,omitempty"`
	Port           int                    `json:"port,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Record is the object threaded through the entire pipeline: parsed
// from a line, enriched with server/user context, matched against
// events, and finally handed to sinks for template rendering.
type Record struct {
	Raw       Raw                    `json:"raw"`
	Message   *Message               `json:"message,omitempty"`
	Sender    *Sender                `json:"sender,omitempty"`
	Target    *Target                `json:"target,omitempty"`
	Client    Client                 `json:"client"`
	Server    Server                 `json:"server"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Clone returns a deep-enough copy for safe per-sink metadata mutation:
// the dispatcher scopes per-sink `event.metadata.host` overrides onto
// Server without letting them leak to the next sink in the list
// (spec §4.8).
func (r Record) Clone() Record {
	out := r
	if r.Message != nil {
		m := *r.Message
		out.Message = &m
	}
	if r.Sender != nil {
		s := *r.Sender
		out.Sender = &s
	}
	if r.Target != nil {
		t := *r.Target
		out.Target = &t
	}
	out.Client.Metadata = cloneMap(r.Client.Metadata)
	out.Server.Metadata = cloneMap(r.Server.Metadata)
	out.Metadata = cloneMap(r.Metadata)
	return out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Context renders the record as the nested map the template expander
// and filter evaluator operate on. Top-level members match spec §6:
// raw, message, sender, target, client, server, timestamp, metadata.
func (r Record) Context() map[string]interface{} {
	ctx := map[string]interface{}{
		"raw": map[string]interface{}{
			"line":      r.Raw.Line,
			"timestamp": r.Raw.TimestampText,
		},
		"client": map[string]interface{}{
			"id":       r.Client.ID,
			"type":     r.Client.Type,
			"name":     r.Client.Name,
			"metadata": r.Client.Metadata,
		},
		"server": map[string]interface{}{
			"id":             r.Server.ID,
			"hostname":       r.Server.Hostname,
			"displayName":    r.Server.DisplayName,
			"clientNickname": r.Server.ClientNickname,
			"network":        r.Server.Network,
			"port":           r.Server.Port,
			"metadata":       r.Server.Metadata,
		},
		"timestamp": r.Timestamp,
		"metadata":  r.Metadata,
	}

	if r.Message != nil {
		ctx["message"] = map[string]interface{}{
			"content": r.Message.Content,
			"type":    string(r.Message.Type),
		}
	}
	if r.Sender != nil {
		ctx["sender"] = map[string]interface{}{
			"nickname": r.Sender.Nickname,
			"username": r.Sender.Username,
			"hostname": r.Sender.Hostname,
			"realname": r.Sender.Realname,
			"modes":    r.Sender.Modes,
		}
	}
	if r.Target != nil {
		ctx["target"] = map[string]interface{}{
			"name": r.Target.Name,
			"type": string(r.Target.Type),
		}
	}

	return ctx
}
