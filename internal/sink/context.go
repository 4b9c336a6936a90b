package sink

import (
	"time"

	"github.com/hycord/irc-notify/internal/record"
)

// contextSnapshot is the record context embedded in json-format sink
// payloads (console, file, webhook): client, server, sender, target,
// message, plus an ISO timestamp (spec §4.8).
type contextSnapshot struct {
	Client    record.Client   `json:"client"`
	Server    record.Server   `json:"server"`
	Sender    *record.Sender  `json:"sender,omitempty"`
	Target    *record.Target  `json:"target,omitempty"`
	Message   *record.Message `json:"message,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func snapshotContext(rec record.Record) contextSnapshot {
	return contextSnapshot{
		Client:    rec.Client,
		Server:    rec.Server,
		Sender:    rec.Sender,
		Target:    rec.Target,
		Message:   rec.Message,
		Timestamp: rec.Timestamp.UTC().Format(time.RFC3339),
	}
}
