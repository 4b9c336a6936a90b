package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// consoleSink writes rendered notifications to stdout, primarily for
// local testing and the dev-client capture path (spec §4.7.4).
type consoleSink struct{}

func newConsoleSink(cfg configstore.SinkConfig, _ *http.Client) (Sink, error) {
	return consoleSink{}, nil
}

// Send prints a json record (sink id, event name, title, body, context
// snapshot, timestamp) when the sink's template format is "json";
// otherwise a human-readable block with title, body, record timestamp,
// sender nickname, target name, and server display name when known
// (spec §4.8).
func (consoleSink) Send(_ context.Context, rec record.Record, cfg configstore.SinkConfig, rendered Rendered, event EventInfo) error {
	if cfg.Template != nil && cfg.Template.Format == configstore.FormatJSON {
		payload := map[string]interface{}{
			"sinkId":    cfg.ID,
			"eventName": event.Name,
			"title":     rendered.Title,
			"body":      rendered.Body,
			"context":   snapshotContext(rec),
			"timestamp": rec.Timestamp.UTC().Format(time.RFC3339),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("sink: marshal console payload: %w", err)
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", rendered.Title, rendered.Body)
	fmt.Fprintf(&b, "  time: %s\n", rec.Timestamp.UTC().Format(time.RFC3339))
	if rec.Sender != nil && rec.Sender.Nickname != "" {
		fmt.Fprintf(&b, "  sender: %s\n", rec.Sender.Nickname)
	}
	if rec.Target != nil && rec.Target.Name != "" {
		fmt.Fprintf(&b, "  target: %s\n", rec.Target.Name)
	}
	if rec.Server.DisplayName != "" {
		fmt.Fprintf(&b, "  server: %s\n", rec.Server.DisplayName)
	}
	_, err := fmt.Fprint(os.Stdout, b.String())
	return err
}
