package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// fileSink appends one line per notification to a configured file,
// used for archival and for sinks that a downstream log shipper tails
// independently.
type fileSink struct {
	path string
}

func newFileSink(cfg configstore.SinkConfig, _ *http.Client) (Sink, error) {
	path, _ := cfg.Config["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("sink: file sink %q missing config.path", cfg.ID)
	}
	return &fileSink{path: path}, nil
}

func (f *fileSink) Send(_ context.Context, rec record.Record, cfg configstore.SinkConfig, rendered Rendered, event EventInfo) error {
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sink: open %s: %w", f.path, err)
	}
	defer file.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s\t%s\t%s\n", now, rendered.Title, rendered.Body)
	if cfg.Template != nil && cfg.Template.Format == configstore.FormatJSON {
		data, err := json.Marshal(map[string]interface{}{
			"title": rendered.Title, "body": rendered.Body, "eventName": event.Name,
			"timestamp": now, "context": snapshotContext(rec),
		})
		if err != nil {
			return fmt.Errorf("sink: marshal file payload: %w", err)
		}
		line = string(data) + "\n"
	}
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("sink: write %s: %w", f.path, err)
	}
	return nil
}
