package sink

import (
	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
	"github.com/hycord/irc-notify/internal/templating"
)

// ResolveTemplate expands a sink's title/body against rec's context,
// augmented with the matched event's identity, applying the
// precedence chain from spec §4.8: event.metadata.sink[sinkId].title/
// body overrides the sink's declared Template, falling back to the
// generic defaults `{{event.name}}` / `{{message.content}}`.
func ResolveTemplate(rec record.Record, sinkTemplate *configstore.Template, sinkID string, event configstore.EventConfig) Rendered {
	ctx := rec.Context()
	ctx["event"] = map[string]interface{}{
		"id":        event.ID,
		"name":      event.Name,
		"baseEvent": string(event.BaseEvent),
	}

	title := "{{event.name}}"
	body := "{{message.content}}"

	if sinkTemplate != nil {
		if sinkTemplate.Title != "" {
			title = sinkTemplate.Title
		}
		if sinkTemplate.Body != "" {
			body = sinkTemplate.Body
		}
	}

	if override := sinkMetadata(event.Metadata, sinkID); override != nil {
		if t, ok := override["title"].(string); ok && t != "" {
			title = t
		}
		if b, ok := override["body"].(string); ok && b != "" {
			body = b
		}
	}

	return Rendered{
		Title: templating.Expand(title, ctx),
		Body:  templating.Expand(body, ctx),
	}
}

// sinkMetadata extracts event.metadata.sink[sinkId], the per-sink
// override map spec §4.8 uses for title/body/priority/tags/headers.
func sinkMetadata(eventMetadata map[string]interface{}, sinkID string) map[string]interface{} {
	sinkMap, ok := eventMetadata["sink"].(map[string]interface{})
	if !ok {
		return nil
	}
	m, _ := sinkMap[sinkID].(map[string]interface{})
	return m
}
