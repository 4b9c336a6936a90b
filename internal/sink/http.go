package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// ntfySink delivers to an ntfy.sh-compatible push endpoint. Grounded
// on GoClode's internal/providers/cerebras.go HTTP request/response
// handling: build the request, set headers, check the status code.
type ntfySink struct {
	client          *http.Client
	baseURL         string
	topic           string
	token           string
	defaultPriority string
	defaultTags     []string
	headers         map[string]string
}

func newNtfySink(cfg configstore.SinkConfig, client *http.Client) (Sink, error) {
	baseURL, _ := cfg.Config["baseUrl"].(string)
	if baseURL == "" {
		baseURL = "https://ntfy.sh"
	}
	topic, _ := cfg.Config["topic"].(string)
	if topic == "" {
		return nil, fmt.Errorf("sink: ntfy sink %q missing config.topic", cfg.ID)
	}
	token, _ := cfg.Config["token"].(string)
	return &ntfySink{
		client:          client,
		baseURL:         baseURL,
		topic:           topic,
		token:           token,
		defaultPriority: stringify(cfg.Config["priority"]),
		defaultTags:     toStringList(cfg.Config["tags"]),
		headers:         stringMap(cfg.Config["headers"]),
	}, nil
}

// Send posts rendered.Body to the ntfy topic, with Title/Priority/Tags
// headers, letting event.metadata.sink[sinkId] override priority, tags,
// and additional headers, and stripping non-ASCII from every outgoing
// header value (spec §4.8).
func (n *ntfySink) Send(ctx context.Context, _ record.Record, cfg configstore.SinkConfig, rendered Rendered, event EventInfo) error {
	priority := n.defaultPriority
	tags := n.defaultTags
	headers := cloneStringMap(n.headers)

	if override := sinkMetadata(event.Metadata, cfg.ID); override != nil {
		if s := stringify(override["priority"]); s != "" {
			priority = s
		}
		if lst := toStringList(override["tags"]); len(lst) > 0 {
			tags = lst
		}
		for k, v := range stringMap(override["headers"]) {
			headers[k] = v
		}
	}

	url := n.baseURL + "/" + n.topic
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(rendered.Body))
	if err != nil {
		return fmt.Errorf("sink: build ntfy request: %w", err)
	}
	req.Header.Set("Title", stripNonASCII(rendered.Title))
	if priority != "" {
		req.Header.Set("Priority", stripNonASCII(priority))
	}
	if len(tags) > 0 {
		req.Header.Set("Tags", stripNonASCII(strings.Join(tags, ",")))
	}
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}
	for k, v := range headers {
		req.Header.Set(k, stripNonASCII(v))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink: ntfy request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink: ntfy responded %d", resp.StatusCode)
	}
	return nil
}

// webhookSink POSTs (or otherwise delivers) a json or text payload to
// an arbitrary URL.
type webhookSink struct {
	client  *http.Client
	url     string
	method  string
	format  string
	headers map[string]string
}

func newWebhookSink(cfg configstore.SinkConfig, client *http.Client) (Sink, error) {
	url, _ := cfg.Config["url"].(string)
	if url == "" {
		return nil, fmt.Errorf("sink: webhook sink %q missing config.url", cfg.ID)
	}
	method, _ := cfg.Config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}
	format, _ := cfg.Config["format"].(string)
	if format == "" {
		format = "json"
	}
	return &webhookSink{
		client:  client,
		url:     url,
		method:  strings.ToUpper(method),
		format:  format,
		headers: stringMap(cfg.Config["headers"]),
	}, nil
}

// Send delivers the json or text webhook body (per the sink's format
// flag), merging event.metadata.webhook.fields at the payload's top
// level and event.metadata.webhook.headers onto the request (spec
// §4.8).
func (w *webhookSink) Send(ctx context.Context, rec record.Record, cfg configstore.SinkConfig, rendered Rendered, event EventInfo) error {
	webhookMeta, _ := event.Metadata["webhook"].(map[string]interface{})

	var body []byte
	var contentType string
	if w.format == "text" {
		contentType = "text/plain"
		body = []byte(rendered.Title + "\n" + rendered.Body)
	} else {
		contentType = "application/json"
		payload := map[string]interface{}{
			"title": rendered.Title,
			"body":  rendered.Body,
			"event": map[string]interface{}{
				"id":        event.ID,
				"name":      event.Name,
				"baseEvent": event.BaseEvent,
			},
			"context": snapshotContext(rec),
		}
		if webhookMeta != nil {
			if fields, ok := webhookMeta["fields"].(map[string]interface{}); ok {
				for k, v := range fields {
					payload[k] = v
				}
			}
		}
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("sink: marshal webhook payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, w.method, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sink: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	if webhookMeta != nil {
		for k, v := range stringMap(webhookMeta["headers"]) {
			req.Header.Set(k, v)
		}
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sink: webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sink: webhook responded %d", resp.StatusCode)
	}
	return nil
}
