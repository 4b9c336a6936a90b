// Package sink renders and dispatches notifications for matched
// events: resolving title/body templates, enforcing per-sink rate
// limits, and delivering through one of the built-in sink kinds or a
// custom registration (spec §4.8). Grounded on GoClode's
// internal/providers/registry.go Registry, whose switch-on-id
// constructor dispatch and RWMutex-guarded map generalize directly
// from LLM providers to notification sinks.
package sink

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// Rendered is a sink's resolved output: the title/body after template
// expansion, per the precedence chain in ResolveTemplate.
type Rendered struct {
	Title string
	Body  string
}

// EventInfo is the matched event's identity and (already
// deep-template-expanded) metadata, handed to a sink alongside the
// rendered title/body so it can apply its own kind-specific overrides
// (ntfy priority/tags, webhook fields/headers, console/file json
// format) per spec §4.8.
type EventInfo struct {
	ID        string
	Name      string
	BaseEvent string
	Metadata  map[string]interface{}
}

// Sink delivers one rendered notification for one record.
type Sink interface {
	Send(ctx context.Context, rec record.Record, cfg configstore.SinkConfig, rendered Rendered, event EventInfo) error
}

// Constructor builds a Sink from a sink's config. httpClient is
// shared across every HTTP-based sink instance so they reuse
// connection pooling.
type Constructor func(cfg configstore.SinkConfig, httpClient *http.Client) (Sink, error)

// Registry maps sink kinds to constructors, with the four built-in
// kinds pre-registered and custom kinds addable at runtime (spec: a
// sink of kind "custom" names a registered constructor by its
// config["customKind"] value).
type Registry struct {
	mu           sync.RWMutex
	constructors map[configstore.SinkKind]Constructor
	custom       map[string]Constructor
	httpClient   *http.Client
}

// NewRegistry constructs a Registry with console, ntfy, webhook, and
// file wired in.
func NewRegistry() *Registry {
	r := &Registry{
		constructors: map[configstore.SinkKind]Constructor{},
		custom:       map[string]Constructor{},
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
	r.constructors[configstore.SinkConsole] = newConsoleSink
	r.constructors[configstore.SinkFile] = newFileSink
	r.constructors[configstore.SinkNtfy] = newNtfySink
	r.constructors[configstore.SinkWebhook] = newWebhookSink
	return r
}

// RegisterCustom adds a constructor addressable by name under sink
// kind "custom", config["customKind"] == name.
func (r *Registry) RegisterCustom(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.custom[name] = ctor
}

// Build constructs a Sink instance for cfg.
func (r *Registry) Build(cfg configstore.SinkConfig) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg.Kind == configstore.SinkCustom {
		name, _ := cfg.Config["customKind"].(string)
		ctor, ok := r.custom[name]
		if !ok {
			return nil, fmt.Errorf("sink: no custom sink registered for kind %q", name)
		}
		return ctor(cfg, r.httpClient)
	}

	ctor, ok := r.constructors[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("sink: unknown sink kind %q", cfg.Kind)
	}
	return ctor(cfg, r.httpClient)
}
