package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

// Dispatcher resolves a matched event's sink ids against the live
// sink configs, renders each one's template, enforces its rate limit,
// and delivers. Sink instances are cached by id+kind so repeated
// deliveries to the same sink reuse its constructed client.
type Dispatcher struct {
	log      *zap.Logger
	registry *Registry
	limiter  *RateLimiter

	mu    sync.Mutex
	built map[string]Sink
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(log *zap.Logger, registry *Registry) *Dispatcher {
	return &Dispatcher{
		log:      log.Named("sink"),
		registry: registry,
		limiter:  NewRateLimiter(),
		built:    map[string]Sink{},
	}
}

// Dispatch delivers rec to every sink named in sinkIDs that resolves
// in sinks, skipping disabled sinks and ones currently rate-limited.
// Errors from individual sinks are logged, not returned, so one
// failing sink never blocks delivery to the others.
func (d *Dispatcher) Dispatch(ctx context.Context, rec record.Record, sinkIDs []string, sinks map[string]configstore.SinkConfig, event configstore.EventConfig) {
	now := time.Now()
	info := EventInfo{ID: event.ID, Name: event.Name, BaseEvent: string(event.BaseEvent), Metadata: event.Metadata}
	for _, id := range sinkIDs {
		cfg, ok := sinks[id]
		if !ok || !cfg.Enabled {
			continue
		}

		if cfg.RateLimit != nil {
			if !d.limiter.Allow(cfg.ID, cfg.RateLimit.MaxPerMinute, cfg.RateLimit.MaxPerHour, now) {
				d.log.Debug("sink rate limited", zap.String("sink", cfg.ID))
				continue
			}
		}

		inst, err := d.sinkFor(cfg)
		if err != nil {
			d.log.Warn("failed to build sink", zap.String("sink", cfg.ID), zap.Error(err))
			continue
		}

		scoped := scopeRecordForSink(rec, cfg, event.Metadata)
		rendered := ResolveTemplate(scoped, cfg.Template, cfg.ID, event)

		if err := inst.Send(ctx, scoped, cfg, rendered, info); err != nil {
			d.log.Warn("sink delivery failed", zap.String("sink", cfg.ID), zap.Error(err))
		}
	}
}

func (d *Dispatcher) sinkFor(cfg configstore.SinkConfig) (Sink, error) {
	key := cfg.ID + "/" + string(cfg.Kind)

	d.mu.Lock()
	defer d.mu.Unlock()
	if inst, ok := d.built[key]; ok {
		return inst, nil
	}
	inst, err := d.registry.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("sink %q: %w", cfg.ID, err)
	}
	d.built[key] = inst
	return inst, nil
}

// scopeRecordForSink applies a sink's AllowedMetaKeys allowlist and
// merges event.metadata.host onto the record's server, both cloning
// the record so neither restriction nor override leaks back into the
// shared record used by other sinks in the same dispatch (spec §4.8:
// "merges event.metadata.host ... onto the record's server — scoped
// to this sink call only").
func scopeRecordForSink(rec record.Record, cfg configstore.SinkConfig, eventMetadata map[string]interface{}) record.Record {
	hostOverride, _ := eventMetadata["host"].(map[string]interface{})
	if len(cfg.AllowedMetaKeys) == 0 && hostOverride == nil {
		return rec
	}
	scoped := rec.Clone()
	if len(cfg.AllowedMetaKeys) > 0 {
		allowed := map[string]bool{}
		for _, k := range cfg.AllowedMetaKeys {
			allowed[k] = true
		}
		for k := range scoped.Metadata {
			if !allowed[k] {
				delete(scoped.Metadata, k)
			}
		}
	}
	if hostOverride != nil {
		mergeServerOverride(&scoped.Server, hostOverride)
	}
	return scoped
}

// mergeServerOverride applies event.metadata.host's keys onto srv:
// known Server fields by name, anything else into srv.Metadata.
func mergeServerOverride(srv *record.Server, override map[string]interface{}) {
	if srv.Metadata == nil {
		srv.Metadata = map[string]interface{}{}
	}
	for k, v := range override {
		switch k {
		case "id":
			if s, ok := v.(string); ok {
				srv.ID = s
			}
		case "hostname":
			if s, ok := v.(string); ok {
				srv.Hostname = s
			}
		case "displayName":
			if s, ok := v.(string); ok {
				srv.DisplayName = s
			}
		case "clientNickname":
			if s, ok := v.(string); ok {
				srv.ClientNickname = s
			}
		case "network":
			if s, ok := v.(string); ok {
				srv.Network = s
			}
		case "port":
			if f, ok := v.(float64); ok {
				srv.Port = int(f)
			}
		default:
			srv.Metadata[k] = v
		}
	}
}
