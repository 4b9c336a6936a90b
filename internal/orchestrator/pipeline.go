package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hycord/irc-notify/internal/adapter"
	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/processor"
	"github.com/hycord/irc-notify/internal/record"
)

// handleLine is the per-line pipeline: parse, resolve server, enrich,
// classify, match, dispatch. It holds no state of its own beyond what
// rt/cfg carry in, so a concurrent reload swapping out rt never races
// with an in-flight call.
func (o *Orchestrator) handleLine(cfg configstore.ClientConfig, rt *clientRuntime, path, line string) {
	o.Stats.LinesRead.Add(1)

	res, ok := rt.rules.Parse(line)
	if !ok || res.Skip {
		return
	}

	fc := rt.fileContext[path]
	rec := &record.Record{
		Raw:       record.Raw{Line: line},
		Timestamp: time.Now(),
		Client: record.Client{
			ID:   cfg.ID,
			Type: cfg.Type,
			Name: cfg.Name,
		},
	}
	adapter.ApplyCaptures(rec, res)
	if rec.Target.Name == "" {
		rec.Target.Name = fc.targetName
	}
	rec.Target.Type = record.TargetType(fc.targetType)

	servers := o.store.Servers()
	resolved, found := processor.ResolveServer(fc.serverHint, fc.serverHint, fc.serverHint, servers)
	if !processor.Enrich(rec, resolved, found) {
		o.Stats.RecordsDropped.Add(1)
		return
	}
	o.Stats.RecordsParsed.Add(1)

	processor.ExpandMetadata(rec)

	baseEvent := processor.ClassifyBaseEvent(res.MessageType)
	events := o.store.Events()
	matches := o.proc.Match(rec, baseEvent, events)
	if len(matches) == 0 {
		return
	}
	o.Stats.EventsMatched.Add(int64(len(matches)))

	sinks := indexSinksByID(o.store.Sinks())
	ctx := context.Background()
	for _, m := range matches {
		o.disp.Dispatch(ctx, *rec, m.SinkIDs, sinks, m.Event)
		o.Stats.NotificationsSent.Add(int64(len(m.SinkIDs)))
	}

	o.log.Debug("record matched",
		zap.String("client", cfg.ID),
		zap.String("server", rec.Server.ID),
		zap.Int("matches", len(matches)),
	)
}

func indexSinksByID(sinks []configstore.SinkConfig) map[string]configstore.SinkConfig {
	out := make(map[string]configstore.SinkConfig, len(sinks))
	for _, s := range sinks {
		out[s.ID] = s
	}
	return out
}
