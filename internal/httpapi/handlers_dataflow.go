package httpapi

import (
	"net/http"
	"sort"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/filter"
	"github.com/hycord/irc-notify/internal/processor"
	"github.com/hycord/irc-notify/internal/templating"
)

type dataFlowRule struct {
	Name            string   `json:"name"`
	Priority        int      `json:"priority"`
	Skip            bool     `json:"skip"`
	CapturedFields  []string `json:"capturedFields"`
}

type dataFlowClient struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Enabled bool           `json:"enabled"`
	Rules   []dataFlowRule `json:"rules"`
}

type dataFlowSink struct {
	ID                string   `json:"id"`
	Kind              configstore.SinkKind `json:"kind"`
	Enabled           bool     `json:"enabled"`
	TemplateFields    []string `json:"templateFields"`
	RateLimited       bool     `json:"rateLimited"`
}

type dataFlowEvent struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Enabled           bool               `json:"enabled"`
	Priority          int                `json:"priority"`
	BaseEvent         configstore.BaseEvent `json:"baseEvent"`
	FilterDepth       int                `json:"filterDepth"`
	FilterLeafCount   int                `json:"filterLeafCount"`
	MetadataHasTemplates bool            `json:"metadataHasTemplates"`
}

type dataFlowPath struct {
	ClientID string `json:"clientId"`
	ServerID string `json:"serverId"`
	EventID  string `json:"eventId"`
	SinkID   string `json:"sinkId"`
	Enabled  bool   `json:"enabled"`
}

// handleDataFlow builds the runtime diagnostics graph: per-category
// analysis (parser-rule capture fields, sink template fields and
// rate-limit flags, event filter complexity and metadata template
// usage) plus the full client × server × event × sink routing
// cross-product (spec §4.10 GET /api/data-flow).
func (s *Server) handleDataFlow(w http.ResponseWriter, r *http.Request) {
	clients := s.store.Clients()
	servers := s.store.Servers()
	events := s.store.Events()
	sinks := s.store.Sinks()

	dfClients := make([]dataFlowClient, 0, len(clients))
	for _, c := range clients {
		rules := make([]dataFlowRule, 0, len(c.ParserRules))
		for _, rule := range c.ParserRules {
			fields := make([]string, 0, len(rule.Captures))
			for _, fieldPath := range rule.Captures {
				fields = append(fields, fieldPath)
			}
			sort.Strings(fields)
			rules = append(rules, dataFlowRule{Name: rule.Name, Priority: rule.Priority, Skip: rule.Skip, CapturedFields: fields})
		}
		dfClients = append(dfClients, dataFlowClient{ID: c.ID, Name: c.Name, Enabled: c.Enabled, Rules: rules})
	}

	dfSinks := make([]dataFlowSink, 0, len(sinks))
	sinkEnabled := map[string]bool{}
	for _, sk := range sinks {
		sinkEnabled[sk.ID] = sk.Enabled
		var fields []string
		if sk.Template != nil {
			fields = append(fields, templating.ExtractRefs(sk.Template.Title)...)
			fields = append(fields, templating.ExtractRefs(sk.Template.Body)...)
		}
		dfSinks = append(dfSinks, dataFlowSink{
			ID:             sk.ID,
			Kind:           sk.Kind,
			Enabled:        sk.Enabled,
			TemplateFields: fields,
			RateLimited:    sk.RateLimit != nil && (sk.RateLimit.MaxPerMinute > 0 || sk.RateLimit.MaxPerHour > 0),
		})
	}

	dfEvents := make([]dataFlowEvent, 0, len(events))
	for _, ev := range events {
		depth, leaves := filter.Complexity(ev.Filter)
		dfEvents = append(dfEvents, dataFlowEvent{
			ID:                   ev.ID,
			Name:                 ev.Name,
			Enabled:              ev.Enabled,
			Priority:             ev.Priority,
			BaseEvent:            ev.BaseEvent,
			FilterDepth:          depth,
			FilterLeafCount:      leaves,
			MetadataHasTemplates: metadataHasTemplates(ev.Metadata),
		})
	}

	paths := make([]dataFlowPath, 0)
	for _, ev := range events {
		serverIDs := ev.ServerIDs
		if len(serverIDs) == 0 {
			serverIDs = make([]string, 0, len(servers))
			for _, sv := range servers {
				serverIDs = append(serverIDs, sv.ID)
			}
		}
		anyEnabledSink := false
		for _, sid := range ev.SinkIDs {
			if sinkEnabled[sid] {
				anyEnabledSink = true
				break
			}
		}
		for _, c := range clients {
			for _, srvID := range serverIDs {
				srv, ok := s.store.Server(srvID)
				if !ok {
					continue
				}
				for _, sid := range ev.SinkIDs {
					paths = append(paths, dataFlowPath{
						ClientID: c.ID,
						ServerID: srv.ID,
						EventID:  ev.ID,
						SinkID:   sid,
						Enabled:  c.Enabled && srv.Enabled && ev.Enabled && anyEnabledSink,
					})
				}
			}
		}
	}
	eventPriority := map[string]int{}
	eventName := map[string]string{}
	for _, ev := range events {
		eventPriority[ev.ID] = ev.Priority
		eventName[ev.ID] = ev.Name
	}
	sort.SliceStable(paths, func(i, j int) bool {
		if eventPriority[paths[i].EventID] != eventPriority[paths[j].EventID] {
			return eventPriority[paths[i].EventID] > eventPriority[paths[j].EventID]
		}
		return eventName[paths[i].EventID] < eventName[paths[j].EventID]
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"statistics": map[string]interface{}{
			"linesRead":         s.orch.Stats.LinesRead.Load(),
			"recordsParsed":     s.orch.Stats.RecordsParsed.Load(),
			"recordsDropped":    s.orch.Stats.RecordsDropped.Load(),
			"eventsMatched":     s.orch.Stats.EventsMatched.Load(),
			"notificationsSent": s.orch.Stats.NotificationsSent.Load(),
		},
		"clients":          dfClients,
		"servers":          servers,
		"sinks":            dfSinks,
		"events":           dfEvents,
		"paths":            paths,
		"baseEventMessageTypes": baseEventMessageTypes(),
	})
}

// metadataHasTemplates reports whether any string leaf of metadata
// (recursively, through nested maps/slices) contains a {{path}}
// reference.
func metadataHasTemplates(metadata map[string]interface{}) bool {
	for _, v := range metadata {
		if valueHasTemplates(v) {
			return true
		}
	}
	return false
}

func valueHasTemplates(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return templating.HasRefs(t)
	case map[string]interface{}:
		return metadataHasTemplates(t)
	case []interface{}:
		for _, item := range t {
			if valueHasTemplates(item) {
				return true
			}
		}
	}
	return false
}

// baseEventMessageTypes inverts processor.ClassifyBaseEvent's mapping,
// so the data-flow response can show which raw message types roll up
// into each base-event tag.
func baseEventMessageTypes() map[configstore.BaseEvent][]string {
	candidates := []string{
		"privmsg", "notice", "join", "part", "quit", "nick",
		"kick", "mode", "topic", "connect", "disconnect",
	}
	out := map[configstore.BaseEvent][]string{}
	for _, mt := range candidates {
		be := processor.ClassifyBaseEvent(mt)
		out[be] = append(out[be], mt)
	}
	return out
}
