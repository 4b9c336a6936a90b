package sink

import (
	"testing"

	"github.com/hycord/irc-notify/internal/configstore"
	"github.com/hycord/irc-notify/internal/record"
)

func sampleRecord() record.Record {
	return record.Record{
		Server:  record.Server{DisplayName: "Libera"},
		Target:  &record.Target{Name: "#golang"},
		Sender:  &record.Sender{Nickname: "alice"},
		Message: &record.Message{Content: "hello"},
	}
}

func TestResolveTemplateDefaultWhenNoOverrides(t *testing.T) {
	event := configstore.EventConfig{ID: "ev1", Name: "Someone joined"}
	rendered := ResolveTemplate(sampleRecord(), nil, "s1", event)
	if rendered.Title != "Someone joined" {
		t.Errorf("got title %q", rendered.Title)
	}
	if rendered.Body != "hello" {
		t.Errorf("got body %q", rendered.Body)
	}
}

func TestResolveTemplateSinkTemplateOverridesDefault(t *testing.T) {
	tpl := &configstore.Template{Title: "custom {{server.displayName}}", Body: "body: {{message.content}}"}
	event := configstore.EventConfig{ID: "ev1", Name: "Someone joined"}
	rendered := ResolveTemplate(sampleRecord(), tpl, "s1", event)
	if rendered.Title != "custom Libera" {
		t.Errorf("got title %q", rendered.Title)
	}
	if rendered.Body != "body: hello" {
		t.Errorf("got body %q", rendered.Body)
	}
}

func TestResolveTemplatePerSinkOverrideWinsOverSinkTemplate(t *testing.T) {
	tpl := &configstore.Template{Title: "sink title", Body: "sink body"}
	event := configstore.EventConfig{
		ID:   "ev1",
		Name: "Someone joined",
		Metadata: map[string]interface{}{
			"sink": map[string]interface{}{
				"s1": map[string]interface{}{"title": "event title", "body": "event body"},
			},
		},
	}
	rendered := ResolveTemplate(sampleRecord(), tpl, "s1", event)
	if rendered.Title != "event title" || rendered.Body != "event body" {
		t.Errorf("got %+v", rendered)
	}
}

func TestResolveTemplatePerSinkOverrideScopedToItsOwnSinkID(t *testing.T) {
	tpl := &configstore.Template{Title: "sink title", Body: "sink body"}
	event := configstore.EventConfig{
		ID:   "ev1",
		Name: "Someone joined",
		Metadata: map[string]interface{}{
			"sink": map[string]interface{}{
				"other": map[string]interface{}{"title": "event title"},
			},
		},
	}
	rendered := ResolveTemplate(sampleRecord(), tpl, "s1", event)
	if rendered.Title != "sink title" {
		t.Errorf("expected sink template to remain unoverridden for a different sink id, got %q", rendered.Title)
	}
}

func TestResolveTemplateAugmentsContextWithEvent(t *testing.T) {
	tpl := &configstore.Template{Title: "{{event.name}} ({{event.id}})", Body: "{{event.baseEvent}}"}
	event := configstore.EventConfig{ID: "ev1", Name: "Someone joined", BaseEvent: configstore.BaseJoin}
	rendered := ResolveTemplate(sampleRecord(), tpl, "s1", event)
	if rendered.Title != "Someone joined (ev1)" {
		t.Errorf("got title %q", rendered.Title)
	}
	if rendered.Body != "join" {
		t.Errorf("got body %q", rendered.Body)
	}
}
