package events

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/client"

	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// Recorder persists a single Event. client.MonitorClient implements it.
type Recorder interface {
	CreateEvent(ctx context.Context, obj client.Object, reason, message, eventType string) error
}

// EventGenerator renders and records Monitor events.
type EventGenerator struct {
	recorder  Recorder
	templates *MessageTemplateEngine
}

// NewEventGenerator creates a generator that records through recorder.
func NewEventGenerator(recorder Recorder) *EventGenerator {
	return &EventGenerator{
		recorder:  recorder,
		templates: NewMessageTemplateEngine(),
	}
}

// MonitorEvent records an event for monitor.
func (g *EventGenerator) MonitorEvent(ctx context.Context, monitor *datadogv1.Monitor, reason EventReason, data EventData) error {
	data.Name = monitor.Name
	data.Namespace = monitor.Namespace
	data.UID = string(monitor.UID)

	message := g.templates.Render(reason, data)
	eventType := string(getEventType(reason))

	logging.Debug("events", "Generating Monitor event: reason=%s, message=%s, type=%s",
		string(reason), message, eventType)

	return g.recorder.CreateEvent(ctx, monitor, string(reason), message, eventType)
}

// SetTemplate allows customizing the message template for a specific event reason.
func (g *EventGenerator) SetTemplate(reason EventReason, template string) error {
	return g.templates.SetTemplate(reason, template)
}

// GetTemplate returns the template for a specific event reason.
func (g *EventGenerator) GetTemplate(reason EventReason) (string, bool) {
	return g.templates.GetTemplate(reason)
}
