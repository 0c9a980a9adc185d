package events

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var defaultTemplates = map[EventReason]string{
	ReasonMonitorCreated:      `Created Datadog monitor {{ .MonitorID }} for {{ .Namespace }}/{{ .Name }}`,
	ReasonMonitorUpdated:      `Updated Datadog monitor {{ .MonitorID }} for {{ .Namespace }}/{{ .Name }}`,
	ReasonMonitorDeleted:      `Released Datadog monitor{{ if .MonitorID }} {{ .MonitorID }}{{ end }} for {{ .Namespace }}/{{ .Name }}`,
	ReasonMonitorRediscovered: `Cached Datadog monitor id {{ .PreviousID | default "<none>" }} replaced by {{ .MonitorID }} found by identity tags`,
	ReasonMonitorSyncFailed:   `{{ .Operation }} failed on attempt {{ add .Attempt 1 }}, retrying in {{ .RetryIn }}{{ if .Error }}: {{ .Error | trunc 512 }}{{ end }}`,
	ReasonMonitorFailed:       `{{ .Operation }} failed permanently, manual intervention required{{ if .Error }}: {{ .Error | trunc 512 }}{{ end }}`,
}

// MessageTemplateEngine renders event messages.
type MessageTemplateEngine struct {
	mu        sync.RWMutex
	templates map[EventReason]*template.Template
	sources   map[EventReason]string
}

// NewMessageTemplateEngine creates an engine with the default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	e := &MessageTemplateEngine{
		templates: make(map[EventReason]*template.Template),
		sources:   make(map[EventReason]string),
	}
	for reason, text := range defaultTemplates {
		if err := e.SetTemplate(reason, text); err != nil {
			panic(fmt.Sprintf("invalid default template for %s: %v", reason, err))
		}
	}
	return e
}

// Render generates a message for the given event reason and data.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	e.mu.RLock()
	tmpl, exists := e.templates[reason]
	e.mu.RUnlock()

	if !exists {
		return fmt.Sprintf("Event: %s for %s/%s", string(reason), data.Namespace, data.Name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Event: %s for %s/%s (template error: %v)", string(reason), data.Namespace, data.Name, err)
	}
	return buf.String()
}

// SetTemplate replaces the template for reason.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, text string) error {
	tmpl, err := template.New(string(reason)).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template for %s: %w", reason, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[reason] = tmpl
	e.sources[reason] = text
	return nil
}

// GetTemplate returns the template text for a specific event reason.
func (e *MessageTemplateEngine) GetTemplate(reason EventReason) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	text, exists := e.sources[reason]
	return text, exists
}
