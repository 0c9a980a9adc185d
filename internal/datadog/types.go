package datadog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Monitor is a Datadog monitor as returned by the API.
type Monitor struct {
	ID   int64    `json:"id"`
	Name string   `json:"name,omitempty"`
	Tags []string `json:"tags,omitempty"`

	// Raw is the complete document returned by Datadog.
	Raw map[string]interface{} `json:"-"`
}

// Credentials provides the API and application keys for each request.
// Implementations must be safe for concurrent use.
type Credentials interface {
	Keys() (apiKey, appKey string)
}

// StaticCredentials is a fixed key pair.
type StaticCredentials struct {
	APIKey string
	AppKey string
}

// Keys implements Credentials.
func (s StaticCredentials) Keys() (string, string) {
	return s.APIKey, s.AppKey
}

type searchResponse struct {
	Monitors []json.RawMessage `json:"monitors"`
}

// decodeMonitor decodes a monitor document, keeping the full payload in Raw.
func decodeMonitor(data []byte) (Monitor, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return Monitor{}, fmt.Errorf("failed to decode monitor: %w", err)
	}

	m := Monitor{Raw: raw}
	switch id := raw["id"].(type) {
	case json.Number:
		v, err := id.Int64()
		if err != nil {
			return Monitor{}, fmt.Errorf("invalid monitor id %q: %w", id, err)
		}
		m.ID = v
	case nil:
	default:
		return Monitor{}, fmt.Errorf("unexpected monitor id type %T", id)
	}

	if name, ok := raw["name"].(string); ok {
		m.Name = name
	}
	if tags, ok := raw["tags"].([]interface{}); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				m.Tags = append(m.Tags, s)
			}
		}
	}
	return m, nil
}
