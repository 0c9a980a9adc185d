package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/copystructure"

	"github.com/giantswarm/dogkop/internal/datadog"
)

// Operation names used for call recording and error injection.
const (
	MethodCreate = "create"
	MethodUpdate = "update"
	MethodGet    = "get"
	MethodDelete = "delete"
	MethodSearch = "search"
)

// Call is one recorded API call.
type Call struct {
	Method string
	ID     int64
	Query  string
	Config map[string]interface{}
}

// DatadogAPI is an in-memory Datadog monitor API. It is safe for concurrent use.
type DatadogAPI struct {
	mu       sync.Mutex
	nextID   int64
	monitors map[int64]map[string]interface{}
	calls    []Call
	failures map[string][]error
}

// NewDatadogAPI returns an empty API that assigns ids starting at 1.
func NewDatadogAPI() *DatadogAPI {
	return &DatadogAPI{
		nextID:   1,
		monitors: make(map[int64]map[string]interface{}),
		failures: make(map[string][]error),
	}
}

// NotFoundError returns the error Datadog reports for unknown monitor ids.
func NotFoundError() error {
	return &datadog.APIError{StatusCode: 404, Errors: []string{"Monitor not found"}, NotFound: true}
}

// SetNextID sets the id assigned to the next created monitor.
func (a *DatadogAPI) SetNextID(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID = id
}

// Seed stores a monitor under id without recording a call.
func (a *DatadogAPI) Seed(id int64, config map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.monitors[id] = copyConfig(config)
	if id >= a.nextID {
		a.nextID = id + 1
	}
}

// FailNext makes the next call of method return err. Calls queue up.
func (a *DatadogAPI) FailNext(method string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[method] = append(a.failures[method], err)
}

// Calls returns all recorded calls in order.
func (a *DatadogAPI) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// Methods returns the method names of all recorded calls in order.
func (a *DatadogAPI) Methods() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	methods := make([]string, len(a.calls))
	for i, c := range a.calls {
		methods[i] = c.Method
	}
	return methods
}

// CallCount returns how often method was called.
func (a *DatadogAPI) CallCount(method string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Monitor returns a copy of the stored configuration of id.
func (a *DatadogAPI) Monitor(id int64) (map[string]interface{}, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.monitors[id]
	if !ok {
		return nil, false
	}
	return copyConfig(m), true
}

// Len returns the number of stored monitors.
func (a *DatadogAPI) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.monitors)
}

// CreateMonitor implements monitor.MonitorAPI.
func (a *DatadogAPI) CreateMonitor(_ context.Context, config map[string]interface{}) (datadog.Monitor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.record(Call{Method: MethodCreate, Config: copyConfig(config)}); err != nil {
		return datadog.Monitor{}, err
	}

	id := a.nextID
	a.nextID++
	a.monitors[id] = copyConfig(config)
	return toMonitor(id, a.monitors[id]), nil
}

// UpdateMonitor implements monitor.MonitorAPI.
func (a *DatadogAPI) UpdateMonitor(_ context.Context, id int64, config map[string]interface{}) (datadog.Monitor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.record(Call{Method: MethodUpdate, ID: id, Config: copyConfig(config)}); err != nil {
		return datadog.Monitor{}, err
	}
	if _, ok := a.monitors[id]; !ok {
		return datadog.Monitor{}, NotFoundError()
	}

	a.monitors[id] = copyConfig(config)
	return toMonitor(id, a.monitors[id]), nil
}

// GetMonitor implements monitor.MonitorAPI.
func (a *DatadogAPI) GetMonitor(_ context.Context, id int64) (datadog.Monitor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.record(Call{Method: MethodGet, ID: id}); err != nil {
		return datadog.Monitor{}, err
	}
	m, ok := a.monitors[id]
	if !ok {
		return datadog.Monitor{}, NotFoundError()
	}
	return toMonitor(id, m), nil
}

// DeleteMonitor implements monitor.MonitorAPI.
func (a *DatadogAPI) DeleteMonitor(_ context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.record(Call{Method: MethodDelete, ID: id}); err != nil {
		return err
	}
	if _, ok := a.monitors[id]; !ok {
		return NotFoundError()
	}
	delete(a.monitors, id)
	return nil
}

// SearchMonitors implements monitor.MonitorAPI. It understands queries made of
// space separated "tag:<tag>" terms and returns matches ordered by id.
func (a *DatadogAPI) SearchMonitors(_ context.Context, query string) ([]datadog.Monitor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.record(Call{Method: MethodSearch, Query: query}); err != nil {
		return nil, err
	}

	var want []string
	for _, term := range strings.Fields(query) {
		tag, ok := strings.CutPrefix(term, "tag:")
		if !ok {
			return nil, &datadog.APIError{StatusCode: 400, Errors: []string{fmt.Sprintf("unsupported search term %q", term)}}
		}
		want = append(want, tag)
	}

	ids := make([]int64, 0, len(a.monitors))
	for id := range a.monitors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var result []datadog.Monitor
	for _, id := range ids {
		m := toMonitor(id, a.monitors[id])
		if hasAllTags(m.Tags, want) {
			result = append(result, m)
		}
	}
	return result, nil
}

// record must be called with the lock held.
func (a *DatadogAPI) record(c Call) error {
	a.calls = append(a.calls, c)
	if queued := a.failures[c.Method]; len(queued) > 0 {
		a.failures[c.Method] = queued[1:]
		return queued[0]
	}
	return nil
}

func toMonitor(id int64, config map[string]interface{}) datadog.Monitor {
	raw := copyConfig(config)
	raw["id"] = id

	m := datadog.Monitor{ID: id, Raw: raw}
	if name, ok := config["name"].(string); ok {
		m.Name = name
	}
	switch tags := config["tags"].(type) {
	case []interface{}:
		for _, t := range tags {
			if s, ok := t.(string); ok {
				m.Tags = append(m.Tags, s)
			}
		}
	case []string:
		m.Tags = append(m.Tags, tags...)
	}
	return m
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}

func copyConfig(config map[string]interface{}) map[string]interface{} {
	if config == nil {
		return map[string]interface{}{}
	}
	c, err := copystructure.Copy(config)
	if err != nil {
		panic(fmt.Sprintf("mock: failed to copy monitor config: %v", err))
	}
	return c.(map[string]interface{})
}
