package app

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/dogkop/internal/reconciler"
)

type fakeStatusProvider struct {
	mu        sync.Mutex
	running   bool
	statuses  map[string]reconciler.ReconcileStatus
	triggered []string
}

func (f *fakeStatusProvider) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeStatusProvider) GetStatus(name, namespace string) (*reconciler.ReconcileStatus, bool) {
	s, ok := f.statuses[namespace+"/"+name]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (f *fakeStatusProvider) GetAllStatuses() []reconciler.ReconcileStatus {
	var all []reconciler.ReconcileStatus
	for _, s := range f.statuses {
		all = append(all, s)
	}
	return all
}

func (f *fakeStatusProvider) GetQueueLength() int    { return 2 }
func (f *fakeStatusProvider) GetPendingRetries() int { return 1 }

func (f *fakeStatusProvider) TriggerReconcile(name, namespace string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggered = append(f.triggered, namespace+"/"+name)
}

func newTestServer(t *testing.T, running bool) (*fakeStatusProvider, *httptest.Server) {
	t.Helper()
	provider := &fakeStatusProvider{
		running: running,
		statuses: map[string]reconciler.ReconcileStatus{
			"default/cpu-high": {Name: "cpu-high", Namespace: "default", State: reconciler.StateSynced},
		},
	}

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "dogkop_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := NewServer("127.0.0.1:0", provider, reg)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return provider, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_Health(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp, _ := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_NotReady(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp, body := get(t, ts.URL+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "not running")
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "dogkop_test_total 1")
}

func TestServer_Status(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp, body := get(t, ts.URL+"/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var overview StatusOverview
	require.NoError(t, json.Unmarshal([]byte(body), &overview))
	assert.True(t, overview.Running)
	assert.Equal(t, 2, overview.QueueLength)
	assert.Equal(t, 1, overview.PendingRetries)
	require.Len(t, overview.Monitors, 1)
	assert.Equal(t, "cpu-high", overview.Monitors[0].Name)
}

func TestServer_MonitorStatus(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp, body := get(t, ts.URL+"/status/default/cpu-high")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status reconciler.ReconcileStatus
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, reconciler.StateSynced, status.State)

	resp, _ = get(t, ts.URL+"/status/default/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_TriggerReconcile(t *testing.T) {
	provider, ts := newTestServer(t, true)

	resp, err := http.Post(ts.URL+"/reconcile/default/cpu-high", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"default/cpu-high"}, provider.triggered)

	// Only POST is routed
	resp, _ = get(t, ts.URL+"/reconcile/default/cpu-high")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_TriggerWhileStopped(t *testing.T) {
	provider, ts := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/reconcile/default/cpu-high", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Empty(t, provider.triggered)
}
