package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/yaml"

	dogkopclient "github.com/giantswarm/dogkop/internal/client"
	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
)

func testMonitor(namespace, name string, id int64, state datadogv1.MonitorState) *datadogv1.Monitor {
	m := &datadogv1.Monitor{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, UID: types.UID("uid-" + name)},
		Spec:       datadogv1.MonitorSpec{"name": name, "type": "metric alert"},
		Status:     datadogv1.MonitorStatus{State: state},
	}
	if id > 0 {
		m.SetCachedMonitorID(id)
	}
	return m
}

func testEvent(namespace, monitorName, reason, message string, at time.Time) *corev1.Event {
	return &corev1.Event{
		ObjectMeta: metav1.ObjectMeta{Name: monitorName + "-" + reason, Namespace: namespace},
		InvolvedObject: corev1.ObjectReference{
			Kind:      datadogv1.MonitorKind,
			Name:      monitorName,
			Namespace: namespace,
		},
		Reason:        reason,
		Message:       message,
		Type:          corev1.EventTypeNormal,
		Source:        corev1.EventSource{Component: dogkopclient.EventSourceComponent},
		LastTimestamp: metav1.NewTime(at),
	}
}

func TestGetMonitors_Table(t *testing.T) {
	useFakeCluster(t,
		testMonitor("default", "cpu-high", 1234, datadogv1.MonitorStateSynced),
		testMonitor("prod", "disk-full", 0, datadogv1.MonitorStateError),
	)

	out, err := execute(t, newGetCmd(), "monitors")
	require.NoError(t, err)

	assert.Contains(t, out, "NAMESPACE")
	assert.Contains(t, out, "cpu-high")
	assert.Contains(t, out, "1234")
	assert.Contains(t, out, "disk-full")
	assert.NotContains(t, out, "LAST ERROR")
}

func TestGetMonitors_Wide(t *testing.T) {
	m := testMonitor("default", "cpu-high", 1234, datadogv1.MonitorStateError)
	m.Status.LastError = "datadog request failed with status 503"
	useFakeCluster(t, m)

	out, err := execute(t, newGetCmd(), "monitors", "-o", "wide")
	require.NoError(t, err)
	assert.Contains(t, out, "LAST ERROR")
	assert.Contains(t, out, "status 503")
}

func TestGetMonitors_NamespaceFilter(t *testing.T) {
	useFakeCluster(t,
		testMonitor("default", "cpu-high", 1, datadogv1.MonitorStateSynced),
		testMonitor("prod", "disk-full", 2, datadogv1.MonitorStateSynced),
	)

	out, err := execute(t, newGetCmd(), "monitors", "-n", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "disk-full")
	assert.NotContains(t, out, "cpu-high")
}

func TestGetMonitors_SingleYAML(t *testing.T) {
	useFakeCluster(t, testMonitor("monitoring", "cpu-high", 1234, datadogv1.MonitorStateSynced))

	out, err := execute(t, newGetCmd(), "monitors", "cpu-high", "-n", "monitoring", "-o", "yaml")
	require.NoError(t, err)

	var got datadogv1.Monitor
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "datadog.mzizzi/v1", got.APIVersion)
	assert.Equal(t, datadogv1.MonitorKind, got.Kind)
	assert.Equal(t, "cpu-high", got.Name)
	id, ok := got.CachedMonitorID()
	assert.True(t, ok)
	assert.Equal(t, "1234", id)
	assert.Contains(t, out, "datadog_monitor_id: 1234")
}

func TestGetMonitors_ListJSON(t *testing.T) {
	useFakeCluster(t, testMonitor("default", "cpu-high", 1, datadogv1.MonitorStateSynced))

	out, err := execute(t, newGetCmd(), "monitors", "-o", "json")
	require.NoError(t, err)

	var list datadogv1.MonitorList
	require.NoError(t, yaml.Unmarshal([]byte(out), &list))
	assert.Equal(t, "MonitorList", list.Kind)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "cpu-high", list.Items[0].Name)
}

func TestGetMonitors_Empty(t *testing.T) {
	useFakeCluster(t)

	out, err := execute(t, newGetCmd(), "monitors")
	require.NoError(t, err)
	assert.Contains(t, out, "No Monitors found")
}

func TestGetMonitors_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		useFakeCluster(t)
		_, err := execute(t, newGetCmd(), "monitors", "missing")
		assert.Error(t, err)
	})

	t.Run("bad output format", func(t *testing.T) {
		useFakeCluster(t)
		_, err := execute(t, newGetCmd(), "monitors", "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})

	t.Run("cluster unreachable", func(t *testing.T) {
		useUnreachableCluster(t)
		_, err := execute(t, newGetCmd(), "monitors")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cluster unreachable")
	})
}

func TestGetEvents(t *testing.T) {
	useFakeCluster(t,
		testEvent("default", "cpu-high", "MonitorCreated", "Created Datadog monitor 1234 for default/cpu-high", testNow.Add(-2*time.Minute)),
		testEvent("default", "mem-high", "MonitorCreated", "Created Datadog monitor 99 for default/mem-high", testNow.Add(-time.Minute)),
	)

	out, err := execute(t, newGetCmd(), "events", "cpu-high", "-n", "default")
	require.NoError(t, err)
	assert.Contains(t, out, "MonitorCreated")
	assert.Contains(t, out, "default/cpu-high")
	assert.Contains(t, out, "2m")
	assert.NotContains(t, out, "mem-high")
}

func TestGetEvents_Limit(t *testing.T) {
	useFakeCluster(t,
		testEvent("default", "cpu-high", "MonitorCreated", "first", testNow.Add(-2*time.Minute)),
		testEvent("default", "cpu-high", "MonitorUpdated", "second", testNow.Add(-time.Minute)),
	)

	out, err := execute(t, newGetCmd(), "events", "--limit", "1", "-o", "json")
	require.NoError(t, err)

	var events []corev1.Event
	require.NoError(t, yaml.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "MonitorUpdated", events[0].Reason)
}

func TestGetEvents_Empty(t *testing.T) {
	useFakeCluster(t)

	out, err := execute(t, newGetCmd(), "events")
	require.NoError(t, err)
	assert.Contains(t, out, "No events found")
}
