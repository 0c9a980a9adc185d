package v1

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/intstr"
)

func TestMonitor_CachedMonitorID(t *testing.T) {
	tests := []struct {
		name        string
		status      *intstr.IntOrString
		wantRaw     string
		wantPresent bool
	}{
		{name: "absent", status: nil, wantRaw: "", wantPresent: false},
		{name: "integer", status: ptr(intstr.FromInt32(123)), wantRaw: "123", wantPresent: true},
		{name: "numeric string", status: ptr(intstr.FromString("456")), wantRaw: "456", wantPresent: true},
		{name: "empty string", status: ptr(intstr.FromString("")), wantRaw: "", wantPresent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Monitor{Status: MonitorStatus{DatadogMonitorID: tt.status}}
			raw, present := m.CachedMonitorID()
			assert.Equal(t, tt.wantRaw, raw)
			assert.Equal(t, tt.wantPresent, present)
		})
	}
}

func TestMonitor_SetCachedMonitorID(t *testing.T) {
	m := &Monitor{}

	m.SetCachedMonitorID(123)
	require.NotNil(t, m.Status.DatadogMonitorID)
	assert.Equal(t, intstr.Int, m.Status.DatadogMonitorID.Type)
	raw, _ := m.CachedMonitorID()
	assert.Equal(t, "123", raw)

	m.SetCachedMonitorID(9_000_000_000)
	assert.Equal(t, intstr.String, m.Status.DatadogMonitorID.Type)
	raw, _ = m.CachedMonitorID()
	assert.Equal(t, "9000000000", raw)

	m.ClearCachedMonitorID()
	_, present := m.CachedMonitorID()
	assert.False(t, present)
}

func TestMonitor_StatusKeyName(t *testing.T) {
	m := &Monitor{}
	m.SetCachedMonitorID(42)

	data, err := json.Marshal(m.Status)
	require.NoError(t, err)
	assert.JSONEq(t, `{"datadog_monitor_id":42}`, string(data))
}

func TestMonitor_DeepCopyIsIndependent(t *testing.T) {
	original := &Monitor{
		Spec: MonitorSpec{
			"name": "cpu",
			"tags": []interface{}{"team:core"},
			"options": map[string]interface{}{
				"thresholds": map[string]interface{}{"critical": float64(90)},
			},
		},
	}
	original.SetCachedMonitorID(7)

	copied := original.DeepCopy()
	copied.Spec["tags"] = append(copied.Spec["tags"].([]interface{}), "extra")
	copied.Spec["options"].(map[string]interface{})["thresholds"].(map[string]interface{})["critical"] = float64(1)
	copied.SetCachedMonitorID(8)

	assert.Equal(t, []interface{}{"team:core"}, original.Spec["tags"])
	assert.Equal(t, float64(90), original.Spec["options"].(map[string]interface{})["thresholds"].(map[string]interface{})["critical"])
	raw, _ := original.CachedMonitorID()
	assert.Equal(t, "7", raw)
}

func ptr[T any](v T) *T {
	return &v
}
