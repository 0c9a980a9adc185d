package v1

import (
	"strconv"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

const (
	// MonitorKind is the kind name of the Monitor resource.
	MonitorKind = "Monitor"

	// MonitorFinalizer blocks deletion of a Monitor until its Datadog counterpart is gone.
	MonitorFinalizer = "datadog.mzizzi/monitor-cleanup"
)

// MonitorSpec is the Datadog monitor definition, passed through to the Datadog API unchanged.
// +kubebuilder:validation:Type=object
// +kubebuilder:pruning:PreserveUnknownFields
type MonitorSpec map[string]interface{}

// MonitorState is the reconciliation state reported in status.
type MonitorState string

const (
	// MonitorStateSynced means the Datadog monitor matches the spec.
	MonitorStateSynced MonitorState = "Synced"

	// MonitorStateError means the last attempt failed and will be retried.
	MonitorStateError MonitorState = "Error"

	// MonitorStateFailed means reconciliation stopped and needs manual intervention.
	MonitorStateFailed MonitorState = "Failed"
)

// MonitorStatus defines the observed state of Monitor
type MonitorStatus struct {
	// DatadogMonitorID caches the id of the Datadog monitor backing this resource.
	// +kubebuilder:validation:XIntOrString
	DatadogMonitorID *intstr.IntOrString `json:"datadog_monitor_id,omitempty" yaml:"datadog_monitor_id,omitempty"`

	// State is the outcome of the last reconciliation.
	// +kubebuilder:validation:Enum=Synced;Error;Failed
	State MonitorState `json:"state,omitempty" yaml:"state,omitempty"`

	// LastError holds the sanitized error of the last failed reconciliation.
	LastError string `json:"lastError,omitempty" yaml:"lastError,omitempty"`

	// ObservedGeneration is the generation last pushed to Datadog.
	ObservedGeneration int64 `json:"observedGeneration,omitempty" yaml:"observedGeneration,omitempty"`

	// LastReconcileTime is when the status was last written.
	LastReconcileTime *metav1.Time `json:"lastReconcileTime,omitempty" yaml:"lastReconcileTime,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=ddm
// +kubebuilder:printcolumn:name="Monitor ID",type="string",JSONPath=".status.datadog_monitor_id"
// +kubebuilder:printcolumn:name="State",type="string",JSONPath=".status.state"
// +kubebuilder:printcolumn:name="Age",type="date",JSONPath=".metadata.creationTimestamp"

// Monitor is the Schema for the monitors API
type Monitor struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MonitorSpec   `json:"spec,omitempty"`
	Status MonitorStatus `json:"status,omitempty"`
}

// CachedMonitorID returns the raw cached Datadog id and whether the status key is set at all.
// A set key may still hold garbage; callers decide what a usable id is.
func (m *Monitor) CachedMonitorID() (string, bool) {
	id := m.Status.DatadogMonitorID
	if id == nil {
		return "", false
	}
	if id.Type == intstr.Int {
		return strconv.FormatInt(int64(id.IntVal), 10), true
	}
	return id.StrVal, true
}

// SetCachedMonitorID stores the Datadog id in status. Ids beyond int32 are kept as strings.
func (m *Monitor) SetCachedMonitorID(id int64) {
	var v intstr.IntOrString
	if id > 0 && id <= int64(^uint32(0)>>1) {
		v = intstr.FromInt32(int32(id))
	} else {
		v = intstr.FromString(strconv.FormatInt(id, 10))
	}
	m.Status.DatadogMonitorID = &v
}

// ClearCachedMonitorID removes the cached Datadog id.
func (m *Monitor) ClearCachedMonitorID() {
	m.Status.DatadogMonitorID = nil
}

// IsMarkedForDeletion reports whether the API server is waiting on finalizers.
func (m *Monitor) IsMarkedForDeletion() bool {
	return m.DeletionTimestamp != nil
}

// +kubebuilder:object:root=true

// MonitorList contains a list of Monitor
type MonitorList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Monitor `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Monitor{}, &MonitorList{})
}
