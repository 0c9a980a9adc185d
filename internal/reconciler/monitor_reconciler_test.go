package reconciler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	dogkopclient "github.com/giantswarm/dogkop/internal/client"
	"github.com/giantswarm/dogkop/internal/datadog"
	"github.com/giantswarm/dogkop/internal/events"
	"github.com/giantswarm/dogkop/internal/monitor"
	"github.com/giantswarm/dogkop/internal/testing/mock"
	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
	"github.com/giantswarm/dogkop/pkg/logging"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// upperRand always draws the largest allowed value.
type upperRand struct{}

func (upperRand) Int64N(n int64) int64 { return n - 1 }

type reconcilerFixture struct {
	api        *mock.DatadogAPI
	client     dogkopclient.MonitorClient
	clock      *mock.MockClock
	reconciler *MonitorReconciler
}

func newFixture(t *testing.T, funcs *interceptor.Funcs, objs ...client.Object) *reconcilerFixture {
	t.Helper()

	builder := fake.NewClientBuilder().
		WithScheme(dogkopclient.NewScheme()).
		WithObjects(objs...).
		WithStatusSubresource(&datadogv1.Monitor{})
	if funcs != nil {
		builder = builder.WithInterceptorFuncs(*funcs)
	}
	c := dogkopclient.Wrap(builder.Build())

	api := mock.NewDatadogAPI()
	core := monitor.New(api, monitor.Options{Rand: upperRand{}})
	clock := mock.NewMockClock(fixedNow)

	r := NewMonitorReconciler(c, core).
		WithEvents(events.NewEventGenerator(c)).
		WithBackoff(monitor.BackoffPolicy{Rand: upperRand{}}).
		WithClock(clock.Now)

	return &reconcilerFixture{api: api, client: c, clock: clock, reconciler: r}
}

func newMonitorResource(mutators ...func(*datadogv1.Monitor)) *datadogv1.Monitor {
	m := &datadogv1.Monitor{
		ObjectMeta: metav1.ObjectMeta{
			Name:       "cpu-high",
			Namespace:  "default",
			UID:        "6f1c-42",
			Generation: 3,
		},
		Spec: datadogv1.MonitorSpec{
			"name":  "CPU high",
			"type":  "metric alert",
			"query": "avg(last_5m):avg:system.cpu.user{*} > 90",
			"tags":  []interface{}{"team:sre"},
		},
	}
	for _, mutate := range mutators {
		mutate(m)
	}
	return m
}

func withCachedID(id intstr.IntOrString) func(*datadogv1.Monitor) {
	return func(m *datadogv1.Monitor) {
		m.Status.DatadogMonitorID = &id
	}
}

func withFinalizer(m *datadogv1.Monitor) {
	controllerutil.AddFinalizer(m, datadogv1.MonitorFinalizer)
}

func deleting(m *datadogv1.Monitor) {
	now := metav1.NewTime(fixedNow)
	m.DeletionTimestamp = &now
	controllerutil.AddFinalizer(m, datadogv1.MonitorFinalizer)
}

func (f *reconcilerFixture) seedOwned(id int64) {
	tags := []interface{}{"team:sre"}
	for _, tag := range monitor.IdentityTags(monitor.Identity{Namespace: "default", Name: "cpu-high", UID: "6f1c-42"}) {
		tags = append(tags, tag)
	}
	f.api.Seed(id, map[string]interface{}{"name": "CPU high", "tags": tags})
}

func (f *reconcilerFixture) reconcile(op ChangeOperation, attempt int) ReconcileResult {
	return f.reconciler.Reconcile(context.Background(), ReconcileRequest{
		Name:      "cpu-high",
		Namespace: "default",
		Operation: op,
		Attempt:   attempt,
	})
}

func (f *reconcilerFixture) get(t *testing.T) *datadogv1.Monitor {
	t.Helper()
	m, err := f.client.GetMonitor(context.Background(), "cpu-high", "default")
	require.NoError(t, err)
	return m
}

func (f *reconcilerFixture) reasons(t *testing.T) []string {
	t.Helper()
	list, err := f.client.ListEvents(context.Background(), "default", "cpu-high")
	require.NoError(t, err)
	var reasons []string
	for _, e := range list {
		reasons = append(reasons, e.Reason)
	}
	return reasons
}

func TestMonitorReconciler_Create(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource())

	result := f.reconcile(OperationCreate, 0)
	require.NoError(t, result.Error)
	assert.False(t, result.Requeue)

	assert.Equal(t, []string{mock.MethodSearch, mock.MethodCreate}, f.api.Methods())
	assert.Equal(t, 1, f.api.Len())

	m := f.get(t)
	assert.True(t, controllerutil.ContainsFinalizer(m, datadogv1.MonitorFinalizer))
	raw, ok := m.CachedMonitorID()
	require.True(t, ok)
	assert.Equal(t, "1", raw)
	assert.Equal(t, datadogv1.MonitorStateSynced, m.Status.State)
	assert.Empty(t, m.Status.LastError)
	assert.Equal(t, m.Generation, m.Status.ObservedGeneration)
	assert.NotZero(t, m.Status.ObservedGeneration)
	require.NotNil(t, m.Status.LastReconcileTime)
	assert.True(t, m.Status.LastReconcileTime.Time.Equal(fixedNow))

	// The resource spec is passed through untouched
	assert.Equal(t, []interface{}{"team:sre"}, m.Spec["tags"])

	assert.Equal(t, []string{string(events.ReasonMonitorCreated)}, f.reasons(t))
}

func TestMonitorReconciler_LastReconcileTimeAdvances(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource())

	require.NoError(t, f.reconcile(OperationCreate, 0).Error)
	f.clock.Advance(5 * time.Minute)
	require.NoError(t, f.reconcile(OperationUpdate, 0).Error)

	m := f.get(t)
	require.NotNil(t, m.Status.LastReconcileTime)
	assert.True(t, m.Status.LastReconcileTime.Time.Equal(fixedNow.Add(5*time.Minute)))
}

func TestMonitorReconciler_UpdateWithCachedID(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource(withFinalizer, withCachedID(intstr.FromInt32(42))))
	f.seedOwned(42)

	result := f.reconcile(OperationUpdate, 0)
	require.NoError(t, result.Error)

	assert.Equal(t, []string{mock.MethodGet, mock.MethodUpdate}, f.api.Methods())
	assert.Equal(t, int64(42), f.api.Calls()[1].ID)

	m := f.get(t)
	raw, _ := m.CachedMonitorID()
	assert.Equal(t, "42", raw)
	assert.Equal(t, datadogv1.MonitorStateSynced, m.Status.State)
	assert.Equal(t, []string{string(events.ReasonMonitorUpdated)}, f.reasons(t))
}

func TestMonitorReconciler_StaleDeleteRequestIsUpdate(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource(withFinalizer, withCachedID(intstr.FromInt32(42))))
	f.seedOwned(42)

	result := f.reconcile(OperationDelete, 0)
	require.NoError(t, result.Error)

	assert.Equal(t, []string{mock.MethodGet, mock.MethodUpdate}, f.api.Methods())
	assert.Equal(t, 1, f.api.Len())
}

func TestMonitorReconciler_Rediscovered(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource(withFinalizer, withCachedID(intstr.FromInt32(99))))
	f.seedOwned(42)

	result := f.reconcile(OperationUpdate, 0)
	require.NoError(t, result.Error)

	assert.Equal(t, []string{mock.MethodGet, mock.MethodSearch, mock.MethodUpdate}, f.api.Methods())

	m := f.get(t)
	raw, _ := m.CachedMonitorID()
	assert.Equal(t, "42", raw)
	assert.ElementsMatch(t, []string{
		string(events.ReasonMonitorRediscovered),
		string(events.ReasonMonitorUpdated),
	}, f.reasons(t))
}

func TestMonitorReconciler_RetryableFailure(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource())
	f.api.FailNext(mock.MethodSearch, &datadog.APIError{StatusCode: 503, Errors: []string{"Service Unavailable"}})

	result := f.reconcile(OperationCreate, 3)
	require.Error(t, result.Error)
	assert.True(t, result.Requeue)
	assert.False(t, result.Fatal)
	assert.Equal(t, 8*time.Second, result.RequeueAfter)

	m := f.get(t)
	assert.Equal(t, datadogv1.MonitorStateError, m.Status.State)
	assert.Contains(t, m.Status.LastError, "Service Unavailable")
	assert.Zero(t, m.Status.ObservedGeneration)
	_, ok := m.CachedMonitorID()
	assert.False(t, ok)

	assert.Equal(t, []string{string(events.ReasonMonitorSyncFailed)}, f.reasons(t))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMonitorReconciler_LogsPreviousAttemptError(t *testing.T) {
	var out lockedBuffer
	logging.InitForCLI(logging.LevelInfo, &out)
	t.Cleanup(func() { logging.InitForCLI(logging.LevelInfo, io.Discard) })

	f := newFixture(t, nil, newMonitorResource())
	result := f.reconciler.Reconcile(context.Background(), ReconcileRequest{
		Name:      "cpu-high",
		Namespace: "default",
		Operation: OperationCreate,
		Attempt:   2,
		LastError: errors.New("search failed with api_key=0123456789abcdef0123456789abcdef"),
	})
	require.NoError(t, result.Error)

	logs := out.String()
	assert.Contains(t, logs, "previous attempt failed")
	assert.Contains(t, logs, "search failed")
	assert.NotContains(t, logs, "0123456789abcdef0123456789abcdef")
}

func TestMonitorReconciler_FatalFailure(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource(withFinalizer, withCachedID(intstr.FromString("garbage"))))

	result := f.reconcile(OperationUpdate, 0)
	require.Error(t, result.Error)
	assert.True(t, result.Fatal)
	assert.False(t, result.Requeue)
	assert.True(t, monitor.IsFatal(result.Error))

	m := f.get(t)
	assert.Equal(t, datadogv1.MonitorStateFailed, m.Status.State)
	assert.Contains(t, m.Status.LastError, monitor.StatusKey)
	assert.Equal(t, []string{string(events.ReasonMonitorFailed)}, f.reasons(t))
}

func TestMonitorReconciler_Delete(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource(deleting, withCachedID(intstr.FromInt32(42))))
	f.seedOwned(42)

	result := f.reconcile(OperationDelete, 0)
	require.NoError(t, result.Error)

	assert.Equal(t, []string{mock.MethodGet, mock.MethodDelete}, f.api.Methods())
	assert.Equal(t, 0, f.api.Len())

	// Removing the last finalizer lets the API server drop the object
	_, err := f.client.GetMonitor(context.Background(), "cpu-high", "default")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestMonitorReconciler_DeleteFailureKeepsFinalizer(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource(deleting, withCachedID(intstr.FromInt32(42))))
	f.seedOwned(42)
	f.api.FailNext(mock.MethodDelete, &datadog.APIError{StatusCode: 500, Errors: []string{"Internal Server Error"}})

	result := f.reconcile(OperationDelete, 0)
	require.Error(t, result.Error)
	assert.True(t, result.Requeue)
	assert.Equal(t, time.Second, result.RequeueAfter)

	m := f.get(t)
	assert.True(t, controllerutil.ContainsFinalizer(m, datadogv1.MonitorFinalizer))
	assert.Equal(t, datadogv1.MonitorStateError, m.Status.State)
	assert.Equal(t, 1, f.api.Len())
}

func TestMonitorReconciler_DeleteWithoutRemoteMonitor(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource(deleting))

	result := f.reconcile(OperationDelete, 0)
	require.NoError(t, result.Error)

	assert.Equal(t, []string{mock.MethodSearch}, f.api.Methods())
	_, err := f.client.GetMonitor(context.Background(), "cpu-high", "default")
	assert.True(t, apierrors.IsNotFound(err))
}

func TestMonitorReconciler_DeletingWithoutOurFinalizer(t *testing.T) {
	m := newMonitorResource()
	now := metav1.NewTime(fixedNow)
	m.DeletionTimestamp = &now
	m.Finalizers = []string{"example.com/other"}
	f := newFixture(t, nil, m)

	result := f.reconcile(OperationDelete, 0)
	require.NoError(t, result.Error)
	assert.Empty(t, f.api.Methods())
}

func TestMonitorReconciler_MissingResource(t *testing.T) {
	f := newFixture(t, nil)

	result := f.reconcile(OperationDelete, 0)
	require.NoError(t, result.Error)
	assert.False(t, result.Requeue)
	assert.Empty(t, f.api.Methods())
}

func TestMonitorReconciler_KubernetesErrorIsRetried(t *testing.T) {
	funcs := &interceptor.Funcs{
		Get: func(ctx context.Context, c client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
			if _, ok := obj.(*datadogv1.Monitor); ok {
				return apierrors.NewServiceUnavailable("apiserver restarting")
			}
			return c.Get(ctx, key, obj, opts...)
		},
	}
	f := newFixture(t, funcs, newMonitorResource())

	result := f.reconcile(OperationCreate, 2)
	require.Error(t, result.Error)
	assert.True(t, result.Requeue)
	assert.False(t, result.Fatal)
	assert.Equal(t, 4*time.Second, result.RequeueAfter)
	assert.Empty(t, f.api.Methods())
}

func TestMonitorReconciler_StatusConflictIsRetried(t *testing.T) {
	conflicts := 1
	funcs := &interceptor.Funcs{
		SubResourceUpdate: func(ctx context.Context, c client.Client, subResourceName string, obj client.Object, opts ...client.SubResourceUpdateOption) error {
			if conflicts > 0 {
				conflicts--
				return apierrors.NewConflict(schema.GroupResource{Group: "datadog.mzizzi", Resource: "monitors"}, obj.GetName(), errors.New("stale"))
			}
			return c.SubResource(subResourceName).Update(ctx, obj, opts...)
		},
	}
	f := newFixture(t, funcs, newMonitorResource(withFinalizer))

	result := f.reconcile(OperationCreate, 0)
	require.NoError(t, result.Error)

	m := f.get(t)
	raw, ok := m.CachedMonitorID()
	require.True(t, ok)
	assert.Equal(t, "1", raw)
	assert.Equal(t, 0, conflicts)
}

func TestMonitorReconciler_StatusSyncFailureIsCounted(t *testing.T) {
	funcs := &interceptor.Funcs{
		SubResourceUpdate: func(context.Context, client.Client, string, client.Object, ...client.SubResourceUpdateOption) error {
			return apierrors.NewForbidden(schema.GroupResource{Group: "datadog.mzizzi", Resource: "monitors"}, "cpu-high", errors.New("rbac"))
		},
	}
	f := newFixture(t, funcs, newMonitorResource(withFinalizer))
	metrics, _ := newTestMetrics(t)
	f.reconciler.WithMetrics(metrics)

	result := f.reconcile(OperationCreate, 0)

	// The Datadog side succeeded; the lost id is recovered by tag search next time
	require.NoError(t, result.Error)
	assert.Equal(t, float64(1), testutilValue(metrics))
}

func TestMonitorReconciler_EventsCarryInvolvedObject(t *testing.T) {
	f := newFixture(t, nil, newMonitorResource())

	require.NoError(t, f.reconcile(OperationCreate, 0).Error)

	list, err := f.client.ListEvents(context.Background(), "default", "cpu-high")
	require.NoError(t, err)
	require.Len(t, list, 1)

	e := list[0]
	assert.Equal(t, corev1.EventTypeNormal, e.Type)
	assert.Equal(t, datadogv1.MonitorKind, e.InvolvedObject.Kind)
	assert.Equal(t, "6f1c-42", string(e.InvolvedObject.UID))
	assert.Equal(t, "Created Datadog monitor 1 for default/cpu-high", e.Message)
}
