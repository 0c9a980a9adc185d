package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	dogkopclient "github.com/giantswarm/dogkop/internal/client"
	"github.com/giantswarm/dogkop/internal/datadog"
	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// useFakeCluster points the client factory at a fake cluster holding objs.
func useFakeCluster(t *testing.T, objs ...client.Object) {
	t.Helper()
	c := dogkopclient.Wrap(fake.NewClientBuilder().
		WithScheme(dogkopclient.NewScheme()).
		WithObjects(objs...).
		WithStatusSubresource(&datadogv1.Monitor{}).
		Build())

	origClient, origNow := newMonitorClient, now
	newMonitorClient = func() (dogkopclient.MonitorClient, error) { return c, nil }
	now = func() time.Time { return testNow }
	t.Cleanup(func() {
		newMonitorClient = origClient
		now = origNow
	})
}

// useUnreachableCluster makes the client factory fail.
func useUnreachableCluster(t *testing.T) {
	t.Helper()
	orig := newMonitorClient
	newMonitorClient = func() (dogkopclient.MonitorClient, error) {
		return nil, errors.New("cluster unreachable")
	}
	t.Cleanup(func() { newMonitorClient = orig })
}

type stubSearcher struct {
	queries []string
	results []datadog.Monitor
	err     error
}

func (s *stubSearcher) SearchMonitors(_ context.Context, query string) ([]datadog.Monitor, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

func useSearcher(t *testing.T, s monitorSearcher) {
	t.Helper()
	orig := newMonitorSearcher
	newMonitorSearcher = func(string) (monitorSearcher, error) { return s, nil }
	t.Cleanup(func() { newMonitorSearcher = orig })
}

// execute runs cmd with args and returns its output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}
