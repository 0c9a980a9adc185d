package cmd

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/dogkop/internal/datadog"
	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
)

const cpuHighQuery = "tag:kubernetes.resource.uid:uid-cpu-high tag:kubernetes.namespace:default tag:kubernetes.resource.name:cpu-high"

func TestLookup_ReadsUIDFromCluster(t *testing.T) {
	useFakeCluster(t, testMonitor("default", "cpu-high", 20, datadogv1.MonitorStateSynced))
	searcher := &stubSearcher{results: []datadog.Monitor{
		{ID: 10, Name: "cpu high (old)"},
		{ID: 20, Name: "cpu high"},
	}}
	useSearcher(t, searcher)

	out, err := execute(t, newLookupCmd(), "default/cpu-high")
	require.NoError(t, err)

	assert.Equal(t, []string{cpuHighQuery}, searcher.queries)
	assert.Contains(t, out, "Query: "+cpuHighQuery)
	assert.Contains(t, out, "duplicate")
	assert.Contains(t, out, "2 monitors found")
}

func TestLookup_WithUIDSkipsCluster(t *testing.T) {
	useUnreachableCluster(t)
	searcher := &stubSearcher{results: []datadog.Monitor{{ID: 7, Name: "orphan"}}}
	useSearcher(t, searcher)

	out, err := execute(t, newLookupCmd(), "default/cpu-high", "--uid", "uid-cpu-high", "-o", "json")
	require.NoError(t, err)

	var result LookupResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "uid-cpu-high", result.UID)
	assert.Equal(t, cpuHighQuery, result.Query)
	assert.Empty(t, result.CachedID)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, int64(7), result.Candidates[0].ID)
}

func TestLookup_CandidatesOrderedByID(t *testing.T) {
	useSearcher(t, &stubSearcher{results: []datadog.Monitor{{ID: 30}, {ID: 10}, {ID: 20}}})

	out, err := execute(t, newLookupCmd(), "default/cpu-high", "--uid", "uid-cpu-high", "-o", "json")
	require.NoError(t, err)

	var result LookupResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Candidates, 3)
	assert.Equal(t, int64(10), result.Candidates[0].ID)
	assert.Equal(t, int64(30), result.Candidates[2].ID)
}

func TestLookup_NoCandidates(t *testing.T) {
	useSearcher(t, &stubSearcher{})

	out, err := execute(t, newLookupCmd(), "default/cpu-high", "--uid", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "No Datadog monitors carry these tags")

	out, err = execute(t, newLookupCmd(), "default/cpu-high", "--uid", "u1", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"candidates": []`)
}

func TestLookup_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		setup   func(t *testing.T)
		wantErr string
	}{
		{
			name:    "bad reference",
			args:    []string{"cpu-high", "--uid", "u1"},
			setup:   func(t *testing.T) { useSearcher(t, &stubSearcher{}) },
			wantErr: "expected NAMESPACE/NAME",
		},
		{
			name:    "search failure",
			args:    []string{"default/cpu-high", "--uid", "u1"},
			setup:   func(t *testing.T) { useSearcher(t, &stubSearcher{err: errors.New("status 503")}) },
			wantErr: "datadog search failed",
		},
		{
			name: "missing resource",
			args: []string{"default/missing"},
			setup: func(t *testing.T) {
				useFakeCluster(t)
				useSearcher(t, &stubSearcher{})
			},
			wantErr: "not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			_, err := execute(t, newLookupCmd(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
