package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/dogkop/internal/datadog"
	"github.com/giantswarm/dogkop/internal/formatting"
	"github.com/giantswarm/dogkop/internal/monitor"
)

type lookupOptions struct {
	uid        string
	output     string
	configPath string
}

// LookupResult is the structured output of the lookup command.
type LookupResult struct {
	Namespace  string            `json:"namespace"`
	Name       string            `json:"name"`
	UID        string            `json:"uid"`
	Query      string            `json:"query"`
	CachedID   string            `json:"cachedId,omitempty"`
	Candidates []datadog.Monitor `json:"candidates"`
}

// newLookupCmd creates the command that searches Datadog by identity tags.
func newLookupCmd() *cobra.Command {
	opts := &lookupOptions{}

	cmd := &cobra.Command{
		Use:   "lookup NAMESPACE/NAME",
		Short: "Find the Datadog monitors tagged with a Monitor's identity",
		Long: `Searches Datadog for monitors carrying the identity tags of a Monitor resource:

  kubernetes.resource.uid:<uid>
  kubernetes.namespace:<namespace>
  kubernetes.resource.name:<name>

Without --uid the resource is read from the cluster to find its uid and cached
monitor id. With --uid no cluster access is needed, which allows looking up
monitors of resources that no longer exist.

More than one candidate means duplicates exist; the operator manages the cached
one, or the match with the lowest id, and leaves the others untouched. lookup never modifies anything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd.Context(), cmd.OutOrStdout(), opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.uid, "uid", "", "Resource uid, skips reading the Monitor from the cluster")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table, json, yaml")
	cmd.Flags().StringVar(&opts.configPath, "config-path", "", "Configuration directory containing config.yaml (default ~/.config/dogkop)")
	return cmd
}

func runLookup(ctx context.Context, out io.Writer, opts *lookupOptions, ref string) error {
	format, err := formatting.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	namespace, name, ok := strings.Cut(ref, "/")
	if !ok || namespace == "" || name == "" {
		return fmt.Errorf("expected NAMESPACE/NAME, got %q", ref)
	}

	result := LookupResult{Namespace: namespace, Name: name, UID: opts.uid}
	if result.UID == "" {
		c, err := newMonitorClient()
		if err != nil {
			return err
		}
		m, err := c.GetMonitor(ctx, name, namespace)
		if err != nil {
			return err
		}
		result.UID = string(m.UID)
		result.CachedID, _ = m.CachedMonitorID()
	}

	searcher, err := newMonitorSearcher(resolveConfigPath(opts.configPath))
	if err != nil {
		return err
	}

	tags := monitor.IdentityTags(monitor.Identity{Namespace: namespace, Name: name, UID: result.UID})
	result.Query = monitor.SearchQuery(tags)
	result.Candidates, err = searcher.SearchMonitors(ctx, result.Query)
	if err != nil {
		return fmt.Errorf("datadog search failed: %w", err)
	}
	if result.Candidates == nil {
		result.Candidates = []datadog.Monitor{}
	}
	sort.SliceStable(result.Candidates, func(i, j int) bool { return result.Candidates[i].ID < result.Candidates[j].ID })

	if !format.IsTable() {
		return formatting.Encode(out, format, result)
	}

	fmt.Fprintf(out, "Query: %s\n", result.Query)
	if len(result.Candidates) == 0 {
		formatting.PrintEmpty(out, "No Datadog monitors carry these tags")
		return nil
	}

	// A verified cached id wins; otherwise the operator adopts the lowest id
	managedIdx := 0
	for i, m := range result.Candidates {
		if strconv.FormatInt(m.ID, 10) == result.CachedID {
			managedIdx = i
			break
		}
	}

	t := formatting.NewTable(out, "ID", "NAME", "CACHED", "MANAGED")
	for i, m := range result.Candidates {
		id := strconv.FormatInt(m.ID, 10)
		cached := ""
		if id == result.CachedID {
			cached = "yes"
		}
		managed := "duplicate"
		if i == managedIdx {
			managed = "yes"
		}
		t.AppendRow([]interface{}{id, formatting.Truncate(m.Name), cached, managed})
	}
	t.Render()

	fmt.Fprintf(out, "%s found\n", fmtCount(len(result.Candidates), "monitor"))
	return nil
}
