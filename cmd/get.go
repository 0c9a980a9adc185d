package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/duration"

	"github.com/giantswarm/dogkop/internal/formatting"
	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
)

type getOptions struct {
	namespace string
	output    string
	limit     int
}

// now is replaceable for deterministic ages in tests.
var now = time.Now

// newGetCmd creates the get command and its resource subcommands.
func newGetCmd() *cobra.Command {
	opts := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Display Monitor resources and their events",
		Long: `Display Monitor resources and the Kubernetes Events the operator recorded for them.

Examples:
  # List Monitors in all namespaces
  dogkop get monitors

  # Show one Monitor as YAML
  dogkop get monitors cpu-high -n monitoring -o yaml

  # Show recent events of a Monitor
  dogkop get events cpu-high -n monitoring`,
	}

	cmd.PersistentFlags().StringVarP(&opts.namespace, "namespace", "n", "", "Namespace (default: all namespaces)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format: table, wide, json, yaml")

	monitorsCmd := &cobra.Command{
		Use:     "monitors [NAME]",
		Aliases: []string{"monitor", "ddm"},
		Short:   "List Monitors with their Datadog id and sync state",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGetMonitors(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	eventsCmd := &cobra.Command{
		Use:     "events [MONITOR]",
		Aliases: []string{"event"},
		Short:   "List Kubernetes Events recorded by the operator",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGetEvents(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}
	eventsCmd.Flags().IntVar(&opts.limit, "limit", 50, "Maximum number of events to show, 0 for all")

	cmd.AddCommand(monitorsCmd, eventsCmd)
	return cmd
}

func runGetMonitors(ctx context.Context, out io.Writer, opts *getOptions, args []string) error {
	format, err := formatting.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := newMonitorClient()
	if err != nil {
		return err
	}

	var monitors []datadogv1.Monitor
	if len(args) == 1 {
		namespace := opts.namespace
		if namespace == "" {
			namespace = "default"
		}
		m, err := c.GetMonitor(ctx, args[0], namespace)
		if err != nil {
			return err
		}
		monitors = []datadogv1.Monitor{*m}
	} else {
		monitors, err = c.ListMonitors(ctx, opts.namespace)
		if err != nil {
			return err
		}
	}

	for i := range monitors {
		monitors[i].APIVersion = datadogv1.GroupVersion.String()
		monitors[i].Kind = datadogv1.MonitorKind
	}

	if !format.IsTable() {
		if len(args) == 1 {
			return formatting.Encode(out, format, monitors[0])
		}
		return formatting.Encode(out, format, datadogv1.MonitorList{
			TypeMeta: metav1.TypeMeta{
				APIVersion: datadogv1.GroupVersion.String(),
				Kind:       datadogv1.MonitorKind + "List",
			},
			Items: monitors,
		})
	}

	if len(monitors) == 0 {
		formatting.PrintEmpty(out, "No Monitors found")
		return nil
	}

	headers := []string{"NAMESPACE", "NAME", "DATADOG ID", "STATE", "AGE"}
	if format == formatting.FormatWide {
		headers = append(headers, "OBSERVED GEN", "LAST RECONCILE", "LAST ERROR")
	}
	t := formatting.NewTable(out, headers...)
	for _, m := range monitors {
		id, ok := m.CachedMonitorID()
		if !ok {
			id = "-"
		}
		row := []interface{}{
			m.Namespace,
			m.Name,
			id,
			formatting.Colorize(string(m.Status.State)),
			age(m.CreationTimestamp.Time),
		}
		if format == formatting.FormatWide {
			lastReconcile := "-"
			if m.Status.LastReconcileTime != nil {
				lastReconcile = age(m.Status.LastReconcileTime.Time)
			}
			lastError := "-"
			if m.Status.LastError != "" {
				lastError = formatting.Truncate(m.Status.LastError)
			}
			row = append(row, strconv.FormatInt(m.Status.ObservedGeneration, 10), lastReconcile, lastError)
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

func runGetEvents(ctx context.Context, out io.Writer, opts *getOptions, args []string) error {
	format, err := formatting.ParseFormat(opts.output)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := newMonitorClient()
	if err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	}
	events, err := c.ListEvents(ctx, opts.namespace, name)
	if err != nil {
		return err
	}
	if opts.limit > 0 && len(events) > opts.limit {
		events = events[:opts.limit]
	}

	if !format.IsTable() {
		return formatting.Encode(out, format, events)
	}

	if len(events) == 0 {
		formatting.PrintEmpty(out, "No events found")
		return nil
	}

	t := formatting.NewTable(out, "LAST SEEN", "TYPE", "REASON", "OBJECT", "MESSAGE")
	for _, e := range events {
		t.AppendRow([]interface{}{
			age(eventTime(e)),
			formatting.Colorize(e.Type),
			e.Reason,
			e.InvolvedObject.Namespace + "/" + e.InvolvedObject.Name,
			formatting.Truncate(e.Message),
		})
	}
	t.Render()
	return nil
}

func eventTime(e corev1.Event) time.Time {
	if !e.LastTimestamp.IsZero() {
		return e.LastTimestamp.Time
	}
	if !e.FirstTimestamp.IsZero() {
		return e.FirstTimestamp.Time
	}
	return e.CreationTimestamp.Time
}

func age(t time.Time) string {
	if t.IsZero() {
		return "<unknown>"
	}
	return duration.HumanDuration(now().Sub(t))
}

func fmtCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
