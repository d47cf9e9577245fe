package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/probe"
)

func newRootCmd() *cobra.Command {
	var apiBase string
	defaultBase := os.Getenv("API_BASE")
	if defaultBase == "" {
		defaultBase = "http://localhost:8080"
	}

	root := &cobra.Command{
		Use:           "sitewatch",
		Short:         "Command line client for the sitewatch API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", defaultBase, "API base URL (env API_BASE)")
	client := func() *apiClient { return newAPIClient(apiBase) }

	targets := &cobra.Command{
		Use:   "targets",
		Short: "Manage monitored targets",
	}
	targets.AddCommand(
		listTargetsCmd(client),
		addTargetCmd(client),
		removeTargetCmd(client),
		checkTargetCmd(client),
	)
	root.AddCommand(targets, logsCmd(client), checkURLCmd(client), resumeCmd(client))
	return root
}

func listTargetsCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List targets with their last status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Targets []domain.Target `json:"targets"`
			}
			if err := client().do(cmd.Context(), "GET", "/api/targets", nil, &out); err != nil {
				return err
			}
			rows := make([]table.Row, 0, len(out.Targets))
			for _, t := range out.Targets {
				rows = append(rows, table.Row{t.ID, t.URL, fmt.Sprintf("%ds", t.IntervalSeconds), t.DisplayStatus(), formatTime(t.LastCheckedAt)})
			}
			renderTable(cmd.OutOrStdout(), table.Row{"ID", "URL", "Interval", "Status", "Last checked"}, rows)
			return nil
		},
	}
}

func addTargetCmd(client func() *apiClient) *cobra.Command {
	var interval int
	var quiet bool
	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Start monitoring a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"url":              withScheme(args[0]),
				"interval_seconds": interval,
				"notify_on_change": !quiet,
			}
			var out struct {
				Target domain.Target `json:"target"`
			}
			if err := client().do(cmd.Context(), "POST", "/api/targets", body, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) every %ds\n", out.Target.URL, out.Target.ID, out.Target.IntervalSeconds)
			return nil
		},
	}
	cmd.Flags().IntVarP(&interval, "interval", "i", domain.DefaultIntervalSeconds, "check interval in seconds (minimum 10)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "do not notify on status changes")
	return cmd
}

func removeTargetCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"remove"},
		Short:   "Stop monitoring a target",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().do(cmd.Context(), "DELETE", "/api/targets/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Removed", args[0])
			return nil
		},
	}
}

func checkTargetCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "check ID",
		Short: "Check a registered target now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Result domain.CheckResult `json:"result"`
			}
			if err := client().do(cmd.Context(), "POST", "/api/targets/"+args[0]+"/check", nil, &out); err != nil {
				return err
			}
			r := out.Result
			renderTable(cmd.OutOrStdout(), table.Row{"URL", "Status", "Code", "Latency"},
				[]table.Row{{r.URL, r.Status, r.HTTPCode, formatLatency(r.LatencyMS)}})
			return nil
		},
	}
}

func logsCmd(client func() *apiClient) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent check results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Logs []domain.CheckResult `json:"logs"`
			}
			if err := client().do(cmd.Context(), "GET", "/api/logs", nil, &out); err != nil {
				return err
			}
			logs := out.Logs
			if limit > 0 && len(logs) > limit {
				logs = logs[len(logs)-limit:]
			}
			rows := make([]table.Row, 0, len(logs))
			// newest first, like the dashboard
			for i := len(logs) - 1; i >= 0; i-- {
				l := logs[i]
				manual := ""
				if l.Manual {
					manual = "yes"
				}
				rows = append(rows, table.Row{l.CheckedAt.Local().Format(time.DateTime), l.URL, l.Status, l.HTTPCode, formatLatency(l.LatencyMS), manual})
			}
			renderTable(cmd.OutOrStdout(), table.Row{"Time", "URL", "Status", "Code", "Latency", "Manual"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries to show (0 = all)")
	return cmd
}

func checkURLCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "check URL",
		Short: "Check any URL once without registering it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Status    domain.Status    `json:"status"`
				Code      int              `json:"code"`
				LatencyMS float64          `json:"latency_ms"`
				Reason    string           `json:"reason"`
				DNS       *probe.DNSStatus `json:"dns"`
			}
			if err := client().do(cmd.Context(), "GET", checkPath(withScheme(args[0])), nil, &out); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s  code=%d  latency=%s\n", out.Status, out.Code, formatLatency(out.LatencyMS))
			if out.Reason != "" {
				fmt.Fprintln(w, "reason:", out.Reason)
			}
			if out.DNS != nil {
				fmt.Fprintf(w, "dns: %s (%s)\n", out.DNS.Class, out.DNS.Domain)
			}
			return nil
		},
	}
}

func resumeCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Check every target immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Triggered int `json:"triggered"`
			}
			if err := client().do(cmd.Context(), "POST", "/api/resume", nil, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Triggered %d checks\n", out.Triggered)
			return nil
		},
	}
}

func renderTable(w io.Writer, header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}

func formatLatency(ms float64) string {
	return fmt.Sprintf("%.0f ms", ms)
}
