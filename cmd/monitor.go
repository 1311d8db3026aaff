package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-radar/internal/monitoring"
)

var monitorNotify bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Pipeline health checks",
}

var monitorCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Collect a health snapshot and evaluate alert thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		collector := monitoring.NewCollector(st)
		alerter := monitoring.NewAlerter(cfg.Monitoring)

		var (
			snap   *monitoring.MetricsSnapshot
			alerts []monitoring.Alert
		)
		if monitorNotify {
			snap, alerts, err = monitoring.NewChecker(collector, alerter, cfg.Monitoring).Check(ctx)
		} else {
			snap, err = collector.Collect(ctx, cfg.Monitoring.LookbackWindowHours)
			if err == nil {
				alerts = alerter.Evaluate(snap)
			}
		}
		if err != nil {
			return err
		}

		return writeJSON(cmd.OutOrStdout(), struct {
			Snapshot *monitoring.MetricsSnapshot `json:"snapshot"`
			Alerts   []monitoring.Alert          `json:"alerts"`
		}{snap, alerts})
	},
}

func init() {
	monitorCheckCmd.Flags().BoolVar(&monitorNotify, "notify", false, "send triggered alerts to the configured webhook")
	monitorCmd.AddCommand(monitorCheckCmd)
	rootCmd.AddCommand(monitorCmd)
}
