package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/internal/store"
)

var (
	jobProduct  string
	jobInterval int
	jobUser     string
	jobStatus   string
	jobLimit    int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage recurring discovery jobs",
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Schedule a product for recurring discovery",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		product, err := st.GetProduct(ctx, jobProduct)
		if err != nil {
			return err
		}

		job := &model.BackgroundJob{
			UserID:          product.UserID,
			ProductID:       product.ID,
			IntervalMinutes: jobInterval,
		}
		if err := st.CreateJob(ctx, job); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), job.ID)
		return nil
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List background jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			UserID:    jobUser,
			ProductID: jobProduct,
			Status:    model.JobStatus(jobStatus),
			Limit:     jobLimit,
		})
		if err != nil {
			return err
		}
		return printJobs(cmd.OutOrStdout(), jobs)
	},
}

func printJobs(w io.Writer, jobs []model.BackgroundJob) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tSTATUS\tEVERY\tRUNS\tLAST RUN\tNEXT RUN\tERROR")
	for _, j := range jobs {
		last := "-"
		if j.LastRun != nil {
			last = j.LastRun.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			j.ID, j.ProductID, j.Status, j.Interval(), j.RunCount, last,
			j.NextRun.UTC().Format(time.RFC3339), clip(j.ErrorMessage, 60))
	}
	return tw.Flush()
}

// statusCmd builds a command that moves one job to status.
func statusCmd(use, short string, status model.JobStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <job-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			if err := st.SetJobStatus(ctx, args[0], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], status)
			return nil
		},
	}
}

func init() {
	jobsCreateCmd.Flags().StringVar(&jobProduct, "product", "", "product profile id")
	_ = jobsCreateCmd.MarkFlagRequired("product")
	jobsCreateCmd.Flags().IntVar(&jobInterval, "interval", 60, "minutes between runs")

	jobsListCmd.Flags().StringVar(&jobUser, "user", "", "filter by user id")
	jobsListCmd.Flags().StringVar(&jobProduct, "product", "", "filter by product id")
	jobsListCmd.Flags().StringVar(&jobStatus, "status", "", "filter by status (active, paused, stopped, error)")
	jobsListCmd.Flags().IntVar(&jobLimit, "limit", 100, "maximum jobs to list")

	jobsCmd.AddCommand(
		jobsCreateCmd,
		jobsListCmd,
		statusCmd("pause", "Pause a job", model.JobStatusPaused),
		statusCmd("resume", "Resume a paused or failed job", model.JobStatusActive),
		statusCmd("stop", "Stop a job permanently", model.JobStatusStopped),
	)
	rootCmd.AddCommand(jobsCmd)
}
