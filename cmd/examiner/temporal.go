package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/activity"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/worker"
	pkgactivity "github.com/Sujitsarkar6112/AI-Examiner/pkg/activity"
	"github.com/Sujitsarkar6112/AI-Examiner/pkg/events"
)

func (c *cli) workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker that executes evaluation workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			oracle, closeOracle, err := c.oracle(ctx)
			if err != nil {
				return err
			}
			defer closeOracle()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore(st)

			tc, err := worker.Dial(c.cfg.Temporal.HostPort, c.cfg.Temporal.Namespace)
			if err != nil {
				return err
			}
			defer tc.Close()

			acts := activity.NewActivities(
				pkgactivity.NewBaseActivities(events.NewLogSink(slog.Default())),
				c.newService(oracle, st),
				c.newEvaluator(oracle),
				st,
			)
			return worker.Run(ctx, tc, c.cfg.Temporal.TaskQueue, acts)
		},
	}
}

func (c *cli) submitCmd() *cobra.Command {
	var (
		in     requestFlags
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an evaluation workflow and wait for its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := in.request()
			if err != nil {
				return err
			}

			tc, err := worker.Dial(c.cfg.Temporal.HostPort, c.cfg.Temporal.Namespace)
			if err != nil {
				return err
			}
			defer tc.Close()

			res, err := worker.Submit(cmd.Context(), tc, c.cfg.Temporal.TaskQueue, req, c.cfg.Grading.Timeout)
			if err != nil {
				return err
			}
			slog.Info("evaluation complete", "evaluation_id", res.ID, "score", res.Report.ScoreLabel())
			return printMarkdown(cmd.OutOrStdout(), res.Markdown, pretty)
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Render the report for the terminal")
	return cmd
}
