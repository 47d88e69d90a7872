package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"koboetl/internal/logging"
	"koboetl/internal/pipeline"
)

// DefaultSchedule reloads the table every six hours.
const DefaultSchedule = "0 */6 * * *"

func newScheduleCmd(g *globalFlags) *cobra.Command {
	var (
		cronExpr  string
		runAtBoot bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the load on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.load()
			if err != nil {
				return err
			}
			if err := lint(cmd.ErrOrStderr(), p); err != nil {
				return err
			}
			logger, restore, err := logging.Install(p.Logging.Level, p.Logging.Format)
			if err != nil {
				return err
			}
			defer restore()

			closeMetrics, err := setupMetrics(p)
			if err != nil {
				return err
			}
			defer closeMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			job := func() {
				// Failures are logged by runOnce; the next tick tries again.
				_, _ = runOnce(ctx, p, pipeline.Deps{})
			}

			c := cron.New(cron.WithChain(
				cron.Recover(cron.DefaultLogger),
				cron.SkipIfStillRunning(cron.DefaultLogger),
			))
			id, err := c.AddFunc(cronExpr, job)
			if err != nil {
				return err
			}
			entry := c.Entry(id)
			c.Start()
			logger.Info("scheduler started", zap.String("job", p.Job), zap.String("cron", cronExpr))
			if runAtBoot {
				// WrappedJob carries the chain, so a tick cannot overlap it.
				go entry.WrappedJob.Run()
			}

			<-ctx.Done()
			logger.Info("scheduler stopping; waiting for a running load")
			<-c.Stop().Done()
			return waitErr(ctx)
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", DefaultSchedule, "standard 5-field cron expression")
	cmd.Flags().BoolVar(&runAtBoot, "now", false, "also run once immediately")
	return cmd
}

// waitErr treats an interrupt as a clean shutdown.
func waitErr(ctx context.Context) error {
	if ctx.Err() == context.Canceled {
		return nil
	}
	return ctx.Err()
}
