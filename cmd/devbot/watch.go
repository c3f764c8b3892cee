package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/task"
	"github.com/fyrsmithlabs/devbot/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the plans directory and run each new plan",
	Long: `Watch the configured plans directory. Every new markdown file becomes
a queued task, executed one at a time against the working tree.

Examples:
  devbot watch
  devbot watch --config devbot.yaml`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	w, err := watcher.New(app.cfg.Agent.WorkDir, app.cfg.Agent.PlansDir, app.cfg.Watcher.Debounce.Duration(), app.logger)
	if err != nil {
		return err
	}
	defer w.Stop()
	w.Start(ctx)

	queue := task.NewQueue(16, app.logger)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case plan := <-w.Plans():
				err := queue.Submit(task.Job{
					Name: "run:" + plan.Slug,
					Run: func(ctx context.Context) {
						if _, err := app.workflow.Run(ctx, plan.Path, plan.Slug, task.TriggerWatcher); err != nil {
							app.logger.Error(ctx, "task failed", zap.String("plan", plan.Path), zap.Error(err))
						}
					},
				})
				if err != nil {
					app.logger.Warn(ctx, "dropping plan", zap.String("plan", plan.Path), zap.Error(err))
				}
			}
		}
	}()

	queue.Run(ctx)
	return nil
}
