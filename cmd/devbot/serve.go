package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/server"
	"github.com/fyrsmithlabs/devbot/internal/task"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the PR review webhook",
	Long: `Run the HTTP server that receives GitHub pull_request_review webhooks.
Reviews that request changes resume the task on its branch with the
review body as feedback.

Examples:
  devbot server
  devbot server --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	if servePort != 0 {
		app.cfg.Server.Port = servePort
	}

	queue := task.NewQueue(16, app.logger)

	srv, err := server.NewServer(app.cfg.Server, func(fb task.Feedback) error {
		return queue.Submit(task.Job{
			Name: "iterate:" + fb.Branch,
			Run: func(ctx context.Context) {
				if _, err := app.workflow.Iterate(ctx, fb, task.TriggerWebhook); err != nil {
					app.logger.Error(ctx, "iteration failed", zap.String("branch", fb.Branch), zap.Error(err))
				}
			},
		})
	}, app.logger)
	if err != nil {
		return err
	}

	go queue.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
