package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/devbot/internal/task"
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute one plan file end to end",
	Long: `Execute a single markdown plan: branch, iterate with the model,
commit, push, open a pull request, and write the implementation report.

Examples:
  # Run a plan
  devbot run ai-docs/add-auth.md

  # Run with an explicit config file
  devbot run --config devbot.yaml ai-docs/add-auth.md`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	planPath := filepath.ToSlash(args[0])

	// Fail fast on an obviously missing plan, before any collaborator
	// is constructed. The workflow re-checks through its own file
	// system rooted at the configured working tree.
	if _, err := os.Stat(args[0]); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("plan file not found: %s", planPath)
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	res, err := app.workflow.Run(ctx, planPath, planSlug(planPath), task.TriggerRun)
	if err != nil {
		return err
	}

	if res.PRURL != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "pull request: %s\n", res.PRURL)
	}
	if res.ReportPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", res.ReportPath)
	}
	if res.FinalizeErr != nil {
		return fmt.Errorf("task finished but finalize failed: %w", res.FinalizeErr)
	}
	return nil
}

// planSlug derives the task slug from the plan file name.
func planSlug(planPath string) string {
	base := filepath.Base(planPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
