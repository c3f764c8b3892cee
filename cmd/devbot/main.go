// Package main implements the devbot CLI: run a plan directly, watch a
// plans directory, or serve the review-feedback webhook.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "devbot",
	Short: "Autonomous plan-to-pull-request coding agent",
	Long: `devbot reads a markdown implementation plan, drives a language model
through a read/write/list tool loop against the working tree, and turns
the result into a branch, a commit, a pull request, and an
implementation report.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}
