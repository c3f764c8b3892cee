package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/devbot/internal/config"
	"github.com/fyrsmithlabs/devbot/internal/fsops"
	"github.com/fyrsmithlabs/devbot/internal/gitops"
	"github.com/fyrsmithlabs/devbot/internal/logging"
	"github.com/fyrsmithlabs/devbot/internal/model"
	"github.com/fyrsmithlabs/devbot/internal/task"
)

// app bundles the wired collaborators every subcommand needs.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	fs       fsops.FileSystem
	workflow *task.Workflow
}

// vcs satisfies task.VersionControl by combining the local git client
// with the GitHub pull-request client.
type vcs struct {
	*gitops.Client
	*gitops.PullRequester
}

// newApp loads config and wires the workflow. ctx is used for client
// construction only.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	fs := fsops.NewLocal(cfg.Agent.WorkDir, cfg.Agent.ExcludeDirs)

	git, err := gitops.New(gitops.Options{
		RepoPath:      cfg.Agent.WorkDir,
		DefaultBranch: cfg.Git.DefaultBranch,
		Remote:        cfg.Git.Remote,
		Token:         cfg.Git.Token,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	owner, name, err := cfg.RepoOwnerName()
	if err != nil {
		return nil, err
	}
	gh, err := gitops.NewGitHubClient(ctx, cfg.Git.Token)
	if err != nil {
		return nil, err
	}
	pulls := gitops.NewPullRequester(gh, owner, name, cfg.Git.DefaultBranch, logger)

	client, err := model.NewAnthropic(cfg.Model)
	if err != nil {
		return nil, err
	}

	reports := task.NewReportGenerator(fs, cfg.Agent.ReportsDir, cfg.Git.Repo)

	workflow := task.NewWorkflow(task.WorkflowOptions{
		FileSystem:     fs,
		VersionControl: vcs{Client: git, PullRequester: pulls},
		Model:          client,
		Reports:        reports,
		BranchPrefix:   cfg.Agent.BranchPrefix,
		MaxSteps:       cfg.Agent.MaxSteps,
		Logger:         logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		fs:       fs,
		workflow: workflow,
	}, nil
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.LevelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}
	logCfg := logging.NewDefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.Format
	return logging.NewLogger(logCfg)
}

// close flushes buffered log output.
func (a *app) close() {
	_ = a.logger.Sync()
}
