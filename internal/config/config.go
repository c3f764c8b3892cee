// Package config provides configuration loading for devbot.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root devbot configuration.
type Config struct {
	Agent   AgentConfig   `koanf:"agent"`
	Git     GitConfig     `koanf:"git"`
	Model   ModelConfig   `koanf:"model"`
	Server  ServerConfig  `koanf:"server"`
	Watcher WatcherConfig `koanf:"watcher"`
	Logging LoggingConfig `koanf:"logging"`
}

// AgentConfig controls the task orchestration engine.
type AgentConfig struct {
	// PlansDir is the directory watched for new plan files.
	PlansDir string `koanf:"plans_dir"`

	// ReportsDir is where implementation reports are written.
	ReportsDir string `koanf:"reports_dir"`

	// BranchPrefix prefixes every task branch name.
	BranchPrefix string `koanf:"branch_prefix"`

	// MaxSteps bounds the number of model turns per task.
	MaxSteps int `koanf:"max_steps"`

	// ExcludeDirs are directory names skipped at any depth when listing files.
	ExcludeDirs []string `koanf:"exclude_dirs"`

	// WorkDir is the working tree tasks execute against.
	WorkDir string `koanf:"work_dir"`
}

// GitConfig controls version-control collaborators.
type GitConfig struct {
	// DefaultBranch is branched from at task start.
	DefaultBranch string `koanf:"default_branch"`

	// Remote is the push target.
	Remote string `koanf:"remote"`

	// Repo is the GitHub repository in "owner/name" form.
	Repo string `koanf:"repo"`

	// Token authenticates pushes and PR creation.
	Token Secret `koanf:"token"`
}

// ModelConfig controls the language-model collaborator.
type ModelConfig struct {
	// Name is the Anthropic model identifier.
	Name string `koanf:"name"`

	// MaxTokens caps each completion.
	MaxTokens int `koanf:"max_tokens"`

	// APIKey authenticates against the Anthropic API.
	APIKey Secret `koanf:"api_key"`
}

// ServerConfig controls the webhook listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// WebhookSecret, when set, enables GitHub signature validation.
	WebhookSecret Secret `koanf:"webhook_secret"`

	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// WatcherConfig controls the plan directory watcher.
type WatcherConfig struct {
	// Debounce is how long to wait after a file-creation event before
	// starting the task, letting the writer finish.
	Debounce Duration `koanf:"debounce"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// RepoOwnerName splits Git.Repo into owner and name.
func (c *Config) RepoOwnerName() (string, string, error) {
	parts := strings.SplitN(c.Git.Repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("git.repo must be in owner/name form, got %q", c.Git.Repo)
	}
	return parts[0], parts[1], nil
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("model.max_tokens must be positive, got %d", c.Model.MaxTokens)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Git.Repo != "" {
		if _, _, err := c.RepoOwnerName(); err != nil {
			return err
		}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Agent.PlansDir == "" {
		cfg.Agent.PlansDir = "ai-docs"
	}
	if cfg.Agent.ReportsDir == "" {
		cfg.Agent.ReportsDir = "ai-plans"
	}
	if cfg.Agent.BranchPrefix == "" {
		cfg.Agent.BranchPrefix = "devbot"
	}
	if cfg.Agent.MaxSteps == 0 {
		cfg.Agent.MaxSteps = 15
	}
	if len(cfg.Agent.ExcludeDirs) == 0 {
		cfg.Agent.ExcludeDirs = []string{
			".git", "node_modules", "vendor", "__pycache__",
			".venv", ".pytest_cache", "dist", "target",
		}
	}
	if cfg.Agent.WorkDir == "" {
		cfg.Agent.WorkDir = "."
	}

	if cfg.Git.DefaultBranch == "" {
		cfg.Git.DefaultBranch = "main"
	}
	if cfg.Git.Remote == "" {
		cfg.Git.Remote = "origin"
	}

	if cfg.Model.Name == "" {
		cfg.Model.Name = "claude-3-5-sonnet-20240620"
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 4096
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Watcher.Debounce == 0 {
		cfg.Watcher.Debounce = Duration(time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
