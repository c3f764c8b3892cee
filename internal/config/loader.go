package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// envPrefix namespaces devbot environment variables.
const envPrefix = "DEVBOT_"

// Load loads configuration from an optional YAML file, then overrides
// with environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DEVBOT_GIT_TOKEN, DEVBOT_SERVER_PORT, ...)
//  2. YAML config file (configPath; skipped when empty or absent)
//  3. Hardcoded defaults
//
// Environment variable mapping splits on the first underscore after the
// prefix: DEVBOT_GIT_DEFAULT_BRANCH -> git.default_branch.
//
// The conventional secrets ANTHROPIC_API_KEY, GITHUB_TOKEN and REPO_NAME
// are honored as fallbacks when the namespaced forms are unset.
//
// Load is the single configuration entry point: it is called once at
// process start and returns an error rather than failing as a side
// effect of being referenced.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			f, err := os.Open(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to open config file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return nil, fmt.Errorf("failed to stat config file: %w", err)
			}
			if info.Size() > maxConfigFileSize {
				return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
			}

			content, err := io.ReadAll(f)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	// Override with environment variables.
	// DEVBOT_GIT_TOKEN -> git.token, DEVBOT_AGENT_MAX_STEPS -> agent.max_steps
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyConventionalEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyConventionalEnv fills secrets from the conventional un-namespaced
// variables when the namespaced forms did not set them.
func applyConventionalEnv(cfg *Config) {
	if !cfg.Model.APIKey.IsSet() {
		cfg.Model.APIKey = Secret(os.Getenv("ANTHROPIC_API_KEY"))
	}
	if !cfg.Git.Token.IsSet() {
		cfg.Git.Token = Secret(os.Getenv("GITHUB_TOKEN"))
	}
	if cfg.Git.Repo == "" {
		cfg.Git.Repo = os.Getenv("REPO_NAME")
	}
}
