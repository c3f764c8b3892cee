package gitops

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/devbot/internal/config"
	"github.com/fyrsmithlabs/devbot/internal/logging"
)

// PullRequester creates pull requests against one GitHub repository.
type PullRequester struct {
	gh     *github.Client
	owner  string
	name   string
	base   string
	logger *logging.Logger
}

// NewGitHubClient creates an authenticated GitHub API client.
func NewGitHubClient(ctx context.Context, token config.Secret) (*github.Client, error) {
	if !token.IsSet() {
		return nil, fmt.Errorf("GitHub token not set")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc), nil
}

// NewPullRequester wraps a GitHub client for the owner/name repository,
// opening pull requests against the base branch.
func NewPullRequester(gh *github.Client, owner, name, base string, logger *logging.Logger) *PullRequester {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PullRequester{
		gh:     gh,
		owner:  owner,
		name:   name,
		base:   base,
		logger: logger.Named("github"),
	}
}

// CreatePullRequest opens a pull request from branch into the base
// branch and returns its URL.
func (p *PullRequester) CreatePullRequest(ctx context.Context, branch, title, body string) (string, error) {
	pr, _, err := p.gh.PullRequests.Create(ctx, p.owner, p.name, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branch),
		Base:  github.String(p.base),
		Body:  github.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("creating pull request for %s: %w", branch, err)
	}

	p.logger.Info(ctx, "pull request created",
		zap.String("branch", branch),
		zap.String("url", pr.GetHTMLURL()),
	)
	return pr.GetHTMLURL(), nil
}
