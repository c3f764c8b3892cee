// Package gitops provides the version-control collaborator for task
// workflows: branching, committing and pushing through go-git, and
// pull-request creation through the GitHub API.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"time"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/config"
	"github.com/fyrsmithlabs/devbot/internal/logging"
)

// ErrNotRepository indicates the working tree is not a git repository.
var ErrNotRepository = errors.New("not a git repository")

// Committer identity used for task commits.
const (
	committerName  = "devbot"
	committerEmail = "devbot@fyrsmithlabs.dev"
)

// Options configures a Client.
type Options struct {
	// RepoPath is the working tree the client operates on.
	RepoPath string

	// DefaultBranch is branched from at task start.
	DefaultBranch string

	// Remote is the push target.
	Remote string

	// Token authenticates pushes. Optional for local-only use.
	Token config.Secret

	Logger *logging.Logger
}

// Client implements branch/commit/push against one working tree.
type Client struct {
	repo          *git.Repository
	defaultBranch string
	remote        string
	token         config.Secret
	logger        *logging.Logger
}

// New opens the repository at opts.RepoPath.
func New(opts Options) (*Client, error) {
	repo, err := git.PlainOpen(opts.RepoPath)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, opts.RepoPath)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Client{
		repo:          repo,
		defaultBranch: opts.DefaultBranch,
		remote:        opts.Remote,
		token:         opts.Token,
		logger:        logger.Named("gitops"),
	}, nil
}

// CreateBranch checks out the default branch, brings it up to date, then
// creates and checks out the named branch.
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	wt, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(c.defaultBranch),
	}); err != nil {
		return fmt.Errorf("checking out %s: %w", c.defaultBranch, err)
	}

	c.pull(ctx, wt, c.defaultBranch)

	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	}); err != nil {
		return fmt.Errorf("creating branch %s: %w", name, err)
	}

	c.logger.Info(ctx, "switched to new branch", zap.String("branch", name))
	return nil
}

// CheckoutBranch checks out an existing branch and brings it up to date.
func (c *Client) CheckoutBranch(ctx context.Context, name string) error {
	wt, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
	}); err != nil {
		return fmt.Errorf("checking out %s: %w", name, err)
	}

	c.pull(ctx, wt, name)

	c.logger.Info(ctx, "checked out branch", zap.String("branch", name))
	return nil
}

// CommitAll stages every working-tree change and commits it.
func (c *Client) CommitAll(ctx context.Context, message string) error {
	wt, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging changes: %w", err)
	}

	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	c.logger.Info(ctx, "committed changes", zap.String("message", message))
	return nil
}

// Push pushes the branch to the remote and records upstream tracking.
func (c *Client) Push(ctx context.Context, branch string) error {
	refSpec := gitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))

	err := c.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: c.remote,
		RefSpecs:   []gitcfg.RefSpec{refSpec},
		Auth:       c.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing %s: %w", branch, err)
	}

	// Record upstream tracking so later pulls on the branch resolve.
	err = c.repo.CreateBranch(&gitcfg.Branch{
		Name:   branch,
		Remote: c.remote,
		Merge:  plumbing.NewBranchReferenceName(branch),
	})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		c.logger.Warn(ctx, "recording upstream tracking failed",
			zap.String("branch", branch), zap.Error(err))
	}

	c.logger.Info(ctx, "pushed branch", zap.String("branch", branch))
	return nil
}

// pull brings branch up to date from the remote. Failures are logged and
// tolerated: a missing or unreachable remote must not block local-only
// task runs, and branch creation errors remain the fatal signal.
func (c *Client) pull(ctx context.Context, wt *git.Worktree, branch string) {
	err := wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    c.remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		Auth:          c.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		c.logger.Warn(ctx, "pull failed, continuing with local state",
			zap.String("branch", branch), zap.Error(err))
	}
}

// auth returns token auth for the remote, or nil when no token is set.
func (c *Client) auth() *githttp.BasicAuth {
	if !c.token.IsSet() {
		return nil
	}
	// GitHub accepts any username when a token is supplied as password.
	return &githttp.BasicAuth{Username: committerName, Password: c.token.Value()}
}
