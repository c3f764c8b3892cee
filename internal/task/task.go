// Package task implements the orchestration engine: the dispatcher that
// executes parsed tool commands, the bounded conversation session, the
// plan-to-report workflow state machine, and the single-worker queue
// that serializes tasks against one working tree.
package task

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusInit          Status = "init"
	StatusBranched      Status = "branched"
	StatusIterating     Status = "iterating"
	StatusFinalizing    Status = "finalizing"
	StatusReportPending Status = "report_pending"
	StatusDone          Status = "done"
	StatusAborted       Status = "aborted"
)

// Abort reasons. Fatal to the task; PlanUnreadable and
// BranchCreationFailed occur before any model call.
var (
	ErrPlanUnreadable       = errors.New("plan unreadable")
	ErrBranchCreationFailed = errors.New("branch creation failed")
	ErrBranchCheckoutFailed = errors.New("branch checkout failed")
	ErrStepLimitExceeded    = errors.New("step limit exceeded")
)

// Trigger identifies what started a task.
type Trigger string

const (
	TriggerRun     Trigger = "run"
	TriggerWatcher Trigger = "watcher"
	TriggerWebhook Trigger = "webhook"
)

// Task is one end-to-end execution of a plan. Tasks are not persisted;
// the struct lives for the duration of the workflow run.
type Task struct {
	ID        string
	PlanPath  string
	Slug      string
	Branch    string
	StartTime time.Time
	Steps     int
	Status    Status
}

// Feedback is the input to a resumed workflow after a PR review
// requested changes. Ephemeral, never persisted.
type Feedback struct {
	Branch     string
	ReviewBody string
}

// ModelClient is the opaque completion capability the session drives.
type ModelClient interface {
	Complete(ctx context.Context, system string, transcript []protocol.Message) (string, error)
}

// VersionControl is the capability the workflow finalizes through.
type VersionControl interface {
	CreateBranch(ctx context.Context, name string) error
	CheckoutBranch(ctx context.Context, name string) error
	CommitAll(ctx context.Context, message string) error
	Push(ctx context.Context, branch string) error
	CreatePullRequest(ctx context.Context, branch, title, body string) (string, error)
}
