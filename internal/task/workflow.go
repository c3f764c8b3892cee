package task

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/fsops"
	"github.com/fyrsmithlabs/devbot/internal/logging"
	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

// WorkflowOptions configures a Workflow.
type WorkflowOptions struct {
	FileSystem     fsops.FileSystem
	VersionControl VersionControl
	Model          ModelClient
	Reports        *ReportGenerator

	// BranchPrefix prefixes task branch names.
	BranchPrefix string

	// MaxSteps bounds model turns per task.
	MaxSteps int

	Logger *logging.Logger
}

// Workflow drives one task at a time from plan ingestion to report
// emission. Construct once and reuse; every run gets a fresh session
// and tracker. Workflows are not safe for concurrent runs against the
// same working tree; serialize through a Queue.
type Workflow struct {
	fs      fsops.FileSystem
	vc      VersionControl
	model   ModelClient
	reports *ReportGenerator
	prefix  string
	steps   int
	logger  *logging.Logger
	metrics *Metrics

	// now is swappable for deterministic branch names in tests.
	now func() time.Time
}

// NewWorkflow wires a workflow from its collaborators.
func NewWorkflow(opts WorkflowOptions) *Workflow {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{
		fs:      opts.FileSystem,
		vc:      opts.VersionControl,
		model:   opts.Model,
		reports: opts.Reports,
		prefix:  opts.BranchPrefix,
		steps:   opts.MaxSteps,
		logger:  logger.Named("workflow"),
		metrics: NewMetrics(),
		now:     time.Now,
	}
}

// Result reports a finished run. FinalizeErr carries a swallowed
// commit/push/PR failure: the report is still emitted (documented
// optimistic-reporting policy), but callers can exit non-zero on it.
type Result struct {
	Task        Task
	PRURL       string
	ReportPath  string
	FinalizeErr error
}

// BranchName derives the deterministic task branch name. Two tasks with
// the same slug started within one second collide; callers that need
// stronger uniqueness must vary the slug.
func BranchName(prefix, slug string, when time.Time) string {
	return fmt.Sprintf("%s/%s-%d", prefix, slug, when.Unix())
}

// Run executes one plan end to end.
func (w *Workflow) Run(ctx context.Context, planPath, slug string, trigger Trigger) (*Result, error) {
	w.metrics.TasksStarted.WithLabelValues(string(trigger)).Inc()

	t := Task{
		ID:        uuid.NewString(),
		PlanPath:  planPath,
		Slug:      slug,
		StartTime: w.now(),
		Status:    StatusInit,
	}
	ctx = logging.WithTaskID(ctx, t.ID)
	w.logger.Info(ctx, "starting task", zap.String("plan", planPath), zap.String("slug", slug))

	plan, err := w.fs.Read(planPath)
	if err != nil {
		return w.abort(ctx, &t, fmt.Errorf("%w: %s: %v", ErrPlanUnreadable, planPath, err))
	}

	t.Branch = BranchName(w.prefix, slug, t.StartTime)
	ctx = logging.WithBranch(ctx, t.Branch)
	if err := w.vc.CreateBranch(ctx, t.Branch); err != nil {
		return w.abort(ctx, &t, fmt.Errorf("%w: %v", ErrBranchCreationFailed, err))
	}
	t.Status = StatusBranched

	return w.iterate(ctx, &t, planSeed(plan), plan)
}

// Iterate resumes work on an existing branch after review feedback. It
// re-enters the same iterating and finalizing behavior as a normal run,
// with a fresh transcript seeded from the review body. The review body
// doubles as the PR-body fallback for this iteration.
func (w *Workflow) Iterate(ctx context.Context, fb Feedback, trigger Trigger) (*Result, error) {
	w.metrics.TasksStarted.WithLabelValues(string(trigger)).Inc()

	t := Task{
		ID:        uuid.NewString(),
		Slug:      path.Base(fb.Branch),
		Branch:    fb.Branch,
		StartTime: w.now(),
		Status:    StatusInit,
	}
	ctx = logging.WithTaskID(ctx, t.ID)
	ctx = logging.WithBranch(ctx, t.Branch)
	w.logger.Info(ctx, "iterating on feedback", zap.String("branch", fb.Branch))

	if err := w.vc.CheckoutBranch(ctx, fb.Branch); err != nil {
		return w.abort(ctx, &t, fmt.Errorf("%w: %v", ErrBranchCheckoutFailed, err))
	}
	t.Status = StatusBranched

	return w.iterate(ctx, &t, feedbackSeed(fb.ReviewBody), fb.ReviewBody)
}

// iterate runs the conversation loop, then finalize and report.
// bodyFallback becomes the PR body when DONE carries no payload.
func (w *Workflow) iterate(ctx context.Context, t *Task, seed, bodyFallback string) (*Result, error) {
	tracker := NewMutationTracker(w.fs)
	dispatcher := NewDispatcher(w.fs, tracker, w.logger)
	session := NewSession(w.model, dispatcher, w.steps, w.logger)
	session.Seed(seed)

	t.Status = StatusIterating

	var done *protocol.Command
	for !session.Exhausted() {
		cmd, err := session.Advance(ctx)
		if err != nil {
			t.Steps = session.Steps()
			return w.abort(ctx, t, err)
		}
		if cmd != nil {
			done = cmd
			break
		}
	}
	t.Steps = session.Steps()
	w.metrics.TaskTurns.Observe(float64(t.Steps))

	if done == nil {
		// Safety valve against runaway loops: no PR, no report.
		return w.abort(ctx, t, ErrStepLimitExceeded)
	}

	result := &Result{}
	t.Status = StatusFinalizing
	result.PRURL, result.FinalizeErr = w.finalize(ctx, t, done, bodyFallback)
	if result.FinalizeErr != nil {
		// Caught and logged, not raised: the workflow proceeds to the
		// report regardless (optimistic reporting).
		w.metrics.FinalizeFailures.Inc()
		w.logger.Error(ctx, "finalize failed", zap.Error(result.FinalizeErr))
	}

	t.Status = StatusReportPending
	reportPath, err := w.reports.Generate(t, tracker)
	if err != nil {
		w.logger.Error(ctx, "report write failed", zap.Error(err))
	} else {
		result.ReportPath = reportPath
		w.logger.Info(ctx, "report generated", zap.String("path", reportPath))
	}

	t.Status = StatusDone
	w.metrics.TasksCompleted.Inc()
	w.logger.Info(ctx, "task done",
		zap.Int("steps", t.Steps),
		zap.Int("files_created", tracker.CreatedCount()),
		zap.Int("files_modified", tracker.ModifiedCount()),
	)

	result.Task = *t
	return result, nil
}

// finalize runs the commit/push/PR sequence. The first failure stops
// the sequence and is returned for logging; it never aborts the task.
func (w *Workflow) finalize(ctx context.Context, t *Task, done *protocol.Command, bodyFallback string) (string, error) {
	title := done.Title
	body := bodyFallback
	if done.HasBody {
		body = done.Body
	}

	if err := w.vc.CommitAll(ctx, "Implemented: "+title); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if err := w.vc.Push(ctx, t.Branch); err != nil {
		return "", fmt.Errorf("push: %w", err)
	}
	url, err := w.vc.CreatePullRequest(ctx, t.Branch, title, body)
	if err != nil {
		return "", fmt.Errorf("create pull request: %w", err)
	}

	w.logger.Info(ctx, "pull request opened", zap.String("url", url))
	return url, nil
}

// abort marks the task aborted and returns the reason.
func (w *Workflow) abort(ctx context.Context, t *Task, reason error) (*Result, error) {
	t.Status = StatusAborted
	w.metrics.TasksAborted.WithLabelValues(abortLabel(reason)).Inc()
	w.logger.Error(ctx, "task aborted", zap.Error(reason))
	return &Result{Task: *t}, reason
}

// abortLabel maps an abort reason to a low-cardinality metric label.
func abortLabel(reason error) string {
	switch {
	case errors.Is(reason, ErrPlanUnreadable):
		return "plan_unreadable"
	case errors.Is(reason, ErrBranchCreationFailed):
		return "branch_creation_failed"
	case errors.Is(reason, ErrBranchCheckoutFailed):
		return "branch_checkout_failed"
	case errors.Is(reason, ErrStepLimitExceeded):
		return "step_limit_exceeded"
	default:
		return "model_failure"
	}
}
