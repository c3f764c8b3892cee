package logging

import (
	"context"

	"go.uber.org/zap"
)

// Context key types
type taskCtxKey struct{}
type branchCtxKey struct{}

// WithTaskID returns a context carrying the task identifier.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, taskCtxKey{}, taskID)
}

// TaskIDFromContext returns the task identifier, or "" when absent.
func TaskIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(taskCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// WithBranch returns a context carrying the task branch name.
func WithBranch(ctx context.Context, branch string) context.Context {
	return context.WithValue(ctx, branchCtxKey{}, branch)
}

// BranchFromContext returns the branch name, or "" when absent.
func BranchFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(branchCtxKey{}).(string); ok {
		return v
	}
	return ""
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)

	if taskID := TaskIDFromContext(ctx); taskID != "" {
		fields = append(fields, zap.String("task.id", taskID))
	}
	if branch := BranchFromContext(ctx); branch != "" {
		fields = append(fields, zap.String("task.branch", branch))
	}

	return fields
}
