package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg)
	require.Error(t, err)
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Format = format
			logger, err := NewLogger(cfg)
			require.NoError(t, err)
			logger.Info(context.Background(), "hello")
		})
	}
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithTaskID(ctx, "task-1")
	ctx = WithBranch(ctx, "devbot/add-auth-1700000000")

	fields := ContextFields(ctx)
	require.Len(t, fields, 2)
	assert.Equal(t, "task.id", fields[0].Key)
	assert.Equal(t, "task.branch", fields[1].Key)
}

func TestLogger_ContextFieldsAttached(t *testing.T) {
	logger := NewTestLogger()
	ctx := WithTaskID(context.Background(), "task-42")

	logger.Info(ctx, "starting task")

	entries := logger.FilterMessage("starting task").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "task-42", entries[0].ContextMap()["task.id"])
}

func TestTestLogger_Assertions(t *testing.T) {
	logger := NewTestLogger()
	logger.Warn(context.Background(), "branch creation failed")

	logger.AssertLogged(t, zapcore.WarnLevel, "branch creation")
	logger.AssertNotLogged(t, zapcore.ErrorLevel, "branch creation")

	logger.Reset()
	assert.Empty(t, logger.All())
}

func TestLevelFromString(t *testing.T) {
	level, err := LevelFromString("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = LevelFromString("shouty")
	assert.Error(t, err)
}
