package task

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/fsops"
	"github.com/fyrsmithlabs/devbot/internal/logging"
	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

// Observation returned when a reply carries no recognizable command.
const noToolObservation = "No tool command found."

// Dispatcher executes parsed tool commands against the file-system
// collaborator and records mutations. Collaborator failures are
// returned as formatted observation strings, never raised: the model
// sees the error in-band and can self-correct.
type Dispatcher struct {
	fs      fsops.FileSystem
	tracker *MutationTracker
	logger  *logging.Logger
	metrics *Metrics
}

// NewDispatcher creates a dispatcher over fs, recording writes in tracker.
func NewDispatcher(fileSystem fsops.FileSystem, tracker *MutationTracker, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		fs:      fileSystem,
		tracker: tracker,
		logger:  logger.Named("dispatch"),
		metrics: NewMetrics(),
	}
}

// Dispatch executes one command and returns the observation text.
// DONE commands are a workflow concern and must not reach the
// dispatcher; the session hands them back to the caller instead.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd protocol.Command) string {
	d.metrics.ToolDispatches.WithLabelValues(cmd.Kind.String()).Inc()

	switch cmd.Kind {
	case protocol.KindReadFile:
		content, err := d.fs.Read(cmd.Path)
		if err != nil {
			d.logger.Debug(ctx, "read failed", zap.String("path", cmd.Path), zap.Error(err))
			return fmt.Sprintf("Error reading file %s: %v", cmd.Path, err)
		}
		return content

	case protocol.KindWriteFile:
		kind := d.tracker.Record(cmd.Path)
		if err := d.fs.Write(cmd.Path, cmd.Content); err != nil {
			d.logger.Warn(ctx, "write failed", zap.String("path", cmd.Path), zap.Error(err))
			return fmt.Sprintf("Error writing file %s: %v", cmd.Path, err)
		}
		d.logger.Info(ctx, "wrote file",
			zap.String("path", cmd.Path),
			zap.String("classification", kind.String()),
		)
		return fmt.Sprintf("Successfully wrote to %s", cmd.Path)

	case protocol.KindListFiles:
		files, err := d.fs.List(cmd.Path)
		if err != nil {
			d.logger.Debug(ctx, "list failed", zap.String("path", cmd.Path), zap.Error(err))
			return fmt.Sprintf("Error listing files: %v", err)
		}
		return strings.Join(files, "\n")

	default:
		return noToolObservation
	}
}

// malformedObservation is the in-band reply for a recognized keyword
// whose payload delimiters are missing or mismatched.
func malformedObservation(kind protocol.Kind) string {
	return fmt.Sprintf("Error: Invalid %s format. Use %s and %s",
		kind, protocol.OpenDelimiter, protocol.CloseDelimiter)
}
