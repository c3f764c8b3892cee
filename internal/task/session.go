package task

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/logging"
	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

// Session owns the ordered transcript of one task and drives the model
// turn-by-turn. Completion requests are strictly sequential: Advance
// never issues more than one outstanding request.
type Session struct {
	client     ModelClient
	dispatcher *Dispatcher
	logger     *logging.Logger

	transcript []protocol.Message
	steps      int
	maxSteps   int
}

// NewSession creates a session bounded by maxSteps model turns.
func NewSession(client ModelClient, dispatcher *Dispatcher, maxSteps int, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Session{
		client:     client,
		dispatcher: dispatcher,
		logger:     logger.Named("session"),
		maxSteps:   maxSteps,
	}
}

// Seed appends the opening user message. The transcript is append-only
// from here on.
func (s *Session) Seed(content string) {
	s.transcript = append(s.transcript, protocol.UserMessage(content))
}

// Steps returns the number of model turns consumed so far.
func (s *Session) Steps() int {
	return s.steps
}

// Exhausted reports whether the step bound has been reached.
func (s *Session) Exhausted() bool {
	return s.steps >= s.maxSteps
}

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []protocol.Message {
	out := make([]protocol.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Advance runs one model turn: request a completion over the full
// transcript, append the reply, parse it. A DONE command is returned to
// the caller without being dispatched; every other command (including
// unrecognized and malformed ones) produces an observation that is
// appended as a user message. Every turn consumes one step.
func (s *Session) Advance(ctx context.Context) (*protocol.Command, error) {
	if s.Exhausted() {
		return nil, ErrStepLimitExceeded
	}

	reply, err := s.client.Complete(ctx, systemPrompt, s.transcript)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	s.steps++
	s.transcript = append(s.transcript, protocol.AssistantMessage(reply))

	cmd, parseErr := protocol.Parse(reply)
	s.logger.Debug(ctx, "model turn",
		zap.Int("step", s.steps),
		zap.String("command", cmd.Kind.String()),
	)

	if parseErr == nil && cmd.Kind == protocol.KindDone {
		return &cmd, nil
	}

	var observation string
	if parseErr != nil {
		observation = malformedObservation(cmd.Kind)
	} else {
		observation = s.dispatcher.Dispatch(ctx, cmd)
	}

	s.transcript = append(s.transcript, protocol.UserMessage("Tool Output:\n"+observation))
	return nil, nil
}
