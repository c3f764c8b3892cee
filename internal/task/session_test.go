package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/devbot/internal/fsops"
	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

// scriptedModel replays canned replies in order.
type scriptedModel struct {
	replies    []string
	err        error
	calls      int
	lastSystem string
	transcript []protocol.Message
}

func (m *scriptedModel) Complete(_ context.Context, system string, transcript []protocol.Message) (string, error) {
	m.lastSystem = system
	m.transcript = transcript
	if m.err != nil {
		return "", m.err
	}
	if m.calls >= len(m.replies) {
		return "DONE fallback", nil
	}
	reply := m.replies[m.calls]
	m.calls++
	return reply, nil
}

func newTestSession(t *testing.T, model ModelClient, maxSteps int) (*Session, fsops.FileSystem) {
	t.Helper()
	fs := fsops.NewLocal(t.TempDir(), nil)
	tracker := NewMutationTracker(fs)
	dispatcher := NewDispatcher(fs, tracker, nil)
	return NewSession(model, dispatcher, maxSteps, nil), fs
}

func TestSession_ToolCommandAppendsObservation(t *testing.T) {
	model := &scriptedModel{replies: []string{"READ_FILE hello.txt"}}
	s, fs := newTestSession(t, model, 15)
	require.NoError(t, fs.Write("hello.txt", "hi"))
	s.Seed("plan")

	cmd, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, s.Steps())

	tr := s.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, protocol.RoleUser, tr[0].Role)
	assert.Equal(t, protocol.RoleAssistant, tr[1].Role)
	assert.Equal(t, "READ_FILE hello.txt", tr[1].Content)
	assert.Equal(t, protocol.RoleUser, tr[2].Role)
	assert.Equal(t, "Tool Output:\nhi", tr[2].Content)
}

func TestSession_DoneReturnedNotDispatched(t *testing.T) {
	model := &scriptedModel{replies: []string{"DONE Add auth\n<<<<\nAdds login flow.\n>>>>"}}
	s, _ := newTestSession(t, model, 15)
	s.Seed("plan")

	cmd, err := s.Advance(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, protocol.KindDone, cmd.Kind)
	assert.Equal(t, "Add auth", cmd.Title)
	assert.Equal(t, "Adds login flow.", cmd.Body)

	// DONE ends the turn: no observation is appended.
	tr := s.Transcript()
	require.Len(t, tr, 2)
	assert.Equal(t, protocol.RoleAssistant, tr[1].Role)
}

func TestSession_MalformedWriteGetsCorrectiveObservation(t *testing.T) {
	model := &scriptedModel{replies: []string{"WRITE_FILE a.go"}}
	s, fs := newTestSession(t, model, 15)
	s.Seed("plan")

	cmd, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cmd)
	assert.Equal(t, 1, s.Steps())

	tr := s.Transcript()
	assert.Equal(t, "Tool Output:\nError: Invalid WRITE_FILE format. Use <<<< and >>>>", tr[len(tr)-1].Content)

	// The command never reached the dispatcher: nothing was written.
	_, readErr := fs.Read("a.go")
	assert.Error(t, readErr)
}

func TestSession_ProseReplyGetsNoToolObservation(t *testing.T) {
	model := &scriptedModel{replies: []string{"Let me think about this plan for a moment."}}
	s, _ := newTestSession(t, model, 15)
	s.Seed("plan")

	cmd, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cmd)

	tr := s.Transcript()
	assert.Equal(t, "Tool Output:\nNo tool command found.", tr[len(tr)-1].Content)
}

func TestSession_ModelFailureDoesNotConsumeStep(t *testing.T) {
	model := &scriptedModel{err: errors.New("rate limited")}
	s, _ := newTestSession(t, model, 15)
	s.Seed("plan")

	_, err := s.Advance(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, s.Steps())
	assert.Len(t, s.Transcript(), 1)
}

func TestSession_ExhaustionStopsAdvance(t *testing.T) {
	model := &scriptedModel{replies: []string{"LIST_FILES .", "LIST_FILES ."}}
	s, _ := newTestSession(t, model, 2)
	s.Seed("plan")

	for i := 0; i < 2; i++ {
		_, err := s.Advance(context.Background())
		require.NoError(t, err)
	}
	assert.True(t, s.Exhausted())

	_, err := s.Advance(context.Background())
	assert.ErrorIs(t, err, ErrStepLimitExceeded)
	assert.Equal(t, 2, model.calls)
}

func TestSession_SystemPromptAndFullTranscriptSent(t *testing.T) {
	model := &scriptedModel{replies: []string{"LIST_FILES .", "LIST_FILES ."}}
	s, _ := newTestSession(t, model, 15)
	s.Seed("plan")

	_, err := s.Advance(context.Background())
	require.NoError(t, err)
	assert.Contains(t, model.lastSystem, "autonomous senior DevOps engineer")
	assert.Len(t, model.transcript, 1)

	_, err = s.Advance(context.Background())
	require.NoError(t, err)
	// Second request carries seed, first reply, and its observation.
	assert.Len(t, model.transcript, 3)
}
