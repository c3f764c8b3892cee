package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/devbot/internal/fsops"
	"github.com/fyrsmithlabs/devbot/internal/protocol"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, fsops.FileSystem, *MutationTracker) {
	t.Helper()
	fs := fsops.NewLocal(t.TempDir(), nil)
	tracker := NewMutationTracker(fs)
	return NewDispatcher(fs, tracker, nil), fs, tracker
}

func TestDispatch_ReadFile(t *testing.T) {
	d, fs, _ := newTestDispatcher(t)
	require.NoError(t, fs.Write("main.go", "package main\n"))

	out := d.Dispatch(context.Background(), protocol.Command{Kind: protocol.KindReadFile, Path: "main.go"})
	assert.Equal(t, "package main\n", out)
}

func TestDispatch_ReadFileMissing(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	out := d.Dispatch(context.Background(), protocol.Command{Kind: protocol.KindReadFile, Path: "nope.go"})
	assert.Contains(t, out, "Error reading file nope.go:")
}

func TestDispatch_WriteFileRecordsMutation(t *testing.T) {
	d, fs, tracker := newTestDispatcher(t)

	out := d.Dispatch(context.Background(), protocol.Command{
		Kind:    protocol.KindWriteFile,
		Path:    "pkg/util.go",
		Content: "package pkg\n",
	})
	assert.Equal(t, "Successfully wrote to pkg/util.go", out)

	content, err := fs.Read("pkg/util.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", content)
	assert.Equal(t, []string{"pkg/util.go"}, tracker.Created())
}

func TestDispatch_WriteExistingFileIsModified(t *testing.T) {
	d, fs, tracker := newTestDispatcher(t)
	require.NoError(t, fs.Write("old.go", "v1"))

	d.Dispatch(context.Background(), protocol.Command{Kind: protocol.KindWriteFile, Path: "old.go", Content: "v2"})
	assert.Equal(t, []string{"old.go"}, tracker.Modified())
}

func TestDispatch_ListFiles(t *testing.T) {
	d, fs, _ := newTestDispatcher(t)
	require.NoError(t, fs.Write("a.go", ""))
	require.NoError(t, fs.Write("sub/b.go", ""))

	out := d.Dispatch(context.Background(), protocol.Command{Kind: protocol.KindListFiles, Path: "."})
	assert.Equal(t, "a.go\nsub/b.go", out)
}

func TestDispatch_UnrecognizedReply(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	out := d.Dispatch(context.Background(), protocol.Command{Kind: protocol.KindUnrecognized})
	assert.Equal(t, "No tool command found.", out)
}

func TestMalformedObservation(t *testing.T) {
	assert.Equal(t,
		"Error: Invalid WRITE_FILE format. Use <<<< and >>>>",
		malformedObservation(protocol.KindWriteFile),
	)
}
