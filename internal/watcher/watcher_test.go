package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, debounce time.Duration) (*Watcher, string) {
	t.Helper()
	root := t.TempDir()
	w, err := New(root, "ai-docs", debounce, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)
	w.Start(context.Background())
	return w, root
}

func waitForPlan(t *testing.T, w *Watcher) Plan {
	t.Helper()
	select {
	case plan := <-w.Plans():
		return plan
	case <-time.After(5 * time.Second):
		t.Fatal("no plan emitted")
		return Plan{}
	}
}

func TestWatcher_CreatesPlansDir(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, "ai-docs", time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	info, err := os.Stat(filepath.Join(root, "ai-docs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWatcher_EmitsPlanForNewMarkdown(t *testing.T) {
	w, root := newTestWatcher(t, 20*time.Millisecond)

	path := filepath.Join(root, "ai-docs", "add-auth.md")
	require.NoError(t, os.WriteFile(path, []byte("# Plan"), 0o644))

	plan := waitForPlan(t, w)
	assert.Equal(t, "ai-docs/add-auth.md", plan.Path)
	assert.Equal(t, "add-auth", plan.Slug)
}

func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	w, root := newTestWatcher(t, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "ai-docs", "notes.txt"), []byte("x"), 0o644))

	select {
	case plan := <-w.Plans():
		t.Fatalf("unexpected plan %+v", plan)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_DebouncesWriteBursts(t *testing.T) {
	w, root := newTestWatcher(t, 100*time.Millisecond)

	path := filepath.Join(root, "ai-docs", "add-auth.md")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = f.WriteString("chunk\n")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	waitForPlan(t, w)

	// The burst collapsed into a single emission.
	select {
	case plan := <-w.Plans():
		t.Fatalf("second plan emitted: %+v", plan)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, _ := newTestWatcher(t, time.Millisecond)
	w.Stop()
	w.Stop()
}

func TestSlugFromPath(t *testing.T) {
	assert.Equal(t, "add-auth", slugFromPath("/tmp/ai-docs/add-auth.md"))
	assert.Equal(t, "plan.v2", slugFromPath("plan.v2.md"))
}
