package task

import (
	"errors"
	"io/fs"
	"sort"

	"github.com/fyrsmithlabs/devbot/internal/fsops"
)

// MutationKind classifies a written path.
type MutationKind int

const (
	MutationCreated MutationKind = iota
	MutationModified
)

// String returns "created" or "modified".
func (k MutationKind) String() string {
	if k == MutationCreated {
		return "created"
	}
	return "modified"
}

// MutationTracker records the paths a task touched. A path is classified
// on its first write by probe-reading it: a not-found probe means the
// task created the file, anything else means it modified an existing
// one. The first classification is immutable for the life of the task;
// later writes to the same path never re-classify it.
type MutationTracker struct {
	fs    fsops.FileSystem
	kinds map[string]MutationKind
}

// NewMutationTracker creates a tracker probing through fs.
func NewMutationTracker(fileSystem fsops.FileSystem) *MutationTracker {
	return &MutationTracker{
		fs:    fileSystem,
		kinds: make(map[string]MutationKind),
	}
}

// Record classifies path, probing only on first sight. Call before the
// write side effect, exactly once per WRITE_FILE dispatch.
func (t *MutationTracker) Record(path string) MutationKind {
	if kind, ok := t.kinds[path]; ok {
		return kind
	}

	kind := MutationModified
	if _, err := t.fs.Read(path); errors.Is(err, fs.ErrNotExist) {
		kind = MutationCreated
	}
	t.kinds[path] = kind
	return kind
}

// CreatedCount returns the number of paths classified Created.
func (t *MutationTracker) CreatedCount() int {
	return len(t.paths(MutationCreated))
}

// ModifiedCount returns the number of paths classified Modified.
func (t *MutationTracker) ModifiedCount() int {
	return len(t.paths(MutationModified))
}

// Created returns the sorted set of created paths.
func (t *MutationTracker) Created() []string {
	return t.paths(MutationCreated)
}

// Modified returns the sorted set of modified paths.
func (t *MutationTracker) Modified() []string {
	return t.paths(MutationModified)
}

func (t *MutationTracker) paths(kind MutationKind) []string {
	var out []string
	for path, k := range t.kinds {
		if k == kind {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}
