// Package fsops provides the file-system collaborator for task dispatch.
package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrOutsideRoot indicates a path escaping the working tree.
var ErrOutsideRoot = errors.New("path escapes working tree")

// FileSystem is the capability the task engine reads and writes through.
// Not-found read failures satisfy errors.Is(err, fs.ErrNotExist).
type FileSystem interface {
	Read(path string) (string, error)
	Write(path, content string) error
	List(path string) ([]string, error)
}

// Local is a FileSystem rooted at a working tree directory.
type Local struct {
	root     string
	excludes map[string]struct{}
}

// NewLocal creates a Local rooted at root. excludeDirs are directory
// names (not paths) skipped at any depth when listing.
func NewLocal(root string, excludeDirs []string) *Local {
	excludes := make(map[string]struct{}, len(excludeDirs))
	for _, name := range excludeDirs {
		excludes[name] = struct{}{}
	}
	return &Local{root: root, excludes: excludes}
}

// Read returns the file's contents as text.
func (l *Local) Read(path string) (string, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Write writes content to path, creating parent directories as needed.
func (l *Local) Write(path, content string) error {
	resolved, err := l.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("creating parent directories: %w", err)
	}
	return os.WriteFile(resolved, []byte(content), 0o644)
}

// List recursively enumerates files under path, excluding the configured
// directory names at any depth. Paths are returned relative to the
// given path, sorted for deterministic output.
func (l *Local) List(path string) ([]string, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := l.excludes[d.Name()]; skip && p != resolved {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(resolved, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// resolve joins path with the root and rejects escapes.
func (l *Local) resolve(path string) (string, error) {
	joined := filepath.Join(l.root, filepath.Clean("/"+path))
	rootAbs, err := filepath.Abs(l.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return joined, nil
}
