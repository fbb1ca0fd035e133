// Package taskreg implements task-name/path resolution: an empty
// argument means the current directory, a bare token is looked up
// under the tasks directory first, anything else is treated as a
// path.
package taskreg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jiangxin/gistore/internal/domain"
)

// FileSystem is the minimal surface the registry needs: existence
// checks, symlink resolution and directory listing, kept narrow so
// it is trivially fakeable in tests.
type FileSystem interface {
	Getwd(ctx context.Context) (string, error)
	EvalSymlinks(ctx context.Context, path string) (string, error)
	Exists(ctx context.Context, path string) bool
	ReadDir(ctx context.Context, path string) ([]string, error)
	Readlink(ctx context.Context, path string) (string, error)
}

// Registry resolves task arguments against a tasks directory.
type Registry struct {
	fs       FileSystem
	tasksDir string
}

// New creates a Registry rooted at tasksDir (e.g. /etc/gistore/tasks
// or ~/.gistore.d/tasks, per the paths.tasks_dir system setting).
func New(fs FileSystem, tasksDir string) *Registry {
	return &Registry{fs: fs, tasksDir: tasksDir}
}

// Resolve implements the argument resolution rule:
//   - empty arg -> current working directory
//   - a token containing no path separator and other than "." or ".."
//     is first looked up as <tasks_dir>/<name>; if that symlink/entry
//     does not exist it falls back to being a relative path
//   - anything else is treated directly as a path
//
// The returned Task's Root is always absolute and symlink-resolved.
func (r *Registry) Resolve(ctx context.Context, arg string) (domain.Task, error) {
	candidate := arg
	name := ""

	switch {
	case arg == "":
		wd, err := r.fs.Getwd(ctx)
		if err != nil {
			return domain.Task{}, fmt.Errorf("resolve cwd: %w", err)
		}
		candidate = wd
	case looksLikeTaskName(arg):
		linkPath := filepath.Join(r.tasksDir, arg)
		if r.fs.Exists(ctx, linkPath) {
			name = arg
			candidate = linkPath
		}
	}

	resolved, err := r.fs.EvalSymlinks(ctx, candidate)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%s: %w", candidate, domain.ErrTaskNotExists)
	}
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Clean(resolved)
	}

	if name == "" {
		if reverse, ok := r.reverseLookup(ctx, resolved); ok {
			name = reverse
		}
	}

	return domain.Task{Name: name, Root: resolved}, nil
}

// ResolveForInit mirrors Resolve's argument rules but tolerates a
// target that does not exist yet, for `init`: a bare name not yet linked under tasksDir resolves
// relative to the current directory, same as the original
// implementation's __init_task falling back to os.path.join(cwd, name).
func (r *Registry) ResolveForInit(ctx context.Context, arg string) (domain.Task, error) {
	candidate := arg
	name := ""

	switch {
	case arg == "":
		wd, err := r.fs.Getwd(ctx)
		if err != nil {
			return domain.Task{}, fmt.Errorf("resolve cwd: %w", err)
		}
		candidate = wd
	case looksLikeTaskName(arg):
		linkPath := filepath.Join(r.tasksDir, arg)
		if r.fs.Exists(ctx, linkPath) {
			name = arg
			candidate = linkPath
		} else {
			wd, err := r.fs.Getwd(ctx)
			if err != nil {
				return domain.Task{}, fmt.Errorf("resolve cwd: %w", err)
			}
			candidate = filepath.Join(wd, arg)
		}
	}

	if !filepath.IsAbs(candidate) {
		wd, err := r.fs.Getwd(ctx)
		if err != nil {
			return domain.Task{}, fmt.Errorf("resolve cwd: %w", err)
		}
		candidate = filepath.Join(wd, candidate)
	}

	resolved, err := r.fs.EvalSymlinks(ctx, candidate)
	if err != nil {
		// Target doesn't exist yet: init will create it, so fall back
		// to the cleaned, unresolved absolute path.
		resolved = filepath.Clean(candidate)
	}

	return domain.Task{Name: name, Root: resolved}, nil
}

// List enumerates every task currently registered under tasksDir, for
// `list` and `commit-all`. Entries whose symlink target no longer resolves are
// skipped rather than failing the whole listing.
func (r *Registry) List(ctx context.Context) ([]domain.Task, error) {
	entries, err := r.fs.ReadDir(ctx, r.tasksDir)
	if err != nil {
		return nil, fmt.Errorf("read tasks directory: %w", err)
	}
	tasks := make([]domain.Task, 0, len(entries))
	for _, name := range entries {
		target, err := r.fs.Readlink(ctx, filepath.Join(r.tasksDir, name))
		if err != nil {
			continue
		}
		resolved, err := r.fs.EvalSymlinks(ctx, target)
		if err != nil {
			continue
		}
		tasks = append(tasks, domain.Task{Name: name, Root: resolved})
	}
	return tasks, nil
}

// looksLikeTaskName reports whether arg is a bare token: no path
// separator, and not "." or "..".
func looksLikeTaskName(arg string) bool {
	if strings.ContainsRune(arg, filepath.Separator) || strings.ContainsRune(arg, '/') {
		return false
	}
	if arg == "." || arg == ".." {
		return false
	}
	return true
}

// reverseLookup scans tasksDir for a symlink entry pointing at root,
// the path-to-name direction of resolution.
func (r *Registry) reverseLookup(ctx context.Context, root string) (string, bool) {
	entries, err := r.fs.ReadDir(ctx, r.tasksDir)
	if err != nil {
		return "", false
	}
	for _, name := range entries {
		target, err := r.fs.Readlink(ctx, filepath.Join(r.tasksDir, name))
		if err != nil {
			continue
		}
		resolved, err := r.fs.EvalSymlinks(ctx, target)
		if err != nil {
			continue
		}
		if resolved == root {
			return name, true
		}
	}
	return "", false
}

// osFileSystem is the production FileSystem backed by the standard
// library, used outside of tests.
type osFileSystem struct{}

// NewOSFileSystem returns a FileSystem implementation using os/filepath.
func NewOSFileSystem() FileSystem { return osFileSystem{} }

func (osFileSystem) Getwd(context.Context) (string, error) { return os.Getwd() }

func (osFileSystem) EvalSymlinks(_ context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (osFileSystem) Exists(_ context.Context, path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (osFileSystem) ReadDir(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (osFileSystem) Readlink(_ context.Context, path string) (string, error) {
	return os.Readlink(path)
}
