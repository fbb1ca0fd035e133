// Package fsresolver adapts the standard library's path and directory
// operations to the narrow FileSystem/Resolver ports pathnorm and
// taskreg declare, wrapping os/filepath behind a port interface.
package fsresolver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
)

// Adapter implements both pathnorm.Resolver and taskreg.FileSystem.
type Adapter struct {
	logger *slog.Logger
}

// New creates an fsresolver Adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// Resolve implements pathnorm.Resolver: symlink-following realpath plus
// an existence check, matching RepoConfig's "resolved path" validation
// key.
func (a *Adapter) Resolve(_ context.Context, path string) (string, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, false, nil
		}
		return "", false, err
	}
	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return resolved, false, nil
		}
		return "", false, err
	}
	return resolved, true, nil
}

func (a *Adapter) Getwd(context.Context) (string, error) { return os.Getwd() }

func (a *Adapter) EvalSymlinks(_ context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (a *Adapter) Exists(_ context.Context, path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (a *Adapter) ReadDir(_ context.Context, path string) ([]string, error) {
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

func (a *Adapter) Readlink(_ context.Context, path string) (string, error) {
	return os.Readlink(path)
}

// MkdirAll, WriteFile and RemoveAll round the Adapter out to
// usecase.FileSystemPort, the orchestrator's directory/file surface.
func (a *Adapter) MkdirAll(_ context.Context, path string) error {
	return os.MkdirAll(path, 0o750)
}

func (a *Adapter) WriteFile(_ context.Context, path string, data []byte) error {
	return os.WriteFile(path, data, 0o640) //nolint:gosec // staging/config content, not secret
}

func (a *Adapter) ReadFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path) // #nosec G304 -- path is operator-controlled
}

func (a *Adapter) RemoveAll(_ context.Context, path string) error {
	return os.RemoveAll(path)
}
