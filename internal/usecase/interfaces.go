package usecase

import (
	"context"

	"github.com/jiangxin/gistore/internal/domain"
)

// FileSystemPort is the directory/file surface the orchestrator needs
// beyond path resolution (taskreg.FileSystem already covers lookup);
// kept as its own narrow port rather than one do-everything interface.
type FileSystemPort interface {
	Exists(ctx context.Context, path string) bool
	MkdirAll(ctx context.Context, path string) error
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	RemoveAll(ctx context.Context, path string) error
	Getwd(ctx context.Context) (string, error)
	ReadDir(ctx context.Context, path string) ([]string, error)
	Readlink(ctx context.Context, path string) (string, error)
	EvalSymlinks(ctx context.Context, path string) (string, error)
}

// MountPort is the subset of mount.Engine the orchestrator drives.
type MountPort interface {
	Mount(ctx context.Context, src, target string) error
	Unmount(ctx context.Context, target string) error
	UnmountAll(ctx context.Context, staging string, configuredTargets []string) error
}

// LockPort is the subset of lock.Manager the orchestrator drives.
type LockPort interface {
	Lock(ctx context.Context, event domain.LockEvent) error
	Unlock(ctx context.Context, event domain.LockEvent) error
	HasLock(ctx context.Context, event domain.LockEvent) bool
	AssertLock(ctx context.Context, event domain.LockEvent) error
	AssertNoLock(ctx context.Context, event domain.LockEvent) error
}

// LockFactory builds a LockPort rooted at a given task's lock
// directory; lock.Manager's constructor takes that directory, so a
// fresh one is built per task rather than shared across tasks.
type LockFactory func(lockDir string) LockPort
