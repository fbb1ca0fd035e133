// Package lock implements the lock manager: a
// file-based advisory lock for exactly two named events, "mount" and
// "commit", one lock file per event under <task_root>/locks.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/jiangxin/gistore/internal/domain"
)

// Manager owns lock files for a single task root.
type Manager struct {
	logger  *slog.Logger
	lockDir string
}

// New creates a Manager rooted at lockDir (<task_root>/locks).
func New(logger *slog.Logger, lockDir string) *Manager {
	if logger == nil {
		panic("lock manager requires logger")
	}
	return &Manager{logger: logger, lockDir: lockDir}
}

func (m *Manager) path(event domain.LockEvent) string {
	return filepath.Join(m.lockDir, domain.LockPrefix+string(event))
}

// Lock acquires the lock for event. Fails with domain.ErrLock if the
// file already exists and its owning process still appears to be
// alive; a lock file left by a dead process is treated as stale and
// reclaimed.
func (m *Manager) Lock(ctx context.Context, event domain.LockEvent) error {
	if err := os.MkdirAll(m.lockDir, 0o750); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	path := m.path(event)

	info := domain.LockInfo{PID: os.Getpid()}
	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}

	if err := m.createExclusive(path, info); err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("create lock file %s: %w", path, err)
		}
		existing, rerr := m.readLockInfo(path)
		if rerr != nil || m.isOwnerAlive(existing) {
			return fmt.Errorf("%s lock held by pid %d on %s: %w", event, existing.PID, existing.Hostname, domain.ErrLock)
		}
		// Stale: owning process is gone. Reclaim.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale lock %s: %w", path, err)
		}
		if err := m.createExclusive(path, info); err != nil {
			return fmt.Errorf("create lock file %s after reclaim: %w", path, err)
		}
	}
	m.logger.Debug("lock acquired", "event", event, "pid", info.PID)
	return nil
}

// Unlock releases the lock for event. Removing an already-absent lock
// file is not an error: umount/cleanup paths call Unlock defensively.
func (m *Manager) Unlock(ctx context.Context, event domain.LockEvent) error {
	path := m.path(event)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock %s: %w", path, err)
	}
	m.logger.Debug("lock released", "event", event)
	return nil
}

// HasLock reports whether event's lock file currently exists,
// regardless of the owning process's liveness (a literal file-exists
// check).
func (m *Manager) HasLock(ctx context.Context, event domain.LockEvent) bool {
	_, err := os.Stat(m.path(event))
	return err == nil
}

// AssertLock returns a domain.ErrLock-wrapped error if event is not
// currently locked. Used to enforce "commit lock only valid under
// mount lock".
func (m *Manager) AssertLock(ctx context.Context, event domain.LockEvent) error {
	if !m.HasLock(ctx, event) {
		return fmt.Errorf("%s lock not held: %w", event, domain.ErrLock)
	}
	return nil
}

// AssertNoLock returns an error if event is currently locked.
func (m *Manager) AssertNoLock(ctx context.Context, event domain.LockEvent) error {
	if m.HasLock(ctx, event) {
		return fmt.Errorf("%s lock unexpectedly held: %w", event, domain.ErrLock)
	}
	return nil
}

func (m *Manager) createExclusive(path string, info domain.LockInfo) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.WriteString(strconv.Itoa(info.PID))
	return err
}

func (m *Manager) readLockInfo(path string) (domain.LockInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the task's own lock dir
	if err != nil {
		return domain.LockInfo{}, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return domain.LockInfo{}, fmt.Errorf("invalid lock content: %w", err)
	}
	return domain.LockInfo{PID: pid}, nil
}

// isOwnerAlive reports whether the process that owns this lock is
// still running. A lock with no resolvable PID is treated as alive:
// never silently steal a lock we can't reason about.
func (m *Manager) isOwnerAlive(info domain.LockInfo) bool {
	if info.PID <= 0 {
		return true
	}
	return isProcessRunning(info.PID)
}

func isProcessRunning(pid int) bool {
	if runtime.GOOS == "windows" {
		return isProcessRunningWindows(pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return !errors.Is(err, os.ErrProcessDone)
}
