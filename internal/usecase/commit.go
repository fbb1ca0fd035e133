package usecase

import (
	"context"
	"fmt"

	"github.com/jiangxin/gistore/internal/domain"
	"github.com/jiangxin/gistore/internal/rotation"
)

// Commit runs the canonical sequence: mount under mount-lock, rotate
// and snapshot under commit-lock, then
// unwind both locks and the staging tree regardless of outcome. A
// LockError on the mount lock surfaces before anything is mounted, so
// nothing is torn down: the lock's existence implies another, possibly
// healthy, process owns the mounts. A LockError on the commit lock
// unwinds only this invocation's own per-PID staging tree and mount
// lock.
func Commit(ctx context.Context, d *Dependencies, arg, message string) (err error) {
	h, err := openTask(ctx, d, arg)
	if err != nil {
		return err
	}
	cfg, err := h.loadConfig(ctx, d, true)
	if err != nil {
		return err
	}
	if cfg.RootOnly && !d.IsRoot {
		return fmt.Errorf("%s requires root: %w", h.Task.Root, domain.ErrPermissionDenied)
	}

	if err := h.Locks.Lock(ctx, domain.LockMount); err != nil {
		return err
	}

	staging := stagingRoot(d, h.Task, d.PID)
	var targets []string
	var commitLockHeld bool
	defer func() {
		if commitLockHeld {
			_ = h.Locks.Unlock(ctx, domain.LockCommit)
		}
		if uerr := unmountSources(ctx, d, staging, targets); uerr != nil && err == nil {
			err = uerr
		}
		_ = h.Locks.Unlock(ctx, domain.LockMount)
	}()

	targets, err = mountSources(ctx, d, h, cfg, staging)
	if err != nil {
		return err
	}

	if err = h.Locks.AssertLock(ctx, domain.LockMount); err != nil {
		return err
	}
	if err = h.Locks.Lock(ctx, domain.LockCommit); err != nil {
		return err
	}
	commitLockHeld = true

	rotated, err := rotation.MaybeRotate(ctx, h.Content, h.GitDir, cfg.BackupHistory, cfg.BackupCopies)
	if err != nil {
		return err
	}
	if rotated {
		d.Logger.Info("rotated backup history", "task", h.Task.Root)
	}

	if err = h.Content.AddAll(ctx, h.GitDir, staging); err != nil {
		return err
	}

	deleted, err := h.Content.ListDeleted(ctx, h.GitDir, staging)
	if err != nil {
		return err
	}
	if err = h.Content.RemoveCached(ctx, h.GitDir, staging, deleted); err != nil {
		return err
	}

	stat, err := h.Content.StatusPorcelain(ctx, h.GitDir, staging)
	if err != nil {
		return err
	}

	extra, err := flattenSubmodules(ctx, d, h.Content, h.GitDir, staging)
	if err != nil {
		return err
	}
	if len(extra) > 0 {
		combined := append(append([]string{}, stat...), extra...)
		if added := newStatusLines(stat, combined); len(added) > 0 {
			d.Logger.Debug("submodule flatten introduced changes", "lines", len(added))
		}
		stat = combined
	}

	msgFile := join(h.LogDir, "COMMIT_MSG")
	if err = d.FS.MkdirAll(ctx, h.LogDir); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	if err = d.FS.WriteFile(ctx, msgFile, []byte(buildCommitMessage(message, stat))); err != nil {
		return fmt.Errorf("write commit message: %w", err)
	}

	if err = h.Content.Commit(ctx, h.GitDir, staging, msgFile, d.commitOptions()); err != nil {
		return err
	}

	if len(stat) > 0 {
		d.Logger.Info("committed changes", "task", h.Task.Root, "changes", len(stat))
	} else {
		d.Logger.Debug("nothing to commit", "task", h.Task.Root)
	}
	return nil
}
