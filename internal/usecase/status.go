package usecase

import (
	"context"

	"github.com/jiangxin/gistore/internal/domain"
)

// StatusReport summarizes one task for the `status` command
// (SUPPLEMENTED FEATURES): its configuration plus whether another
// invocation currently holds either lock.
type StatusReport struct {
	Task         domain.Task
	Config       *domain.RepoConfig
	MountLocked  bool
	CommitLocked bool
}

// Status loads a task's configuration and current lock state without
// mounting or touching its repository content.
func Status(ctx context.Context, d *Dependencies, arg string) (StatusReport, error) {
	h, err := openTask(ctx, d, arg)
	if err != nil {
		return StatusReport{}, err
	}
	cfg, err := h.loadConfig(ctx, d, true)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		Task:         h.Task,
		Config:       cfg,
		MountLocked:  h.Locks.HasLock(ctx, domain.LockMount),
		CommitLocked: h.Locks.HasLock(ctx, domain.LockCommit),
	}, nil
}

// List enumerates every task currently registered, for the `list`
// command (SUPPLEMENTED FEATURES).
func List(ctx context.Context, d *Dependencies) ([]domain.Task, error) {
	return d.Tasks.List(ctx)
}
