package usecase

import (
	"context"
	"errors"

	"github.com/jiangxin/gistore/internal/domain"
)

// TaskResult pairs one task from a batch run with whatever error its
// own Commit call produced (nil on success).
type TaskResult struct {
	Task domain.Task
	Err  error
}

// CommitAll runs Commit across every registered task, continuing past
// a single task's CommandError or ErrUninitializedRepository so one
// broken task doesn't abort the whole batch. An ErrLock is still returned in that task's own TaskResult
// -- and batch mode still moves on -- but unlike the other failure
// kinds it never implies anything is wrong with that task, only that
// another process is using it right now.
func CommitAll(ctx context.Context, d *Dependencies, message string) ([]TaskResult, error) {
	tasks, err := d.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]TaskResult, 0, len(tasks))
	for _, task := range tasks {
		err := Commit(ctx, d, task.Root, message)
		if err != nil {
			d.Logger.Warn("commit-all: task failed", "task", task.Name, "root", task.Root, "error", err)
		}
		results = append(results, TaskResult{Task: task, Err: err})
	}
	return results, nil
}

// Failed filters a batch result down to the tasks that did not
// succeed, for callers deciding the process exit code.
func Failed(results []TaskResult) []TaskResult {
	var failed []TaskResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// IsRecoverable reports whether err is one of the per-task failure
// kinds CommitAll is expected to shrug off and continue past, as
// opposed to something that should make the caller stop the batch
// entirely.
func IsRecoverable(err error) bool {
	return errors.Is(err, domain.ErrUninitializedRepository) ||
		errors.Is(err, domain.ErrCommand) ||
		errors.Is(err, domain.ErrLock)
}
