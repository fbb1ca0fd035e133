package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jiangxin/gistore/internal/adapters/repoconfig"
	"github.com/jiangxin/gistore/internal/domain"
)

// taskHandle bundles a resolved task with every path and collaborator
// derived from it, so each operation in this package doesn't re-derive
// them by hand. One taskHandle is opened per task per invocation.
type taskHandle struct {
	Task domain.Task

	ConfigDir string
	LogDir    string
	LockDir   string
	GitDir    string

	ConfigStore *repoconfig.Store
	Locks       LockPort

	// Content is the DVCS backend selected by the task's own
	// main.backend key, resolved once RepoConfig has been loaded.
	Content domain.Driver
}

func join(parts ...string) string {
	return filepath.Join(parts...)
}

// openTask resolves arg against the task registry and builds the
// directory layout: <root>/<config_dir>, <root>/<log_dir>,
// <root>/<lock_dir> and <root>/repo.git are all direct children of the
// task root.
func openTask(ctx context.Context, d *Dependencies, arg string) (*taskHandle, error) {
	task, err := d.Tasks.Resolve(ctx, arg)
	if err != nil {
		return nil, err
	}
	return newTaskHandle(d, task), nil
}

// openTaskForInit mirrors openTask but resolves through
// taskreg.ResolveForInit, which tolerates a task root that does not
// exist yet.
func openTaskForInit(ctx context.Context, d *Dependencies, arg string) (*taskHandle, error) {
	task, err := d.Tasks.ResolveForInit(ctx, arg)
	if err != nil {
		return nil, err
	}
	return newTaskHandle(d, task), nil
}

func newTaskHandle(d *Dependencies, task domain.Task) *taskHandle {
	h := &taskHandle{
		Task:      task,
		ConfigDir: join(task.Root, domain.ConfigDir),
		LogDir:    join(task.Root, domain.LogDir),
		LockDir:   join(task.Root, domain.LockDir),
		GitDir:    join(task.Root, domain.GitDir),
	}
	configFile := join(h.ConfigDir, domain.ConfigFile)
	h.ConfigStore = repoconfig.New(d.ConfigDriver(), configFile)
	h.Locks = d.Locks(h.LockDir)
	return h
}

// loadConfig reads the task's repo-config, resolves the content
// backend it names, and returns both. Callers that haven't run init
// yet (the registry check happens earlier) get ErrUninitializedRepository
// when repo.git itself is missing, even though RepoConfig.Load
// tolerates a missing config file on its own.
func (h *taskHandle) loadConfig(ctx context.Context, d *Dependencies, requireInitialized bool) (*domain.RepoConfig, error) {
	if requireInitialized && !d.FS.Exists(ctx, h.GitDir) {
		return nil, fmt.Errorf("%s: %w", h.Task.Root, domain.ErrUninitializedRepository)
	}
	cfg, err := h.ConfigStore.Load(ctx, d.SysConfig.Main.RootOnly)
	if err != nil {
		return nil, fmt.Errorf("load repo config: %w", err)
	}
	drv, err := domain.NewDriver(cfg.Backend)
	if err != nil {
		return nil, err
	}
	h.Content = drv
	return cfg, nil
}

// commitOptions builds the CommitOptions every write operation in this
// package shares, carrying the process-wide committer identity.
func (d *Dependencies) commitOptions() domain.CommitOptions {
	return domain.CommitOptions{
		CommitterName:  d.CommitterName,
		CommitterEmail: d.CommitterEmail,
	}
}
