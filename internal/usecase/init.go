package usecase

import (
	"context"
	"fmt"

	"github.com/jiangxin/gistore/internal/domain"
)

// InitOptions carries the one-time choices Init needs beyond what the
// system defaults already seed.
type InitOptions struct {
	RootOnly bool
}

// Init creates a new task: a bare repository, a permanent empty root
// commit anchored as the gistore/0 branch, a freshly saved default
// RepoConfig, and a seeded .gitignore.
func Init(ctx context.Context, d *Dependencies, arg string, opts InitOptions) (domain.Task, error) {
	h, err := openTaskForInit(ctx, d, arg)
	if err != nil {
		return domain.Task{}, err
	}
	if d.FS.Exists(ctx, h.GitDir) {
		return domain.Task{}, fmt.Errorf("%s: %w", h.Task.Root, domain.ErrTaskAlreadyExists)
	}

	backend := d.SysConfig.Main.Backend
	drv, err := domain.NewDriver(backend)
	if err != nil {
		return domain.Task{}, err
	}
	h.Content = drv

	for _, dir := range []string{h.ConfigDir, h.LogDir, h.LockDir} {
		if err := d.FS.MkdirAll(ctx, dir); err != nil {
			return domain.Task{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	initOpts := d.commitOptions()
	initOpts.AllowEmpty = true
	if err := drv.Init(ctx, h.GitDir, initOpts); err != nil {
		return domain.Task{}, fmt.Errorf("init repository: %w", err)
	}

	if err := seedRootCommit(ctx, d, h, drv, initOpts); err != nil {
		return domain.Task{}, err
	}

	if err := seedGitignore(ctx, d, h); err != nil {
		return domain.Task{}, err
	}

	cfg := domain.NewDefaultRepoConfig(opts.RootOnly)
	cfg.Backend = backend
	cfg.BackupHistory = d.SysConfig.Main.BackupHistory
	cfg.BackupCopies = d.SysConfig.Main.BackupCopies
	if err := h.ConfigStore.Save(ctx, cfg); err != nil {
		return domain.Task{}, fmt.Errorf("save repo config: %w", err)
	}

	return h.Task, nil
}

// seedRootCommit creates the permanent, empty "gistore/0" anchor: a
// throwaway empty work-tree lets driver.Commit run with --allow-empty
// before any staging tree has ever existed, then the resulting
// master-tip commit is pinned to refs/heads/ + domain.RootTag.
func seedRootCommit(ctx context.Context, d *Dependencies, h *taskHandle, drv domain.Driver, opts domain.CommitOptions) error {
	workDir := join(h.ConfigDir, domain.InitWorkDir)
	if err := d.FS.MkdirAll(ctx, workDir); err != nil {
		return fmt.Errorf("create init work-tree: %w", err)
	}
	defer func() { _ = d.FS.RemoveAll(ctx, workDir) }()

	msgFile := join(workDir, "COMMIT_MSG")
	if err := d.FS.WriteFile(ctx, msgFile, []byte("gistore root commit initialized.\n")); err != nil {
		return fmt.Errorf("write root commit message: %w", err)
	}
	if err := drv.Commit(ctx, h.GitDir, workDir, msgFile, opts); err != nil {
		return fmt.Errorf("create root commit: %w", err)
	}

	history, err := drv.RevList(ctx, h.GitDir, "", domain.MasterBranch)
	if err != nil {
		return fmt.Errorf("resolve root commit: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("root commit: %w", domain.ErrCommand)
	}
	if err := drv.UpdateRef(ctx, h.GitDir, "refs/heads/"+domain.RootTag, history[0]); err != nil {
		return fmt.Errorf("anchor %s: %w", domain.RootTag, err)
	}
	return nil
}

// seedGitignore writes the .gistore-* ignore pattern into the task's
// persistent template so every staging tree built from it already
// ignores the submodule-flatten sentinel before AddAll runs.
func seedGitignore(ctx context.Context, d *Dependencies, h *taskHandle) error {
	return d.FS.WriteFile(ctx, join(h.ConfigDir, domain.GitignoreSeed), []byte(".gistore-*\n"))
}
