package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/jiangxin/gistore/internal/adapters/mount"
	"github.com/jiangxin/gistore/internal/domain"
	"github.com/jiangxin/gistore/internal/pathnorm"
)

// stagingRoot computes the per-invocation staging tree path:
// <runtime_dir>/<taskname-or-root-basename>/<pid>, outside the task
// root so it never collides with its DVCS storage.
func stagingRoot(d *Dependencies, task domain.Task, pid int) string {
	name := task.Name
	if name == "" {
		name = filepath.Base(task.Root)
	}
	return join(d.RuntimeDir, name, strconv.Itoa(pid))
}

// candidatesFromConfig turns a RepoConfig's store plus the mandatory
// self-included configuration directory into pathnorm.Candidate
// values.
func candidatesFromConfig(cfg *domain.RepoConfig, configDir string) []pathnorm.Candidate {
	candidates := make([]pathnorm.Candidate, 0, len(cfg.Store)+1)
	for path, entry := range cfg.Store {
		candidates = append(candidates, pathnorm.Candidate{
			Original: path,
			Enabled:  entry.Enabled,
			System:   entry.System,
			KeepPerm: entry.KeepPerm,
			KeepEmptyDir: entry.KeepEmptyDir,
		})
	}
	candidates = append(candidates, pathnorm.Candidate{
		Original: configDir,
		Enabled:  true,
		System:   true,
	})
	return candidates
}

// mountSources normalizes cfg's configured sources and mounts every
// enabled, kept one under staging, returning the list of targets that
// were actually mounted (for symmetric unmounting).
func mountSources(ctx context.Context, d *Dependencies, h *taskHandle, cfg *domain.RepoConfig, staging string) ([]string, error) {
	candidates := candidatesFromConfig(cfg, h.ConfigDir)
	result := pathnorm.Normalize(ctx, d.Resolver, h.Task.Root, h.ConfigDir, candidates)
	pathnorm.LogDropped(d.Logger, result.Dropped)
	for _, dropped := range result.Dropped {
		if dropped.Fatal {
			return nil, fmt.Errorf("%s: %s: %w", dropped.Candidate.Original, dropped.Reason, domain.ErrUsage)
		}
	}

	if err := d.FS.MkdirAll(ctx, staging); err != nil {
		return nil, fmt.Errorf("create staging tree: %w", err)
	}

	var targets []string
	for _, entry := range result.Kept {
		if !entry.Enabled {
			continue
		}
		// entry.Path, not entry.Resolved, is the identity used for
		// configuration and mounting: Resolved only exists to drive
		// the existence/duplicate-or-contained checks above.
		target := mount.Target(staging, h.ConfigDir, entry.Path)
		if err := d.Mount.Mount(ctx, entry.Path, target); err != nil {
			return targets, err
		}
		targets = append(targets, target)
	}

	if err := seedStagingGitignore(ctx, d, h, staging); err != nil {
		return targets, err
	}
	return targets, nil
}

// seedStagingGitignore copies init's persisted template into the
// freshly built staging tree's root, since the staging tree itself is
// rebuilt from scratch on every invocation and so never retains it on
// its own (spec SUPPLEMENTED FEATURES ".gitignore seeding").
func seedStagingGitignore(ctx context.Context, d *Dependencies, h *taskHandle, staging string) error {
	content, err := d.FS.ReadFile(ctx, join(h.ConfigDir, domain.GitignoreSeed))
	if err != nil {
		return fmt.Errorf("read .gitignore template: %w", err)
	}
	return d.FS.WriteFile(ctx, join(staging, ".gitignore"), content)
}

// unmountSources tears the staging tree back down: configured targets
// in reverse order, then a sweep of /proc/mounts leftovers, then empty
// directory cleanup, a two-pass unmount procedure.
func unmountSources(ctx context.Context, d *Dependencies, staging string, targets []string) error {
	return d.Mount.UnmountAll(ctx, staging, targets)
}
