package usecase

import (
	"context"
	"fmt"

	"github.com/jiangxin/gistore/internal/domain"
	"github.com/jiangxin/gistore/internal/pathnorm"
)

// SourceOptions carries the per-entry flags `add` accepts, matching
// the store.<path>.* keys RepoConfig models.
type SourceOptions struct {
	Disabled     bool
	System       bool
	KeepPerm     bool
	KeepEmptyDir bool
}

// AddSource registers path as a backup source under task arg,
// re-running the path normalizer against the whole resulting
// candidate set so a path that would be dropped (non-existent,
// contained within task root, a duplicate of an existing entry) is
// rejected up front rather than silently discarded at the next
// commit.
func AddSource(ctx context.Context, d *Dependencies, arg, path string, opts SourceOptions) error {
	h, err := openTask(ctx, d, arg)
	if err != nil {
		return err
	}
	cfg, err := h.loadConfig(ctx, d, true)
	if err != nil {
		return err
	}

	entry := &domain.SourceEntry{
		Path:         path,
		Enabled:      !opts.Disabled,
		System:       opts.System,
		KeepPerm:     opts.KeepPerm,
		KeepEmptyDir: opts.KeepEmptyDir,
	}
	cfg.Store[path] = entry

	candidates := candidatesFromConfig(cfg, h.ConfigDir)
	result := pathnorm.Normalize(ctx, d.Resolver, h.Task.Root, h.ConfigDir, candidates)
	for _, dropped := range result.Dropped {
		if dropped.Candidate.Original == path {
			return fmt.Errorf("%s: %s: %w", path, dropped.Reason, domain.ErrUsage)
		}
	}

	for _, kv := range [][2]string{
		{"store." + path + ".enabled", boolString(entry.Enabled)},
		{"store." + path + ".system", boolString(entry.System)},
		{"store." + path + ".keepperm", boolString(entry.KeepPerm)},
		{"store." + path + ".keepemptydir", boolString(entry.KeepEmptyDir)},
	} {
		if err := h.ConfigStore.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("save %s: %w", kv[0], err)
		}
	}
	return nil
}

// RemoveSource deregisters path. The stanza is disabled, not deleted,
// so the entry survives as an audit record and add can re-enable it
// later by setting store.<path>.enabled back to true.
func RemoveSource(ctx context.Context, d *Dependencies, arg, path string) error {
	h, err := openTask(ctx, d, arg)
	if err != nil {
		return err
	}
	if _, err := h.loadConfig(ctx, d, true); err != nil {
		return err
	}
	return h.ConfigStore.Set(ctx, "store."+path+".enabled", "false")
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
