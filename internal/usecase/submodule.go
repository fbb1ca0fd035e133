package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jiangxin/gistore/internal/domain"
)

// maxSubmoduleDepth bounds the re-add loop: a submodule whose .git is
// itself an ordinary directory containing another repository can keep
// reappearing as a "submodule" after being flattened, so the loop
// gives up rather than spinning forever.
const maxSubmoduleDepth = 10

// sentinelName is the throwaway marker add_submodule plants inside a
// submodule directory so the DVCS records its contents as a plain
// directory rather than a gitlink.
const sentinelName = ".gistore-submodule"

// flattenSubmodules repeatedly removes any submodules the driver
// still reports from the index and re-adds each as an ordinary
// directory, accumulating every status line this produces, until the
// driver reports no submodules left.
func flattenSubmodules(ctx context.Context, d *Dependencies, drv domain.Driver, gitDir, staging string) ([]string, error) {
	var extra []string

	for depth := 0; ; depth++ {
		submodules, err := drv.SubmoduleStatus(ctx, gitDir, staging)
		if err != nil {
			return extra, fmt.Errorf("submodule status: %w", err)
		}
		if len(submodules) == 0 {
			return extra, nil
		}
		if depth >= maxSubmoduleDepth {
			return extra, fmt.Errorf("submodules still present after %d re-add passes: %w", depth, domain.ErrCommand)
		}

		paths := make([]string, 0, len(submodules))
		for _, s := range submodules {
			paths = append(paths, s.Path)
		}
		d.Logger.Warn("flattening submodules", "paths", paths)

		if err := drv.RemoveCached(ctx, gitDir, staging, paths); err != nil {
			return extra, fmt.Errorf("remove submodules from index: %w", err)
		}

		for _, path := range paths {
			lines, err := addSubmoduleAsDirectory(ctx, d, drv, gitDir, staging, path)
			if err != nil {
				return extra, err
			}
			extra = append(extra, lines...)
		}
	}
}

// addSubmoduleAsDirectory plants, adds and removes the sentinel file
// so path is recorded as a plain directory, then reports the status
// lines that produced.
func addSubmoduleAsDirectory(ctx context.Context, d *Dependencies, drv domain.Driver, gitDir, staging, path string) ([]string, error) {
	sentinelRel := filepath.Join(path, sentinelName)
	sentinelAbs := filepath.Join(staging, sentinelRel)

	if err := d.FS.WriteFile(ctx, sentinelAbs, nil); err != nil {
		return nil, fmt.Errorf("plant submodule sentinel in %s: %w", path, err)
	}
	if err := drv.AddPath(ctx, gitDir, staging, true, sentinelRel); err != nil {
		return nil, fmt.Errorf("add submodule sentinel in %s: %w", path, err)
	}
	if err := drv.AddPath(ctx, gitDir, staging, false, path); err != nil {
		return nil, fmt.Errorf("add flattened submodule %s: %w", path, err)
	}
	if err := drv.RemoveCached(ctx, gitDir, staging, []string{sentinelRel}); err != nil {
		return nil, fmt.Errorf("unstage submodule sentinel in %s: %w", path, err)
	}
	if err := d.FS.RemoveAll(ctx, sentinelAbs); err != nil {
		return nil, fmt.Errorf("remove submodule sentinel in %s: %w", path, err)
	}

	return drv.StatusPorcelainPath(ctx, gitDir, staging, path)
}
