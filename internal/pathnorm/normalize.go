// Package pathnorm implements the source-path normalization algorithm:
// resolving, sorting, deduplicating and containment-checking a task's
// configured source paths.
package pathnorm

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jiangxin/gistore/internal/domain"
)

// Resolver resolves a path the way the filesystem adapter would:
// symlink-following realpath, plus an existence check.
type Resolver interface {
	Resolve(ctx context.Context, path string) (resolved string, exists bool, err error)
}

// Candidate is one source path before normalization.
type Candidate struct {
	Original string
	Enabled  bool
	System   bool
	KeepPerm bool
	KeepEmptyDir bool
}

// Dropped records why a candidate was excluded, for warning/error output.
type Dropped struct {
	Candidate Candidate
	Reason    string
	Fatal     bool
}

// Result is the outcome of Normalize.
type Result struct {
	Kept    []*domain.SourceEntry
	Dropped []Dropped
}

// Normalize implements the algorithm:
//  1. compute original+resolved path per candidate;
//  2. sort by resolved path;
//  3. drop if resolved doesn't exist (warn);
//  4. drop if resolved is a duplicate of, or contained by, a
//     previously kept entry's resolved path;
//  5. drop if resolved equals the task root or is a strict ancestor
//     of it (error);
//  6. drop if resolved is a descendant of the task root, unless it is
//     exactly the task's configuration directory (the one allowed
//     self-include).
//
// Disabled candidates are resolved and validated identically but never
// reported as duplicates/containment sources for later candidates,
// matching "disabled (not deleted)" semantics:
// they stay represented so re-enabling round-trips, but idle entries
// should not shadow active ones.
func Normalize(ctx context.Context, r Resolver, taskRoot, configDir string, candidates []Candidate) Result {
	type resolved struct {
		Candidate
		resolvedPath string
	}

	entries := make([]resolved, 0, len(candidates))
	var res Result

	for _, c := range candidates {
		rp, exists, err := r.Resolve(ctx, c.Original)
		if err != nil || !exists {
			res.Dropped = append(res.Dropped, Dropped{
				Candidate: c,
				Reason:    fmt.Sprintf("path does not exist: %s", c.Original),
			})
			continue
		}
		entries = append(entries, resolved{Candidate: c, resolvedPath: rp})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].resolvedPath < entries[j].resolvedPath
	})

	var lastKeptResolved string
	haveLastKept := false

	for _, e := range entries {
		rp := e.resolvedPath

		if haveLastKept && isDuplicateOrContained(lastKeptResolved, rp) {
			res.Dropped = append(res.Dropped, Dropped{
				Candidate: e.Candidate,
				Reason:    fmt.Sprintf("%s is a duplicate of, or contained within, %s", rp, lastKeptResolved),
			})
			continue
		}

		if rp == taskRoot || isStrictAncestor(rp, taskRoot) {
			res.Dropped = append(res.Dropped, Dropped{
				Candidate: e.Candidate,
				Reason:    fmt.Sprintf("%s is the task root or an ancestor of it", rp),
				Fatal:     true,
			})
			continue
		}

		if isStrictAncestor(taskRoot, rp) && rp != configDir {
			res.Dropped = append(res.Dropped, Dropped{
				Candidate: e.Candidate,
				Reason:    fmt.Sprintf("%s is inside the task root (only the config directory may be)", rp),
				Fatal:     true,
			})
			continue
		}

		entry := &domain.SourceEntry{
			Path:         e.Original,
			Resolved:     rp,
			Enabled:      e.Enabled,
			System:       e.System,
			KeepPerm:     e.KeepPerm,
			KeepEmptyDir: e.KeepEmptyDir,
		}
		res.Kept = append(res.Kept, entry)
		if e.Enabled {
			lastKeptResolved = rp
			haveLastKept = true
		}
	}

	return res
}

// isDuplicateOrContained reports whether candidate is exactly prev or
// a descendant of prev. Both paths must already be clean and
// comparable (same filesystem-case rules).
func isDuplicateOrContained(prev, candidate string) bool {
	if prev == candidate {
		return true
	}
	return isStrictAncestor(prev, candidate)
}

// isStrictAncestor reports whether ancestor is a proper ancestor
// directory of path (not equal, and path is textually nested under
// ancestor using the OS separator).
func isStrictAncestor(ancestor, path string) bool {
	if ancestor == path {
		return false
	}
	prefix := strings.TrimSuffix(ancestor, string(filepath.Separator)) + string(filepath.Separator)
	return strings.HasPrefix(path, prefix)
}

// LogDropped writes one warning or error line per dropped candidate.
func LogDropped(logger *slog.Logger, dropped []Dropped) {
	for _, d := range dropped {
		if d.Fatal {
			logger.Error("source path rejected", "path", d.Candidate.Original, "reason", d.Reason)
			continue
		}
		logger.Warn("source path dropped", "path", d.Candidate.Original, "reason", d.Reason)
	}
}
