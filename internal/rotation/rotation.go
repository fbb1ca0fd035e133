// Package rotation implements the rotation engine:
// sliding the gistore/<n> retention branches, re-parenting master into
// a fresh parentless commit, and rewriting the graft file so history
// still reads as one linear chain.
package rotation

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jiangxin/gistore/internal/domain"
)

func retentionBranch(n int) string {
	return fmt.Sprintf(domain.RetentionFmt, n)
}

func refName(branch string) string {
	return "refs/heads/" + branch
}

// rawHistoryGraftFile is the GIT_GRAFT_FILE override every rotation
// RevList call uses: a path that can never hold real graft lines, so
// rotation always measures and walks true parent pointers rather than
// the persistent, display-only rewritten ancestry a prior rotation
// left in <repo.git>/info/grafts.
const rawHistoryGraftFile = "/dev/null"

// MaybeRotate runs the rotation procedure if master's history has
// grown past backupHistory. It is a no-op (and returns false) when
// backupHistory < 1 or backupCopies < 1.
func MaybeRotate(ctx context.Context, drv domain.Driver, gitDir string, backupHistory, backupCopies int) (bool, error) {
	if backupHistory < 1 || backupCopies < 1 {
		return false, nil
	}

	history, err := drv.RevList(ctx, gitDir, rawHistoryGraftFile, domain.MasterBranch)
	if err != nil {
		return false, fmt.Errorf("rev-list master: %w", err)
	}
	if len(history) <= backupHistory {
		return false, nil
	}

	if err := slideRetentionBranches(ctx, drv, gitDir, backupCopies); err != nil {
		return false, err
	}
	if err := reparentMaster(ctx, drv, gitDir); err != nil {
		return false, err
	}
	if err := rewriteGrafts(ctx, drv, gitDir, backupCopies); err != nil {
		return false, err
	}
	return true, nil
}

// slideRetentionBranches enumerates existing gistore/<n> (n>0)
// branches, then either slides the window (when already at capacity)
// or grows it by one generation.
func slideRetentionBranches(ctx context.Context, drv domain.Driver, gitDir string, backupCopies int) error {
	branches, err := drv.Branches(ctx, gitDir)
	if err != nil {
		return fmt.Errorf("list branches: %w", err)
	}
	var generations []int
	for _, b := range branches {
		n, ok := parseRetentionBranch(b)
		if ok && n > 0 {
			generations = append(generations, n)
		}
	}
	sort.Ints(generations)

	if len(generations) >= backupCopies {
		// Slide: refs/heads/gistore/i <- refs/heads/gistore/generations[i-backupCopies]
		// for i in [1, backupCopies), then point the top slot at master
		// and delete anything that fell out of range.
		for i := 1; i < backupCopies; i++ {
			srcIdx := len(generations) - backupCopies + i
			if srcIdx < 0 || srcIdx >= len(generations) {
				continue
			}
			srcRef := refName(retentionBranch(generations[srcIdx]))
			value, err := resolveRef(ctx, drv, gitDir, srcRef)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", srcRef, err)
			}
			if err := drv.UpdateRef(ctx, gitDir, refName(retentionBranch(i)), value); err != nil {
				return fmt.Errorf("update %s: %w", retentionBranch(i), err)
			}
		}
		for _, n := range generations {
			if n > backupCopies {
				_ = drv.DeleteBranch(ctx, gitDir, retentionBranch(n))
			}
		}
		masterValue, err := resolveRef(ctx, drv, gitDir, refName(domain.MasterBranch))
		if err != nil {
			return fmt.Errorf("resolve master: %w", err)
		}
		if err := drv.UpdateRef(ctx, gitDir, refName(retentionBranch(backupCopies)), masterValue); err != nil {
			return fmt.Errorf("create %s: %w", retentionBranch(backupCopies), err)
		}
		return nil
	}

	next := 1
	if len(generations) > 0 {
		next = generations[len(generations)-1] + 1
	}
	masterValue, err := resolveRef(ctx, drv, gitDir, refName(domain.MasterBranch))
	if err != nil {
		return fmt.Errorf("resolve master: %w", err)
	}
	if err := drv.UpdateRef(ctx, gitDir, refName(retentionBranch(next)), masterValue); err != nil {
		return fmt.Errorf("create %s: %w", retentionBranch(next), err)
	}
	return nil
}

// reparentMaster implements step (3)-(4): read master's commit
// object, strip its parent lines, write the resulting parentless
// commit object, and move master to point at it.
func reparentMaster(ctx context.Context, drv domain.Driver, gitDir string) error {
	value, err := resolveRef(ctx, drv, gitDir, refName(domain.MasterBranch))
	if err != nil {
		return fmt.Errorf("resolve master: %w", err)
	}
	raw, err := drv.CatFile(ctx, gitDir, value)
	if err != nil {
		return fmt.Errorf("cat-file master: %w", err)
	}
	stripped := stripParentLines(raw)
	newHash, err := drv.HashObject(ctx, gitDir, "commit", stripped)
	if err != nil {
		return fmt.Errorf("hash-object reparented commit: %w", err)
	}
	if err := drv.UpdateRef(ctx, gitDir, refName(domain.MasterBranch), newHash); err != nil {
		return fmt.Errorf("update master to reparented commit: %w", err)
	}
	return nil
}

// stripParentLines removes every "parent <sha>" line from a raw
// commit object's header, producing a parentless commit with the same
// tree, author, committer and message.
func stripParentLines(raw []byte) []byte {
	lines := bytes.Split(raw, []byte("\n"))
	var out [][]byte
	for _, l := range lines {
		if bytes.HasPrefix(l, []byte("parent ")) {
			continue
		}
		out = append(out, l)
	}
	return bytes.Join(out, []byte("\n"))
}

// rewriteGrafts implements step (5): starting from the new master
// commit, descend through the retention branches gistore/backupCopies
// down to gistore/1, appending "<child> <parent>" lines that
// reconstruct the apparent linear ancestry
// gistore/1 -> ... -> gistore/backupCopies -> master. Each line's
// child is the newer generation's root commit (the new master for the
// first line) and its parent is the older generation's tip.
//
// When a generation's own history (`rev-list <branch>`) has length 1,
// its child links directly
// to that generation's tip with no graft line for that edge, and the
// chain continues from that tip down to the next older generation.
func rewriteGrafts(ctx context.Context, drv domain.Driver, gitDir string, backupCopies int) error {
	var lines []string

	child, err := resolveRef(ctx, drv, gitDir, refName(domain.MasterBranch))
	if err != nil {
		return fmt.Errorf("resolve master: %w", err)
	}

	for n := backupCopies; n >= 1; n-- {
		branch := retentionBranch(n)
		tip, err := resolveRef(ctx, drv, gitDir, refName(branch))
		if err != nil {
			// Generation doesn't exist yet (fewer than backupCopies
			// retained so far); nothing to graft at this depth.
			continue
		}
		history, err := drv.RevList(ctx, gitDir, rawHistoryGraftFile, branch)
		if err != nil {
			return fmt.Errorf("rev-list %s: %w", branch, err)
		}
		if len(history) == 1 {
			// This generation's tip is already a root (no real parent
			// of its own, from an earlier rotation's reparenting): it
			// needs no graft line of its own, but the chain still
			// continues from it so older generations link correctly.
			child = tip
			continue
		}
		lines = append(lines, child+" "+tip)
		child = history[len(history)-1]
	}

	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	return writeGraftFile(ctx, drv, gitDir, content)
}

func resolveRef(ctx context.Context, drv domain.Driver, gitDir, ref string) (string, error) {
	history, err := drv.RevList(ctx, gitDir, rawHistoryGraftFile, ref)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return "", fmt.Errorf("%s: empty history", ref)
	}
	return history[0], nil
}

// writeGraftFile persists info/grafts under gitDir. It is a package
// variable so tests can intercept it without touching a real
// filesystem; production code writes the file directly since grafts
// is a plain text file, not a git object reachable through Driver.
var writeGraftFile = func(_ context.Context, _ domain.Driver, gitDir, content string) error {
	path := filepath.Join(gitDir, domain.GraftFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create info dir: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0o644) //nolint:gosec // grafts is not secret
}

func parseRetentionBranch(branch string) (int, bool) {
	const prefix = "gistore/"
	if !strings.HasPrefix(branch, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(branch, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
