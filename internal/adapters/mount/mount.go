// Package mount implements the mount engine:
// bringing up and tearing down a read-only bind-mount staging tree for
// one task's configured source paths.
package mount

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/jiangxin/gistore/internal/domain"
)

// Tool is one entry in the mount/unmount preference chain.
type Tool struct {
	Name string
	// Mount performs the bind mount of src onto target.
	Mount func(ctx context.Context, src, target string) error
	// Unmount tears the mount at target back down.
	Unmount func(ctx context.Context, target string) error
}

// Engine mounts and unmounts a task's staging tree.
type Engine struct {
	logger *slog.Logger
	tools  []Tool
}

// New builds an Engine with the standard tool-preference chain:
// kernel recursive bind (read-only, no mtab entry), the same via a
// privilege-escalation helper, FUSE bind (no-exec,
// no-write), then FUSE via the helper. New takes no options: it always
// wires every tool, for root and non-root callers alike, and lets mountWithFallback walk the chain in order so a
// non-root invocation still benefits from whichever tool actually
// works on the host.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, tools: defaultTools()}
}

func defaultTools() []Tool {
	return []Tool{
		{Name: "kernel-rbind", Mount: kernelRBindMount, Unmount: kernelUnmount},
		{Name: "sudo-rbind", Mount: sudoRBindMount, Unmount: sudoUnmount},
		{Name: "bindfs", Mount: bindfsMount, Unmount: fusermountUnmount},
		{Name: "sudo-bindfs", Mount: sudoBindfsMount, Unmount: sudoFusermountUnmount},
	}
}

// Target computes the in-staging-tree mount target for a configured
// source: the task's own config directory maps to
// <staging>/<config_dir basename>, and everything else maps to
// <staging>/<path with its leading separator stripped>.
func Target(staging, configDir, sourcePath string) string {
	if sourcePath == configDir {
		return filepath.Join(staging, filepath.Base(configDir))
	}
	trimmed := strings.TrimPrefix(sourcePath, string(filepath.Separator))
	return filepath.Join(staging, trimmed)
}

// Mount brings up the bind mount for one source entry. It creates the
// target (a directory, or for a regular-file source a placeholder
// file), skips the work entirely if the target is already mounted,
// and otherwise tries each tool in order until one succeeds.
func (e *Engine) Mount(ctx context.Context, src, target string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", src, err)
	}

	if err := e.ensureTarget(target, info.IsDir()); err != nil {
		return fmt.Errorf("create mount target %s: %w", target, err)
	}

	if already, err := IsMount(src, target); err == nil && already {
		e.logger.Debug("already mounted", "src", src, "target", target)
		return nil
	}

	var lastErr error
	for _, tool := range e.tools {
		if err := tool.Mount(ctx, src, target); err != nil {
			e.logger.Debug("mount tool failed", "tool", tool.Name, "src", src, "error", err)
			lastErr = err
			continue
		}
		e.logger.Debug("mounted", "tool", tool.Name, "src", src, "target", target)
		return nil
	}
	return fmt.Errorf("%s -> %s: %w: %v", src, target, domain.ErrCommand, lastErr)
}

// Unmount tears down the mount at target, trying each tool's unmount
// method in order. A target that isn't mounted at all is success, not
// an error, matching every tool's own idempotence.
func (e *Engine) Unmount(ctx context.Context, target string) error {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return nil
	}

	var lastErr error
	for _, tool := range e.tools {
		if tool.Unmount == nil {
			continue
		}
		if err := tool.Unmount(ctx, target); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		return nil
	}
	return fmt.Errorf("unmount %s: %w: %v", target, domain.ErrCommand, lastErr)
}

// UnmountAll tears down the whole staging tree in two passes: first
// the targets computed from the task's currently configured sources
// (reverse order, so nested mounts come down before
// their parents), then a sweep of whatever else /proc/mounts still
// reports under staging, to catch entries left behind by a source
// that was since removed from configuration. It finally removes empty
// directories left under staging, never climbing above it.
func (e *Engine) UnmountAll(ctx context.Context, staging string, configuredTargets []string) error {
	for i := len(configuredTargets) - 1; i >= 0; i-- {
		if err := e.Unmount(ctx, configuredTargets[i]); err != nil {
			return err
		}
	}

	leftover, err := mountedUnder(staging)
	if err != nil {
		return fmt.Errorf("scan mount table: %w", err)
	}
	for i := len(leftover) - 1; i >= 0; i-- {
		if err := e.Unmount(ctx, leftover[i]); err != nil {
			return err
		}
	}

	return removeEmptyDirs(staging, staging)
}

// removeEmptyDirs prunes empty directories under root, bottom-up,
// stopping at root itself (root is never removed).
func removeEmptyDirs(root, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			if err := removeEmptyDirs(root, filepath.Join(dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	if dir == root {
		return nil
	}
	entries, err = os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return os.Remove(dir)
	}
	return nil
}

func (e *Engine) ensureTarget(target string, isDir bool) error {
	if isDir {
		return os.MkdirAll(target, 0o750)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	if _, err := os.Stat(target); err == nil {
		return nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	return f.Close()
}

// IsMount reports whether target is already a mount point of src,
// either because the two share the same device/inode (already
// bind-mounted) or because the OS independently reports target as a
// mount point.
func IsMount(src, target string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	targetInfo, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if sameFile(srcInfo, targetInfo) {
		return true, nil
	}
	return isMountPoint(target)
}

func sameFile(a, b os.FileInfo) bool {
	as, aok := a.Sys().(*unix.Stat_t)
	bs, bok := b.Sys().(*unix.Stat_t)
	if !aok || !bok {
		return false
	}
	return as.Dev == bs.Dev && as.Ino == bs.Ino
}

// isMountPoint compares target's device id with its parent's: a
// mismatch means a filesystem is mounted there.
func isMountPoint(target string) (bool, error) {
	info, err := os.Stat(target)
	if err != nil {
		return false, err
	}
	parentInfo, err := os.Stat(filepath.Dir(target))
	if err != nil {
		return false, err
	}
	ts, ok1 := info.Sys().(*unix.Stat_t)
	ps, ok2 := parentInfo.Sys().(*unix.Stat_t)
	if !ok1 || !ok2 {
		return false, nil
	}
	return ts.Dev != ps.Dev, nil
}

// kernelRBindMount performs a recursive, read-only bind mount with no
// mtab entry using the raw unix.Mount syscall (tool preference #1).
func kernelRBindMount(_ context.Context, src, target string) error {
	flags := uintptr(unix.MS_BIND | unix.MS_REC)
	if err := unix.Mount(src, target, "", flags, ""); err != nil {
		return err
	}
	remountFlags := uintptr(unix.MS_BIND | unix.MS_REMOUNT | unix.MS_RDONLY)
	if err := unix.Mount(src, target, "", remountFlags, ""); err != nil {
		_ = unix.Unmount(target, unix.MNT_DETACH)
		return err
	}
	return nil
}

func kernelUnmount(_ context.Context, target string) error {
	if err := unix.Unmount(target, 0); err != nil {
		return unmountErrorOrSuccess(err)
	}
	return nil
}

// sudoRBindMount is tool preference #2: the same operation through a
// privilege-escalation helper, for non-root invocations where the raw
// syscall would fail with EPERM.
func sudoRBindMount(ctx context.Context, src, target string) error {
	return runCommand(ctx, "sudo", "mount", "--rbind", "-o", "ro", src, target)
}

func sudoUnmount(ctx context.Context, target string) error {
	return runCommandAllowingNotMounted(ctx, "sudo", "umount", target)
}

// bindfsMount is tool preference #3: a FUSE bind mount with no-exec,
// no-write, for hosts without privileged mount access and no sudo.
func bindfsMount(ctx context.Context, src, target string) error {
	return runCommand(ctx, "bindfs", "--no-allow-other", "-o", "ro,noexec", src, target)
}

func fusermountUnmount(ctx context.Context, target string) error {
	return runCommandAllowingNotMounted(ctx, "fusermount", "-u", target)
}

// sudoBindfsMount is tool preference #4: FUSE bind via the privilege
// helper, for hosts where bindfs itself requires elevation.
func sudoBindfsMount(ctx context.Context, src, target string) error {
	return runCommand(ctx, "sudo", "bindfs", "--no-allow-other", "-o", "ro,noexec", src, target)
}

func sudoFusermountUnmount(ctx context.Context, target string) error {
	return runCommandAllowingNotMounted(ctx, "sudo", "fusermount", "-u", target)
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &domain.CommandError{Cmd: append([]string{name}, args...), Output: string(out), Err: err}
	}
	return nil
}

// runCommandAllowingNotMounted treats a "not mounted" diagnostic as
// success: unmounting an already-unmounted target is not an error.
func runCommandAllowingNotMounted(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if strings.Contains(string(out), "not mounted") {
		return nil
	}
	return &domain.CommandError{Cmd: append([]string{name}, args...), Output: string(out), Err: err}
}

// mountedUnder returns every mount point reported by the kernel that
// falls under staging, in the order /proc/self/mounts lists them
// (oldest first); callers walk the result in reverse so descendants
// come down before their ancestors.
func mountedUnder(staging string) ([]string, error) {
	data, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	prefix := staging + string(filepath.Separator)
	var points []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		mountPoint := fields[1]
		if mountPoint == staging || strings.HasPrefix(mountPoint, prefix) {
			points = append(points, mountPoint)
		}
	}
	return points, nil
}

func unmountErrorOrSuccess(err error) error {
	if err == unix.EINVAL { //nolint:errorlint // unix errno is a plain error value
		// EINVAL from umount2 on a path that isn't a mount point: treat
		// as already-unmounted, matching the command-line tools'
		// "not mounted" success predicate.
		return nil
	}
	return err
}
