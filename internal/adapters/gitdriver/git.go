// Package gitdriver implements the C6 DVCS driver by
// shelling out to the git command-line tool, the one narrow external
// collaborator the rest of Gistore is built around.
package gitdriver

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/jiangxin/gistore/internal/domain"
)

func init() {
	domain.RegisterDriver("git", func() domain.Driver { return New(slog.Default()) })
}

// Driver is the git backend implementation of domain.Driver.
type Driver struct {
	logger *slog.Logger
}

// New creates a git Driver.
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger}
}

// successPredicates whitelists benign diagnostics: stderr/stdout text
// that must be treated as success rather than surfaced as a
// CommandError.
var successPredicates = []string{
	"nothing to commit",
	"no changes added to commit",
	"No such section",
	"no such section",
	"not mounted",
}

func isBenignOutput(output string) bool {
	for _, p := range successPredicates {
		if strings.Contains(output, p) {
			return true
		}
	}
	return false
}

// run executes git with args in dir, returning combined output. A
// non-zero exit that doesn't match a success predicate becomes a
// *domain.CommandError wrapping domain.ErrCommand.
func (d *Driver) run(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	output := out.String()
	if err == nil {
		return output, nil
	}
	if isBenignOutput(output) {
		d.logger.Debug("git command reported benign diagnostic", "args", args, "output", output)
		return output, nil
	}
	exitCode := -1
	if ee, ok := err.(*exec.ExitError); ok { //nolint:errorlint // exec.ExitError from cmd.Run is not wrapped
		exitCode = ee.ExitCode()
	}
	return output, &domain.CommandError{
		Cmd:      append([]string{"git"}, args...),
		ExitCode: exitCode,
		Output:   strings.TrimSpace(output),
		Err:      err,
	}
}

func (d *Driver) gitEnv(gitDir string, opts domain.CommitOptions) []string {
	env := baseEnv()
	env = append(env, "GIT_DIR="+gitDir)
	if opts.CommitterName != "" {
		env = append(env, "GIT_COMMITTER_NAME="+opts.CommitterName)
	}
	if opts.CommitterEmail != "" {
		env = append(env, "GIT_COMMITTER_EMAIL="+opts.CommitterEmail)
	}
	if opts.GraftFile != "" {
		env = append(env, "GIT_GRAFT_FILE="+opts.GraftFile)
	}
	return env
}

// Init creates a bare repository with the full git-config sequence a
// backup-tracking repository needs: disabled autocrlf, symlinks on,
// group-shared permissions, untrusted ctime, and an "always keep ours"
// merge driver.
func (d *Driver) Init(ctx context.Context, gitDir string, opts domain.CommitOptions) error {
	if _, err := d.run(ctx, "", nil, "init", "--bare", gitDir); err != nil {
		return err
	}
	settings := [][2]string{
		{"core.autocrlf", "false"},
		{"core.safecrlf", "false"},
		{"core.symlinks", "true"},
		{"core.trustctime", "false"},
		{"core.sharedRepository", "group"},
		{"merge.ours.name", "always keep ours during merge"},
		{"merge.ours.driver", "touch %A"},
	}
	for _, kv := range settings {
		if _, err := d.run(ctx, "", nil, "config", "--file", gitDir+"/config", kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// IsRepo reports whether gitDir looks like an initialized bare repo.
func (d *Driver) IsRepo(ctx context.Context, gitDir string) bool {
	_, err := d.run(ctx, "", nil, "--git-dir", gitDir, "rev-parse", "--git-dir")
	return err == nil
}

// AddAll stages every path under worktree.
func (d *Driver) AddAll(ctx context.Context, gitDir, worktree string) error {
	_, err := d.run(ctx, "", nil, "--git-dir", gitDir, "--work-tree", worktree, "add", "--all", ".")
	return err
}

// AddPath stages specific worktree-relative paths, forcing past
// .gitignore when force is set.
func (d *Driver) AddPath(ctx context.Context, gitDir, worktree string, force bool, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := []string{"--git-dir", gitDir, "--work-tree", worktree, "add"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, "--")
	args = append(args, paths...)
	_, err := d.run(ctx, "", nil, args...)
	return err
}

// StatusPorcelainPath is StatusPorcelain scoped to one worktree-relative path.
func (d *Driver) StatusPorcelainPath(ctx context.Context, gitDir, worktree, path string) ([]string, error) {
	out, err := d.run(ctx, "", nil, "--git-dir", gitDir, "--work-tree", worktree, "status", "--porcelain", "--", path)
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// ListDeleted returns worktree-relative paths git sees as deleted.
func (d *Driver) ListDeleted(ctx context.Context, gitDir, worktree string) ([]string, error) {
	out, err := d.run(ctx, "", nil, "--git-dir", gitDir, "--work-tree", worktree, "ls-files", "--deleted")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// argMax is the conservative argv length budget before falling back
// to removing cached paths one at a time.
const argMax = 100 * 1024

// RemoveCached unstages paths, falling back to one-by-one invocation
// when the combined argument length would overflow the OS's argv
// limit.
func (d *Driver) RemoveCached(ctx context.Context, gitDir, worktree string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	total := 0
	for _, p := range paths {
		total += len(p) + 1
	}
	if total <= argMax {
		args := append([]string{"--git-dir", gitDir, "--work-tree", worktree, "rm", "--cached", "--quiet", "--"}, paths...)
		if _, err := d.run(ctx, "", nil, args...); err == nil {
			return nil
		}
		// Fall through to per-file retry: argv was accepted by exec.Command
		// (Go enforces no hard limit itself) but git or the kernel may still
		// reject it; retry defensively one file at a time.
	}
	for _, p := range paths {
		if _, err := d.run(ctx, "", nil, "--git-dir", gitDir, "--work-tree", worktree, "rm", "--cached", "--quiet", "--", p); err != nil {
			return err
		}
	}
	return nil
}

// StatusPorcelain returns raw `git status --porcelain` lines.
func (d *Driver) StatusPorcelain(ctx context.Context, gitDir, worktree string) ([]string, error) {
	out, err := d.run(ctx, "", nil, "--git-dir", gitDir, "--work-tree", worktree, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// SubmoduleStatus lists submodules git still sees in the index.
func (d *Driver) SubmoduleStatus(ctx context.Context, gitDir, worktree string) ([]domain.SubmoduleEntry, error) {
	out, err := d.run(ctx, "", nil, "--git-dir", gitDir, "--work-tree", worktree, "submodule", "status")
	if err != nil {
		return nil, err
	}
	var entries []domain.SubmoduleEntry
	for _, line := range splitNonEmptyLines(out) {
		trimmed := strings.TrimLeft(line, " -+U")
		fields := strings.Fields(trimmed)
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, domain.SubmoduleEntry{SHA: fields[0], Path: fields[1]})
	}
	return entries, nil
}

// Commit creates a commit from the staged tree. "nothing to commit" is
// folded into success by run()'s success-predicate check. opts.AllowEmpty
// additionally passes --allow-empty, for the one caller (Init's root
// commit) that commits before anything has ever been staged.
func (d *Driver) Commit(ctx context.Context, gitDir, worktree, messageFile string, opts domain.CommitOptions) error {
	env := d.gitEnv(gitDir, opts)
	args := []string{"--git-dir", gitDir, "--work-tree", worktree,
		"commit", "--quiet", "--allow-empty-message"}
	if opts.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	args = append(args, "-F", messageFile)
	_, err := d.run(ctx, "", env, args...)
	return err
}

// RevList returns the hashes reachable from ref, oldest last (as git
// rev-list prints them: newest first). graftFile, when non-empty,
// temporarily overrides GIT_GRAFT_FILE so the walk sees true parent
// pointers instead of the persistent graft file's rewritten ancestry;
// the rotation engine always passes an override so its own commit
// count isn't inflated by a prior rotation's grafts.
// Ordinary callers pass "" to see the normal, graft-honoring history.
func (d *Driver) RevList(ctx context.Context, gitDir, graftFile, ref string) ([]string, error) {
	env := baseEnv()
	env = append(env, "GIT_DIR="+gitDir)
	if graftFile != "" {
		env = append(env, "GIT_GRAFT_FILE="+graftFile)
	}
	out, err := d.run(ctx, "", env, "--git-dir", gitDir, "rev-list", ref)
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// Branches lists local branch names (without "refs/heads/").
func (d *Driver) Branches(ctx context.Context, gitDir string) ([]string, error) {
	out, err := d.run(ctx, "", nil, "--git-dir", gitDir, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// Tag creates (or force-moves) a lightweight tag.
func (d *Driver) Tag(ctx context.Context, gitDir, name, ref string) error {
	_, err := d.run(ctx, "", nil, "--git-dir", gitDir, "tag", "--force", name, ref)
	return err
}

// UpdateRef sets ref to value directly, as git update-ref does.
func (d *Driver) UpdateRef(ctx context.Context, gitDir, ref, value string) error {
	_, err := d.run(ctx, "", nil, "--git-dir", gitDir, "update-ref", ref, value)
	return err
}

// DeleteBranch removes a local branch.
func (d *Driver) DeleteBranch(ctx context.Context, gitDir, name string) error {
	_, err := d.run(ctx, "", nil, "--git-dir", gitDir, "branch", "-D", name)
	return err
}

// CatFile returns the raw, decompressed object bytes for ref (`git
// cat-file -p`), used by rotation to read and rewrite commit objects.
func (d *Driver) CatFile(ctx context.Context, gitDir, ref string) ([]byte, error) {
	out, err := d.run(ctx, "", nil, "--git-dir", gitDir, "cat-file", "-p", ref)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// HashObject writes data as a loose object of the given type and
// returns its hash, used by rotation to write the parentless commit
// object.
func (d *Driver) HashObject(ctx context.Context, gitDir string, objType string, data []byte) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "--git-dir", gitDir, "hash-object", "-w", "-t", objType, "--stdin")
	cmd.Stdin = bytes.NewReader(data)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", &domain.CommandError{
			Cmd:    []string{"git", "hash-object"},
			Output: errBuf.String(),
			Err:    err,
		}
	}
	return strings.TrimSpace(out.String()), nil
}

// Log runs `git log <args...>` with graftFile temporarily substituted
// for the persistent graft file via GIT_GRAFT_FILE, so callers see the
// rotated, linear ancestry without perturbing the on-disk grafts file
//.
func (d *Driver) Log(ctx context.Context, gitDir, graftFile string, args []string) (string, error) {
	env := baseEnv()
	env = append(env, "GIT_DIR="+gitDir)
	if graftFile != "" {
		env = append(env, "GIT_GRAFT_FILE="+graftFile)
	}
	full := append([]string{"--git-dir", gitDir, "log"}, args...)
	return d.run(ctx, "", env, full...)
}

// ConfigGetAll implements C3's storage backend: `git config -f <file>
// -l`, one dotted key=value pair per line.
func (d *Driver) ConfigGetAll(ctx context.Context, file string) (map[string]string, error) {
	out, err := d.run(ctx, "", nil, "config", "-f", file, "-l")
	if err != nil {
		if isMissingFileError(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	result := map[string]string{}
	for _, line := range splitNonEmptyLines(out) {
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		result[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return result, nil
}

// ConfigSet writes one dotted key/value pair via `git config -f`.
func (d *Driver) ConfigSet(ctx context.Context, file, key, value string) error {
	_, err := d.run(ctx, "", nil, "config", "-f", file, key, value)
	return err
}

// ConfigUnsetAll removes key via `git config -f --unset-all`.
func (d *Driver) ConfigUnsetAll(ctx context.Context, file, key string) error {
	_, err := d.run(ctx, "", nil, "config", "-f", file, "--unset-all", key)
	if ce, ok := err.(*domain.CommandError); ok && ce.ExitCode == 5 { //nolint:errorlint // CommandError constructed locally
		// git exits 5 when the key is absent: nothing to unset.
		return nil
	}
	return err
}

// ConfigRemoveSection removes an entire section. "No such section" is
// folded into success by the shared success-predicate check.
func (d *Driver) ConfigRemoveSection(ctx context.Context, file, section string) error {
	_, err := d.run(ctx, "", nil, "config", "-f", file, "--remove-section", section)
	return err
}

func isMissingFileError(err error) bool {
	var cerr *domain.CommandError
	if ce, ok := err.(*domain.CommandError); ok { //nolint:errorlint // CommandError constructed locally
		cerr = ce
	}
	if cerr == nil {
		return false
	}
	return cerr.ExitCode == 1 && strings.TrimSpace(cerr.Output) == ""
}

func splitNonEmptyLines(s string) []string {
	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimRight(l, "\r")
		if l == "" {
			continue
		}
		result = append(result, l)
	}
	return result
}

// baseEnv returns a copy of the current process environment. The
// committer identity and graft-file path are layered on top per call
// (gitEnv/Log) rather than mutated into os.Environ itself, so the
// parent process's environment is never touched.
func baseEnv() []string {
	return append([]string{}, os.Environ()...)
}
