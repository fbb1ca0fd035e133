package domain

import "context"

// CommitOptions carries the committer identity and, during rotation,
// the private graft-file path that must be visible to the child
// process's environment without touching the parent's.
type CommitOptions struct {
	CommitterName  string
	CommitterEmail string
	GraftFile      string
	// AllowEmpty permits a commit with no staged changes against the
	// previous tree, used only for the permanent root commit Init
	// creates before any source has ever been staged.
	AllowEmpty bool
}

// SubmoduleEntry is one line of `git submodule status` output.
type SubmoduleEntry struct {
	Path string
	SHA  string
}

// Driver is the narrow command surface required of a DVCS backend.
// "git" is the only concrete implementation; the interface exists so
// `main.backend` can select among others without the orchestrator or
// rotation engine knowing which one is in use.
type Driver interface {
	// Init creates a bare repository at root with: disabled autocrlf,
	// enabled symlinks, group-shared permissions, untrusted ctime, and an
	// "always keep ours" merge driver. It writes no .gitignore; the
	// orchestrator's init seeds that separately.
	Init(ctx context.Context, gitDir string, opts CommitOptions) error
	IsRepo(ctx context.Context, gitDir string) bool

	// AddAll stages every path under worktree, respecting .gitignore.
	AddAll(ctx context.Context, gitDir, worktree string) error
	// AddPath stages specific worktree-relative paths, optionally
	// forcing past .gitignore (used by the submodule-flatten loop to
	// plant and then rely on its own sentinel file).
	AddPath(ctx context.Context, gitDir, worktree string, force bool, paths ...string) error
	// StatusPorcelainPath is StatusPorcelain scoped to one path, used to
	// recheck a single re-added submodule directory.
	StatusPorcelainPath(ctx context.Context, gitDir, worktree, path string) ([]string, error)
	// ListDeleted returns worktree-relative paths git sees as removed.
	ListDeleted(ctx context.Context, gitDir, worktree string) ([]string, error)
	// RemoveCached unstages the given paths (git rm --cached), falling
	// back to one invocation per path if the argv is too long.
	RemoveCached(ctx context.Context, gitDir, worktree string, paths []string) error
	// StatusPorcelain returns the raw `git status --porcelain` lines.
	StatusPorcelain(ctx context.Context, gitDir, worktree string) ([]string, error)
	// SubmoduleStatus lists any submodules git still sees in the index.
	SubmoduleStatus(ctx context.Context, gitDir, worktree string) ([]SubmoduleEntry, error)

	// Commit creates a commit from the currently staged tree using the
	// message in messageFile. "nothing to commit" is success, not an
	// error.
	Commit(ctx context.Context, gitDir, worktree, messageFile string, opts CommitOptions) error

	// RevList walks ref's ancestry. graftFile, when non-empty,
	// temporarily overrides GIT_GRAFT_FILE for this call so the walk
	// sees true parent pointers rather than the persistent graft
	// file's display-only rewritten ancestry; pass ""
	// for the normal graft-honoring view.
	RevList(ctx context.Context, gitDir, graftFile, ref string) ([]string, error)
	Branches(ctx context.Context, gitDir string) ([]string, error)
	Tag(ctx context.Context, gitDir, name, ref string) error
	UpdateRef(ctx context.Context, gitDir, ref, value string) error
	DeleteBranch(ctx context.Context, gitDir, name string) error

	CatFile(ctx context.Context, gitDir, ref string) ([]byte, error)
	HashObject(ctx context.Context, gitDir string, objType string, data []byte) (string, error)

	// Log runs `git log <args...>` with the given graft file
	// temporarily substituted for the persistent one, returning raw
	// output.
	Log(ctx context.Context, gitDir, graftFile string, args []string) (string, error)

	// Config drives `git config -f <file>` for the dotted-key
	// RepoConfig store: ConfigGetAll/ConfigSet/
	// ConfigUnsetAll/ConfigRemoveSection all shell out through here so
	// the serialization rules are git's, not a reimplementation.
	ConfigGetAll(ctx context.Context, file string) (map[string]string, error)
	ConfigSet(ctx context.Context, file, key, value string) error
	ConfigUnsetAll(ctx context.Context, file, key string) error
	ConfigRemoveSection(ctx context.Context, file, section string) error
}

// Constructor builds a Driver. Registered statically per backend name
// so an unknown main.backend value is a config error, not a crash
//.
type Constructor func() Driver

var registry = map[string]Constructor{}

// RegisterDriver adds a backend constructor to the static registry.
// Called from adapter package init() functions.
func RegisterDriver(name string, ctor Constructor) {
	registry[name] = ctor
}

// NewDriver looks up a backend by name. Returns ErrUsage-wrapped error
// for an unregistered name.
func NewDriver(backend string) (Driver, error) {
	ctor, ok := registry[backend]
	if !ok {
		return nil, &UnknownBackendError{Backend: backend}
	}
	return ctor(), nil
}

// UnknownBackendError reports an unrecognized main.backend value.
type UnknownBackendError struct {
	Backend string
}

func (e *UnknownBackendError) Error() string {
	return "unknown backend: " + e.Backend
}

func (e *UnknownBackendError) Unwrap() error {
	return ErrUsage
}
