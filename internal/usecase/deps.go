// Package usecase implements the per-invocation orchestrator: the
// sequence that wires the lock manager, mount engine, rotation engine
// and DVCS driver together into init/commit/status/log operations.
package usecase

import (
	"log/slog"

	"github.com/jiangxin/gistore/internal/adapters/sysconfig"
	"github.com/jiangxin/gistore/internal/domain"
	"github.com/jiangxin/gistore/internal/pathnorm"
	"github.com/jiangxin/gistore/internal/taskreg"
)

// ConfigDriverFactory builds the domain.Driver used to read/write a
// task's own .gistore/config file. It is a separate knob from the
// content backend (domain.NewDriver(cfg.Backend)) because the config
// file itself is always git-config-shaped regardless of which backend
// a task later selects for its content history.
type ConfigDriverFactory func() domain.Driver

// Dependencies collects everything an orchestrator operation needs.
// One value is built per process invocation by cmd/gistore and shared
// across whichever subcommand ran.
type Dependencies struct {
	Logger *slog.Logger

	FS       FileSystemPort
	Tasks    *taskreg.Registry
	Resolver pathnorm.Resolver

	Mount MountPort
	Locks LockFactory

	// ConfigDriver builds the Driver used for .gistore/config.
	ConfigDriver ConfigDriverFactory

	SysConfig sysconfig.File

	// RuntimeDir is where staging trees are built, one subdirectory
	// per task, torn down by Cleanup/umount.
	RuntimeDir string

	Hostname string
	Username string

	// PID seeds the per-invocation staging tree path; it is
	// the running process's own pid, passed in rather than read directly
	// so fakes can drive deterministic staging paths in tests.
	PID int

	// IsRoot reports whether this process runs with root privileges,
	// enforcing a RepoConfig's root_only flag.
	IsRoot bool

	// CommitterName/CommitterEmail seed domain.CommitOptions for every
	// commit this process makes, including Init's root commit.
	CommitterName  string
	CommitterEmail string
}
