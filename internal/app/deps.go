// Package app wires the real adapters into a usecase.Dependencies
// value from concrete adapter constructors.
package app

import (
	"log/slog"
	"os"

	"github.com/jiangxin/gistore/internal/adapters/fsresolver"
	"github.com/jiangxin/gistore/internal/adapters/gitdriver"
	"github.com/jiangxin/gistore/internal/adapters/lock"
	"github.com/jiangxin/gistore/internal/adapters/mount"
	"github.com/jiangxin/gistore/internal/adapters/sysconfig"
	"github.com/jiangxin/gistore/internal/domain"
	"github.com/jiangxin/gistore/internal/taskreg"
	"github.com/jiangxin/gistore/internal/usecase"
)

// NewDefaultDependencies builds a usecase.Dependencies from the real,
// OS-backed adapters. The task registry's directory is
// sysCfg.Paths.TasksDir (paths.tasks_dir in the loaded sysconfig.File).
func NewDefaultDependencies(logger *slog.Logger, sysCfg sysconfig.File, runtimeDir string, isRoot bool) *usecase.Dependencies {
	if logger == nil {
		panic("default dependencies require logger")
	}

	fsAdapter := fsresolver.New(logger)
	mountAdapter := mount.New(logger)

	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}

	return &usecase.Dependencies{
		Logger:   logger,
		FS:       fsAdapter,
		Tasks:    taskreg.New(taskreg.NewOSFileSystem(), sysCfg.Paths.TasksDir),
		Resolver: fsAdapter,
		Mount:    mountAdapter,
		Locks: func(lockDir string) usecase.LockPort {
			return lock.New(logger, lockDir)
		},
		ConfigDriver: func() domain.Driver {
			return gitdriver.New(logger)
		},
		SysConfig:      sysCfg,
		RuntimeDir:     runtimeDir,
		Hostname:       hostname,
		Username:       username,
		PID:            os.Getpid(),
		IsRoot:         isRoot,
		CommitterName:  "gistore",
		CommitterEmail: "gistore@localhost",
	}
}
