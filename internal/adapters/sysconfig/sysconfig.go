// Package sysconfig loads and saves the host-level defaults file:
// main.backend, rootonly, backuphistory, backupcopies and the tasks
// directory every bare task name resolves against. Unlike the
// per-task repo-config store, this file has no git semantics to
// preserve, so it is plain TOML.
package sysconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jiangxin/gistore/internal/domain"
)

// File is the on-disk shape of the system defaults file.
type File struct {
	Main struct {
		Backend       string `toml:"backend"`
		RootOnly      bool   `toml:"rootonly"`
		BackupHistory int    `toml:"backuphistory"`
		BackupCopies  int    `toml:"backupcopies"`
	} `toml:"main"`
	Paths struct {
		TasksDir     string `toml:"tasks_dir"`
		SysConfigDir string `toml:"sys_config_dir"`
	} `toml:"paths"`
}

// Default returns the built-in defaults, matching DefaultConfig: git
// backend, 200/5 history/copies, and a tasks directory under
// ~/.gistore.d or /etc/gistore depending on root.
func Default(isRoot bool, home string) File {
	var f File
	f.Main.Backend = "git"
	f.Main.RootOnly = false
	f.Main.BackupHistory = domain.DefaultBackupHistory
	f.Main.BackupCopies = domain.DefaultBackupCopies
	if isRoot {
		f.Paths.TasksDir = "/etc/gistore/tasks"
		f.Paths.SysConfigDir = "/etc/gistore"
	} else {
		f.Paths.TasksDir = joinHome(home, ".gistore.d/tasks")
		f.Paths.SysConfigDir = joinHome(home, ".gistore.d/etc")
	}
	return f
}

func joinHome(home, rel string) string {
	if home == "" {
		return rel
	}
	return strings.TrimRight(home, "/") + "/" + rel
}

// Adapter reads and writes the system defaults file.
type Adapter struct{}

// New builds a sysconfig Adapter.
func New() *Adapter {
	return &Adapter{}
}

// Load reads path, falling back to fallback (typically Default(...))
// when the file doesn't exist yet.
func (a *Adapter) Load(_ context.Context, path string, fallback File) (File, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is operator-controlled
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fallback, nil
		}
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := fallback
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return File{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as commented TOML, creating the parent
// directory if needed.
func (a *Adapter) Save(_ context.Context, path string, cfg File) error {
	if err := os.MkdirAll(dirOf(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	content := render(cfg)
	return os.WriteFile(path, []byte(content), 0o644) // #nosec G306 - not secret
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func render(cfg File) string {
	return fmt.Sprintf(`# Gistore system defaults
# Seeds every newly initialized task's repo-config.

[main]

# DVCS backend name, looked up in the static driver registry.
backend = %[1]q

# Force root-only mode (system-wide mounts) regardless of uid.
rootonly = %[2]t

# Number of commits master may carry before rotation runs.
backuphistory = %[3]d

# Number of retained generations kept across rotations.
backupcopies = %[4]d

[paths]

# Directory bare task names are looked up against.
tasks_dir = %[5]q

# Directory holding host-level configuration, such as this file.
sys_config_dir = %[6]q
`,
		cfg.Main.Backend,
		cfg.Main.RootOnly,
		cfg.Main.BackupHistory,
		cfg.Main.BackupCopies,
		cfg.Paths.TasksDir,
		cfg.Paths.SysConfigDir,
	)
}
