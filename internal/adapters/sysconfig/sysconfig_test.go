package sysconfig

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsFallback(t *testing.T) {
	dir := t.TempDir()
	a := New()
	fallback := Default(false, "/home/user")

	cfg, err := a.Load(context.Background(), filepath.Join(dir, "config.toml"), fallback)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Main.Backend != "git" || cfg.Paths.TasksDir != "/home/user/.gistore.d/tasks" {
		t.Fatalf("unexpected fallback config: %+v", cfg)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.toml")
	a := New()

	cfg := Default(true, "")
	cfg.Main.BackupHistory = 77
	cfg.Paths.TasksDir = "/etc/gistore/tasks"

	if err := a.Save(context.Background(), path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := a.Load(context.Background(), path, Default(false, ""))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Main.BackupHistory != 77 || loaded.Paths.TasksDir != "/etc/gistore/tasks" {
		t.Fatalf("unexpected round-tripped config: %+v", loaded)
	}
	if !loaded.Main.RootOnly {
		t.Fatal("expected rootonly=true to round-trip")
	}
}

func TestDefault_SelectsPathsByUID(t *testing.T) {
	root := Default(true, "")
	if root.Paths.TasksDir != "/etc/gistore/tasks" {
		t.Fatalf("expected root tasks dir, got %s", root.Paths.TasksDir)
	}
	user := Default(false, "/home/alice")
	if user.Paths.TasksDir != "/home/alice/.gistore.d/tasks" {
		t.Fatalf("expected user tasks dir, got %s", user.Paths.TasksDir)
	}
}
