package app

import (
	"log/slog"
	"testing"

	"github.com/jiangxin/gistore/internal/adapters/sysconfig"
)

func TestNewDefaultDependencies(t *testing.T) {
	sysCfg := sysconfig.Default(false, "/home/test")
	deps := NewDefaultDependencies(slog.Default(), sysCfg, "/run/gistore", false)

	if deps == nil {
		t.Fatal("expected Dependencies to be created, got nil")
	}
	if deps.FS == nil {
		t.Error("expected FS adapter to be set")
	}
	if deps.Tasks == nil {
		t.Error("expected Tasks registry to be set")
	}
	if deps.Resolver == nil {
		t.Error("expected Resolver to be set")
	}
	if deps.Mount == nil {
		t.Error("expected Mount adapter to be set")
	}
	if deps.Locks == nil {
		t.Error("expected Locks factory to be set")
	}
	if deps.ConfigDriver == nil {
		t.Error("expected ConfigDriver factory to be set")
	}
	if deps.Locks("/some/lock/dir") == nil {
		t.Error("expected Locks factory to build a usable LockPort")
	}
	if deps.ConfigDriver() == nil {
		t.Error("expected ConfigDriver factory to build a usable Driver")
	}
	if deps.PID == 0 {
		t.Error("expected PID to be set to the running process's pid")
	}
}
