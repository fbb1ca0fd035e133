package usecase

import (
	"context"
	"testing"

	"github.com/jiangxin/gistore/internal/domain"
)

func TestInit_CreatesRootCommitAndConfig(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()

	drv.revListResults[domain.MasterBranch] = []string{"deadbeef"}

	task, err := Init(ctx, d, "/backup/myhost", InitOptions{RootOnly: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if task.Root != "/backup/myhost" {
		t.Fatalf("task root = %q", task.Root)
	}
	if !drv.initialized {
		t.Fatal("expected Init to call driver.Init")
	}
	if len(drv.committed) != 1 {
		t.Fatalf("expected exactly one root commit, got %d", len(drv.committed))
	}
	if got := drv.updatedRefs["refs/heads/"+domain.RootTag]; got != "deadbeef" {
		t.Fatalf("gistore/0 ref = %q, want deadbeef", got)
	}

	if !fs.Exists(ctx, "/backup/myhost/.gistore/gitignore-seed") {
		t.Fatal("expected gitignore seed template to be written")
	}
	if fs.Exists(ctx, "/backup/myhost/.gistore/init-worktree") {
		t.Fatal("expected scratch init work-tree to be cleaned up")
	}

	configFile := "/backup/myhost/.gistore/config"
	if drv.configs[configFile]["main.backend"] != "fake-test" {
		t.Fatalf("expected saved config to record the selected backend, got %v", drv.configs[configFile])
	}
}

func TestInit_RejectsExistingRepo(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()

	fs.MkdirAll(ctx, "/backup/myhost/repo.git")

	_, err := Init(ctx, d, "/backup/myhost", InitOptions{})
	if err == nil {
		t.Fatal("expected error for already-initialized task")
	}
}
