package usecase

import (
	"context"
	"testing"
)

func TestAddSource_PersistsEntry(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()
	root := "/backup/myhost"

	setupInitializedTask(t, fs, drv, d, root)
	fs.MkdirAll(ctx, "/etc")

	if err := AddSource(ctx, d, root, "/etc", SourceOptions{System: true}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	configFile := root + "/.gistore/config"
	cfg := drv.configs[configFile]
	if cfg["store./etc.enabled"] != "true" {
		t.Fatalf("expected /etc to be enabled, got %v", cfg)
	}
	if cfg["store./etc.system"] != "true" {
		t.Fatalf("expected /etc to be marked system, got %v", cfg)
	}
}

func TestAddSource_RejectsPathInsideTaskRoot(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()
	root := "/backup/myhost"

	setupInitializedTask(t, fs, drv, d, root)
	fs.MkdirAll(ctx, root+"/nested")

	err := AddSource(ctx, d, root, root+"/nested", SourceOptions{})
	if err == nil {
		t.Fatal("expected rejection for a source nested inside the task root")
	}
}

func TestRemoveSource_DisablesRatherThanDeletes(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()
	root := "/backup/myhost"

	setupInitializedTask(t, fs, drv, d, root)
	fs.MkdirAll(ctx, "/etc")
	if err := AddSource(ctx, d, root, "/etc", SourceOptions{System: true}); err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	if err := RemoveSource(ctx, d, root, "/etc"); err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}

	configFile := root + "/.gistore/config"
	cfg := drv.configs[configFile]
	if cfg["store./etc.enabled"] != "false" {
		t.Fatalf("expected /etc to be disabled, not deleted, got %v", cfg)
	}
	if cfg["store./etc.system"] != "true" {
		t.Fatalf("expected the rest of the stanza to survive rm as an audit record, got %v", cfg)
	}
}

func TestStatus_ReportsLockState(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()
	root := "/backup/myhost"

	setupInitializedTask(t, fs, drv, d, root)

	report, err := Status(ctx, d, root)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.MountLocked || report.CommitLocked {
		t.Fatal("expected no locks held before any Commit runs")
	}
	if report.Config == nil {
		t.Fatal("expected a loaded config")
	}
}

func TestList_ReturnsRegisteredTasks(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()

	fs.addLink("/tasks/myhost", "/backup/myhost")
	fs.MkdirAll(ctx, "/backup/myhost")

	tasks, err := List(ctx, d)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Name != "myhost" {
		t.Fatalf("unexpected task list: %+v", tasks)
	}
}

func TestCommitAll_ContinuesPastFailedTask(t *testing.T) {
	fs := newFakeFS()
	drv := newFakeDriver()
	d := newTestDeps(fs, drv)
	ctx := context.Background()

	fs.addLink("/tasks/broken", "/backup/broken")
	fs.MkdirAll(ctx, "/backup/broken")

	results, err := CommitAll(ctx, d, "")
	if err != nil {
		t.Fatalf("CommitAll: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Fatal("expected the uninitialized task to fail")
	}
	if !IsRecoverable(results[0].Err) {
		t.Fatalf("expected ErrUninitializedRepository to be recoverable, got %v", results[0].Err)
	}

	failed := Failed(results)
	if len(failed) != 1 {
		t.Fatalf("expected one failed task, got %d", len(failed))
	}
}
