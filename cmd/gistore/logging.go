package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jiangxin/gistore/internal/adapters/loghandler"
	"github.com/jiangxin/gistore/internal/domain"
	"github.com/jiangxin/gistore/internal/usecase"
)

// attachTaskFileLogging resolves arg against the task registry and, if
// that succeeds, combines the process's stderr logger with a file
// handler under the task's own log directory, mirroring the teacher's
// withFileLogging/MultiHandler combination but scoped to one task
// instead of one global config directory. Resolution failures are
// left for the subcommand's own usecase call to report; this helper
// only adds logging and never itself fails the command.
func attachTaskFileLogging(ctx context.Context, d *usecase.Dependencies, arg string, forInit bool) func() {
	var task domain.Task
	var err error
	if forInit {
		task, err = d.Tasks.ResolveForInit(ctx, arg)
	} else {
		task, err = d.Tasks.Resolve(ctx, arg)
	}
	if err != nil {
		return func() {}
	}

	dir := filepath.Join(task.Root, domain.LogDir)
	if err := d.FS.MkdirAll(ctx, dir); err != nil {
		d.Logger.Warn("cannot create log directory", "path", dir, "error", err)
		return func() {}
	}

	filename := fmt.Sprintf("gistore-%d-%d.log", os.Getpid(), nowUnix())
	logPath := filepath.Join(dir, filename)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path derives from the task's own log dir
	if err != nil {
		d.Logger.Warn("cannot open log file", "path", logPath, "error", err)
		return func() {}
	}

	fileHandler := loghandler.NewHandler(f, &loghandler.Options{Level: slog.LevelDebug, UseColor: false})
	combined := loghandler.NewMultiHandler(d.Logger.Handler(), fileHandler)
	d.Logger = slog.New(combined)
	return func() { _ = f.Close() }
}

func nowUnix() int64 {
	return time.Now().UnixNano()
}
