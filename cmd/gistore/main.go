package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jiangxin/gistore/internal/adapters/loghandler"
	"github.com/jiangxin/gistore/internal/adapters/sysconfig"
	"github.com/jiangxin/gistore/internal/app"
	"github.com/jiangxin/gistore/internal/usecase"
)

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
		syscall.SIGABRT,
	)
	defer stop()

	var verbose, quiet bool
	root := &cobra.Command{
		Use:                  "gistore",
		Short:                "Host-level backup versioning over bind-mounted staging trees",
		SilenceUsage:         false,
		SilenceErrors:        true,
		EnablePrefixMatching: true,
	}
	root.SetErr(os.Stderr)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet (warnings and above only) logging")

	var deps *usecase.Dependencies
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		logger := setupLogger(verbose, quiet)
		built, err := buildDependencies(ctx, logger)
		if err != nil {
			return err
		}
		deps = built
		return nil
	}

	exitCode := exitSuccess
	getDeps := func() *usecase.Dependencies { return deps }

	root.AddCommand(newListCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newStatusCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newInitCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newCommitCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newCommitAllCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newAddCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newRemoveCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newLogCmd(ctx, getDeps, &exitCode))
	root.AddCommand(newMountRefusedCmd("mount", "mnt"))
	root.AddCommand(newMountRefusedCmd("umount", "unmount", "umnt", "unmnt"))
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == exitSuccess {
			exitCode = mapExitCode(err)
		}
	}
	return exitCode
}

// buildDependencies loads system-level defaults (SUPPLEMENTED FEATURES
// "system-level config file") and wires the real adapters behind them.
func buildDependencies(ctx context.Context, logger *slog.Logger) (*usecase.Dependencies, error) {
	isRoot := os.Geteuid() == 0
	home, err := os.UserHomeDir()
	if err != nil && !isRoot {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	fallback := sysconfig.Default(isRoot, home)
	sysCfgAdapter := sysconfig.New()
	sysCfg, err := sysCfgAdapter.Load(ctx, filepath.Join(fallback.Paths.SysConfigDir, "gistore.toml"), fallback)
	if err != nil {
		return nil, fmt.Errorf("load system config: %w", err)
	}

	runtimeDir := "/var/run/gistore"
	if !isRoot {
		runtimeDir = filepath.Join(home, ".gistore.d/run")
	}

	return app.NewDefaultDependencies(logger, sysCfg, runtimeDir, isRoot), nil
}

func setupLogger(verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}
	handler := loghandler.NewHandler(os.Stderr, &loghandler.Options{
		Level:    level,
		UseColor: shouldUseColor(os.Stderr),
	})
	return slog.New(handler)
}

func shouldUseColor(f *os.File) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
