package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jiangxin/gistore/internal/usecase"
)

func newAddCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	var opts usecase.SourceOptions
	var task string

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a backup source path under a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deps := getDeps()
			defer attachTaskFileLogging(ctx, deps, task, false)()
			if err := usecase.AddSource(ctx, deps, task, args[0], opts); err != nil {
				handleCmdError(exitCode, err)
				return
			}
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "task to add to (defaults to the current directory)")
	cmd.Flags().BoolVar(&opts.Disabled, "disabled", false, "register the source but skip it on commit")
	cmd.Flags().BoolVar(&opts.System, "system", false, "mark the source as system-owned")
	cmd.Flags().BoolVar(&opts.KeepPerm, "keep-perm", false, "preserve original file permissions in staging")
	cmd.Flags().BoolVar(&opts.KeepEmptyDir, "keep-empty-dir", false, "keep empty directories that would otherwise be pruned")
	return cmd
}

func newRemoveCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:     "rm <path>",
		Aliases: []string{"remove"},
		Short:   "Deregister a backup source path",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			deps := getDeps()
			defer attachTaskFileLogging(ctx, deps, task, false)()
			if err := usecase.RemoveSource(ctx, deps, task, args[0]); err != nil {
				handleCmdError(exitCode, err)
				return
			}
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "task to remove from (defaults to the current directory)")
	return cmd
}
