package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jiangxin/gistore/internal/usecase"
)

func newStatusCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status [task]",
		Aliases: []string{"stat", "stats"},
		Short:   "Show a task's configuration and lock state",
		Args:    cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			deps := getDeps()
			defer attachTaskFileLogging(ctx, deps, arg, false)()
			report, err := usecase.Status(ctx, deps, arg)
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			fmt.Fprintf(os.Stdout, "task:     %s\n", report.Task.Root)
			if report.Task.Name != "" {
				fmt.Fprintf(os.Stdout, "name:     %s\n", report.Task.Name)
			}
			fmt.Fprintf(os.Stdout, "backend:  %s\n", report.Config.Backend)
			fmt.Fprintf(os.Stdout, "rootonly: %t\n", report.Config.RootOnly)
			fmt.Fprintf(os.Stdout, "history:  %d\n", report.Config.BackupHistory)
			fmt.Fprintf(os.Stdout, "copies:   %d\n", report.Config.BackupCopies)
			fmt.Fprintf(os.Stdout, "sources:  %d\n", len(report.Config.Store))
			fmt.Fprintf(os.Stdout, "mount lock held:  %t\n", report.MountLocked)
			fmt.Fprintf(os.Stdout, "commit lock held: %t\n", report.CommitLocked)
			*exitCode = exitSuccess
		},
	}
	return cmd
}
