package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jiangxin/gistore/internal/usecase"
)

func newCommitCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:     "commit [task]",
		Aliases: []string{"ci", "checkin"},
		Short:   "Mount, rotate if due, and snapshot a task",
		Args:    cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			deps := getDeps()
			defer attachTaskFileLogging(ctx, deps, arg, false)()
			if err := usecase.Commit(ctx, deps, arg, message); err != nil {
				handleCmdError(exitCode, err)
				return
			}
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message prefix")
	return cmd
}

func newCommitAllCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit-all",
		Short: "Run commit across every registered task",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			results, err := usecase.CommitAll(ctx, getDeps(), message)
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			failed := usecase.Failed(results)
			for _, r := range failed {
				fmt.Fprintf(os.Stderr, "%s: %v\n", r.Task.Root, r.Err)
			}
			if len(failed) > 0 {
				*exitCode = exitCriticalError
				return
			}
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message prefix")
	return cmd
}
