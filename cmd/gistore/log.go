package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jiangxin/gistore/internal/usecase"
)

func newLogCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	var task string

	cmd := &cobra.Command{
		Use:   "log [-- <git log args>]",
		Short: "Show a task's history through its current graft file",
		Run: func(cmd *cobra.Command, args []string) {
			deps := getDeps()
			defer attachTaskFileLogging(ctx, deps, task, false)()
			out, err := usecase.Log(ctx, deps, task, args...)
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			fmt.Fprint(os.Stdout, out)
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().StringVarP(&task, "task", "t", "", "task to read (defaults to the current directory)")
	return cmd
}
