package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jiangxin/gistore/internal/usecase"
)

func newInitCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	var rootOnly bool

	cmd := &cobra.Command{
		Use:     "init [task]",
		Aliases: []string{"initialize"},
		Short:   "Create a new task: bare repository, root commit, default config",
		Args:    cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			deps := getDeps()
			defer attachTaskFileLogging(ctx, deps, arg, true)()
			task, err := usecase.Init(ctx, deps, arg, usecase.InitOptions{RootOnly: rootOnly})
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			fmt.Fprintf(os.Stdout, "initialized task at %s\n", task.Root)
			*exitCode = exitSuccess
		},
	}

	cmd.Flags().BoolVar(&rootOnly, "root-only", false, "require root privileges for every later commit")
	return cmd
}
