package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jiangxin/gistore/internal/usecase"
)

func newListCmd(ctx context.Context, getDeps func() *usecase.Dependencies, exitCode *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every registered task",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			tasks, err := usecase.List(ctx, getDeps())
			if err != nil {
				handleCmdError(exitCode, err)
				return
			}
			for _, t := range tasks {
				name := t.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(os.Stdout, "%s\t%s\n", name, t.Root)
			}
			*exitCode = exitSuccess
		},
	}
	return cmd
}
