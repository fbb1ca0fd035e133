package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jiangxin/gistore/internal/domain"
)

// newMountRefusedCmd builds a command registered under use (plus any
// aliases) that always refuses to run: mount and umount exist only as
// internal steps of commit, never as standalone operations a caller
// can invoke directly.
func newMountRefusedCmd(use string, aliases ...string) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Aliases: aliases,
		Short:   fmt.Sprintf("Refused: %s is not a standalone command", use),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return fmt.Errorf("%s: only runs as part of commit: %w", use, domain.ErrUsage)
		},
	}
}
