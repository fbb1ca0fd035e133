package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jiangxin/gistore/internal/domain"
)

const (
	exitSuccess       = 0
	exitCriticalError = 1
	exitUsageError    = 2
	exitLockBusy      = 76
	exitInterrupted   = 130
)

// mapExitCode distinguishes failure kinds so batch-mode and shell
// callers can tell a lock collision (another,
// possibly healthy process is using this task right now) apart from a
// genuine failure.
func mapExitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, domain.ErrUsage), errors.Is(err, domain.ErrTaskNotExists), errors.Is(err, domain.ErrTaskAlreadyExists):
		return exitUsageError
	case errors.Is(err, domain.ErrLock):
		return exitLockBusy
	default:
		return exitCriticalError
	}
}

func mapExitCodeWithLog(err error) int {
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(os.Stderr, err)
	return mapExitCode(err)
}

// handleCmdError prints err to stderr and records the exit code a
// subcommand's Run should leave behind.
func handleCmdError(exitCode *int, err error) {
	if err == nil {
		*exitCode = exitSuccess
		return
	}
	fmt.Fprintln(os.Stderr, err)
	*exitCode = mapExitCode(err)
}
