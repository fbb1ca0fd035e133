package domain

import "errors"

// Error kinds every operation can fail with. Each is a sentinel
// wrapped with fmt.Errorf("...: %w", KindErr) at the call site so
// callers can use errors.Is/errors.As while still getting a
// descriptive message.
var (
	// ErrNotImplemented marks an abstract driver operation that has no
	// concrete implementation. Always a bug, never reachable in a
	// correctly wired build.
	ErrNotImplemented = errors.New("not implemented")

	// ErrCommand wraps an external tool failure not matched by any
	// success predicate. Triggers the Cleanup contract and a non-zero
	// exit.
	ErrCommand = errors.New("command failed")

	// ErrUninitializedRepository means the task directory exists but
	// has no repo.git. Fatal for the current operation; batch mode
	// continues with the next task.
	ErrUninitializedRepository = errors.New("repository not initialized")

	// ErrPermissionDenied is raised by the mount engine or by
	// main.rootonly enforcement. Fatal for the current operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTaskNotExists / ErrTaskAlreadyExists guard task registry
	// lookups and task creation.
	ErrTaskNotExists      = errors.New("task does not exist")
	ErrTaskAlreadyExists  = errors.New("task already exists")

	// ErrLock is raised when a lock cannot be acquired because another
	// (possibly healthy) process holds it. It must never trigger the
	// Cleanup teardown: the mount/staging state it would tear down may
	// belong to that other, still-running process.
	ErrLock = errors.New("locked by another process")

	// ErrUsage marks a malformed invocation (e.g. direct mount/umount).
	ErrUsage = errors.New("usage error")
)

// CommandError carries the external command's exit status and
// captured output alongside ErrCommand, for logging.
type CommandError struct {
	Cmd      []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	return "command " + joinArgs(e.Cmd) + " failed: " + e.Output
}

func (e *CommandError) Unwrap() []error {
	return []error{ErrCommand, e.Err}
}

func joinArgs(args []string) string {
	s := ""
	for i, a := range args {
		if i > 0 {
			s += " "
		}
		s += a
	}
	return s
}
