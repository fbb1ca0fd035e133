//go:build !windows

package lock

// isProcessRunningWindows is never called on this build; isProcessRunning
// branches on runtime.GOOS before reaching it.
func isProcessRunningWindows(int) bool {
	return false
}
