package usecase

import (
	"context"

	"github.com/jiangxin/gistore/internal/domain"
)

// Log returns `git log` output for a task's history, read through
// whichever graft file its current rotation generation points at
//. extraArgs
// are passed straight through to the driver, e.g. "-p", "--stat", a
// path limiter, or a revision range.
func Log(ctx context.Context, d *Dependencies, arg string, extraArgs ...string) (string, error) {
	h, err := openTask(ctx, d, arg)
	if err != nil {
		return "", err
	}
	if _, err := h.loadConfig(ctx, d, true); err != nil {
		return "", err
	}
	args := append([]string{domain.MasterBranch}, extraArgs...)
	return h.Content.Log(ctx, h.GitDir, join(h.GitDir, domain.GraftFile), args)
}
