package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/jiangxin/gistore/internal/domain"
)

// summarizeStatus groups raw `git status --porcelain` lines by their
// leading status-code token.
func summarizeStatus(lines []string) domain.CommitSummary {
	summary := domain.CommitSummary{ByStatus: map[string][]string{}}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(strings.TrimLeft(line, " "), " ", 2)
		code := fields[0]
		rest := ""
		if len(fields) > 1 {
			rest = strings.TrimSpace(fields[1])
		}
		summary.ByStatus[code] = append(summary.ByStatus[code], rest)
		summary.Total++
	}
	return summary
}

// sampleCount is the number of representative paths shown per status
// code in the commit message detail line, matching the original's
// `sample = 5`.
const sampleCount = 5

// renderCommitSummary renders the "Changes summary" block the
// original always appends to a commit message: a total+per-code count
// header, a rule, then one line per status code with a strided sample
// of its paths and a "...N more..." tail when there are more than
// sampleCount of them.
func renderCommitSummary(summary domain.CommitSummary) string {
	codes := make([]string, 0, len(summary.ByStatus))
	for code := range summary.ByStatus {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var counts []string
	for _, code := range codes {
		counts = append(counts, fmt.Sprintf("%s: %d", code, len(summary.ByStatus[code])))
	}
	header := fmt.Sprintf("Changes summary: total= %d, %s", summary.Total, strings.Join(counts, ", "))

	lines := []string{header, strings.Repeat("-", len(header))}
	for _, code := range codes {
		paths := summary.ByStatus[code]
		lines = append(lines, fmt.Sprintf("    %s => %s", code, strings.Join(sampleStrided(paths), ", ")))
	}
	return strings.Join(lines, "\n")
}

// sampleStrided picks sampleCount entries at a fixed stride through
// paths, appending a "...N more..." marker for the remainder, or
// returns paths unchanged when there are too few to stride over
// (step < 1), exactly as the original's commit_summary does.
func sampleStrided(paths []string) []string {
	total := len(paths)
	step := total / sampleCount
	if step < 1 {
		return paths
	}
	out := make([]string, 0, sampleCount+1)
	for i := 0; i < sampleCount; i++ {
		out = append(out, paths[i*step])
	}
	out = append(out, fmt.Sprintf("...%d more...", total-sampleCount))
	return out
}

// buildCommitMessage composes the final commit message: the caller's
// own text (if any) followed by a blank line and the rendered
// summary, or the summary alone when userText is empty.
func buildCommitMessage(userText string, lines []string) string {
	summary := renderCommitSummary(summarizeStatus(lines))
	if strings.TrimSpace(userText) == "" {
		return summary
	}
	return userText + "\n\n" + summary
}

// largeChangesetThreshold is the line count at or above which Commit
// bothers diffing successive status snapshots
// to report exactly what a re-add pass newly surfaced, rather than
// re-scanning the whole (potentially huge) accumulated list.
const largeChangesetThreshold = 200

// newStatusLines reports which lines in next were not present in
// prev, using go-diff's line-mode diff so a large accumulated
// snapshot is compared in roughly linear time rather than with a
// naive set difference. It returns nil without diffing when next has
// fewer than largeChangesetThreshold lines.
func newStatusLines(prev, next []string) []string {
	if len(next) < largeChangesetThreshold {
		return nil
	}
	dmp := diffmatchpatch.New()
	prevText, nextText, lineArray := dmp.DiffLinesToChars(strings.Join(prev, "\n"), strings.Join(next, "\n"))
	diffs := dmp.DiffMain(prevText, nextText, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var added []string
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffInsert {
			continue
		}
		for _, l := range strings.Split(strings.Trim(d.Text, "\n"), "\n") {
			if l != "" {
				added = append(added, l)
			}
		}
	}
	return added
}
