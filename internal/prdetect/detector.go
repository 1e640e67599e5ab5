// Package prdetect locates the merged pull request that completed an issue.
// The result is used to decide whether an issue can safely be closed when its
// board says the work is done.
package prdetect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/robby/ghsync/internal/domain"
)

// MergedPR is the slice of pull request data the detector needs.
type MergedPR struct {
	Number     int
	Title      string
	Body       string
	HeadBranch string
}

// Searcher performs merged-PR searches. The gh client implements it; tests
// supply canned results.
type Searcher interface {
	// MergedPRsByHeadBranch returns merged PRs whose source branch equals branch.
	MergedPRsByHeadBranch(ctx context.Context, owner, repo, branch string) ([]MergedPR, error)
	// MergedPRsMentioning returns merged PRs whose body contains "#<number>".
	MergedPRsMentioning(ctx context.Context, owner, repo string, number int) ([]MergedPR, error)
}

// BranchReader reports the current local branch. An empty branch with a nil
// error means detached HEAD.
type BranchReader interface {
	CurrentBranch(ctx context.Context) (string, error)
}

// closesRef matches GitHub's closing-keyword syntax ("closes #12",
// "Fixes: #7", ...) so a candidate body's references can be checked exactly
// rather than by substring.
var closesRef = regexp.MustCompile(`(?i)\b(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s*:?\s+#(\d+)`)

// Detector finds the merged PR for an issue using two fallback strategies.
type Detector struct {
	Search            Searcher
	Git               BranchReader
	ProtectedBranches []string
}

// FindMergedPRForIssue returns the number of the merged PR that completed the
// issue, or ok=false when no PR can be attributed. Strategies, first match
// wins:
//
//  1. Branch heuristic: when the current local branch is a feature branch,
//     a merged PR from that branch is taken as the completing PR.
//  2. Back-reference heuristic: merged PRs mentioning "#<n>" are fetched and
//     each body is parsed for structured closes/fixes references. The parse
//     step guards against the mention being a numeric-prefix coincidence
//     (e.g. "#22" inside "#220").
//
// Search failures are treated as "no data" rather than surfaced: the detector
// is a heuristic and callers fall back to manual attribution.
func (d *Detector) FindMergedPRForIssue(ctx context.Context, owner, repo string, number int) (int, bool) {
	if pr, ok := d.byCurrentBranch(ctx, owner, repo); ok {
		return pr, true
	}
	return d.byBackReference(ctx, owner, repo, number)
}

func (d *Detector) byCurrentBranch(ctx context.Context, owner, repo string) (int, bool) {
	if d.Git == nil {
		return 0, false
	}
	branch, err := d.Git.CurrentBranch(ctx)
	if err != nil || branch == "" {
		// Detached HEAD or not a repository: skip the branch heuristic.
		return 0, false
	}
	if domain.StatusIn(branch, d.protected()) {
		return 0, false
	}

	prs, err := d.Search.MergedPRsByHeadBranch(ctx, owner, repo, branch)
	if err != nil || len(prs) == 0 {
		return 0, false
	}
	return prs[0].Number, true
}

func (d *Detector) byBackReference(ctx context.Context, owner, repo string, number int) (int, bool) {
	prs, err := d.Search.MergedPRsMentioning(ctx, owner, repo, number)
	if err != nil {
		return 0, false
	}

	needle := fmt.Sprintf("#%d", number)
	for _, pr := range prs {
		if !strings.Contains(pr.Body, needle) {
			continue
		}
		for _, ref := range parseClosingRefs(pr.Body) {
			if ref == number {
				return pr.Number, true
			}
		}
	}
	return 0, false
}

func (d *Detector) protected() []string {
	if d.ProtectedBranches != nil {
		return d.ProtectedBranches
	}
	return domain.DefaultProtectedBranches
}

// parseClosingRefs extracts the issue numbers named by closing keywords in a
// PR body.
func parseClosingRefs(body string) []int {
	matches := closesRef.FindAllStringSubmatch(body, -1)
	refs := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		refs = append(refs, n)
	}
	return refs
}
