// Package gitstate snapshots local repository state for pre-session and
// end-of-session checks. Everything here degrades to safe defaults: a missing
// git binary or a non-repository directory yields an empty snapshot, never an
// error surfaced to the caller.
package gitstate

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/robby/ghsync/internal/debug"
)

// Commit is one entry of the recent-history window.
type Commit struct {
	Hash    string
	Message string
}

// Inspector reads local version-control state. CLI shells out to git; tests
// use canned implementations.
type Inspector interface {
	// CurrentBranch returns the checked-out branch name, or "" for a
	// detached HEAD.
	CurrentBranch(ctx context.Context) (string, error)
	// UncommittedChanges returns `git status --porcelain` lines.
	UncommittedChanges(ctx context.Context) ([]string, error)
	// UnpushedCount returns the commits ahead of upstream. ok is false when
	// no upstream is configured, which callers must treat as indeterminate
	// rather than zero.
	UnpushedCount(ctx context.Context) (count int, ok bool, err error)
	// RecentCommits returns up to limit most recent commits, newest first.
	RecentCommits(ctx context.Context, limit int) ([]Commit, error)
}

// CLI is the production Inspector, shelling out to git in Dir.
type CLI struct {
	Dir string
}

func (c *CLI) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *CLI) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		// rev-parse prints the literal "HEAD" when detached.
		return "", nil
	}
	return out, nil
}

func (c *CLI) UncommittedChanges(ctx context.Context) ([]string, error) {
	out, err := c.git(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (c *CLI) UnpushedCount(ctx context.Context) (int, bool, error) {
	out, err := c.git(ctx, "rev-list", "--count", "@{u}..HEAD")
	if err != nil {
		// rev-list fails when no upstream is configured; that is
		// indeterminate, not an error.
		debug.Logf("gitstate: rev-list @{u}..HEAD failed: %v", err)
		return 0, false, nil
	}
	count, err := strconv.Atoi(out)
	if err != nil {
		return 0, false, nil
	}
	return count, true, nil
}

func (c *CLI) RecentCommits(ctx context.Context, limit int) ([]Commit, error) {
	out, err := c.git(ctx, "log", "-n", strconv.Itoa(limit), "--format=%h%x09%s")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	lines := strings.Split(out, "\n")
	commits := make([]Commit, 0, len(lines))
	for _, line := range lines {
		hash, msg, _ := strings.Cut(line, "\t")
		commits = append(commits, Commit{Hash: hash, Message: msg})
	}
	return commits, nil
}
