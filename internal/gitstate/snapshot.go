package gitstate

import (
	"context"

	"github.com/robby/ghsync/internal/debug"
	"github.com/robby/ghsync/internal/domain"
)

// recentCommitWindow caps the recent-history list in a preflight snapshot.
const recentCommitWindow = 10

// Snapshot is the basic local repository state.
type Snapshot struct {
	CurrentBranch         string   // "" when detached or not a repository
	UncommittedChanges    []string // porcelain status lines
	HasUncommittedChanges bool     // always len(UncommittedChanges) > 0
}

// PreflightSnapshot extends Snapshot with the fields checked before a work
// session starts or ends.
type PreflightSnapshot struct {
	Snapshot
	BaseBranch      string   // branch work is merged back into
	IsFeatureBranch bool     // false when the current branch is protected
	UnpushedCommits *int     // nil when no upstream is configured
	RecentCommits   []Commit // up to 10, newest first
}

// GetSnapshot reads the basic git state. It never fails: any inspector error
// degrades to the zero snapshot so session checks can proceed.
func GetSnapshot(ctx context.Context, insp Inspector) Snapshot {
	var snap Snapshot

	branch, err := insp.CurrentBranch(ctx)
	if err != nil {
		debug.Logf("gitstate: current branch unavailable: %v", err)
	} else {
		snap.CurrentBranch = branch
	}

	changes, err := insp.UncommittedChanges(ctx)
	if err != nil {
		debug.Logf("gitstate: status unavailable: %v", err)
	} else {
		snap.UncommittedChanges = changes
	}
	snap.HasUncommittedChanges = len(snap.UncommittedChanges) > 0

	return snap
}

// GetPreflightSnapshot reads the extended git state. A nil protectedBranches
// means domain.DefaultProtectedBranches; an empty baseBranch defaults to the
// first protected branch.
func GetPreflightSnapshot(ctx context.Context, insp Inspector, protectedBranches []string, baseBranch string) PreflightSnapshot {
	snap := PreflightSnapshot{Snapshot: GetSnapshot(ctx, insp)}

	if protectedBranches == nil {
		protectedBranches = domain.DefaultProtectedBranches
	}
	if baseBranch == "" && len(protectedBranches) > 0 {
		baseBranch = protectedBranches[0]
	}

	if snap.CurrentBranch != "" {
		snap.BaseBranch = baseBranch
		snap.IsFeatureBranch = !domain.StatusIn(snap.CurrentBranch, protectedBranches)
	}

	if count, ok, err := insp.UnpushedCount(ctx); err != nil {
		debug.Logf("gitstate: unpushed count unavailable: %v", err)
	} else if ok {
		snap.UnpushedCommits = &count
	}

	commits, err := insp.RecentCommits(ctx, recentCommitWindow)
	if err != nil {
		debug.Logf("gitstate: recent commits unavailable: %v", err)
	} else {
		snap.RecentCommits = commits
	}

	return snap
}
