package gitstate

import "fmt"

// GeneratePreflightWarnings turns a snapshot plus the interrupted-session
// backup count into human-readable warnings. Each condition is independent
// and all may co-occur; the output order is fixed (branch, uncommitted,
// unpushed, backups) so repeated runs are diffable. A clean state yields an
// empty slice.
func GeneratePreflightWarnings(snap PreflightSnapshot, backupCount int) []string {
	warnings := []string{}

	if snap.CurrentBranch != "" && !snap.IsFeatureBranch {
		warnings = append(warnings, fmt.Sprintf(
			"Working on protected branch %q; switch to a feature branch before making changes",
			snap.CurrentBranch))
	}

	if snap.HasUncommittedChanges {
		warnings = append(warnings, fmt.Sprintf(
			"%d uncommitted change(s) in the working tree", len(snap.UncommittedChanges)))
	}

	if snap.UnpushedCommits != nil && *snap.UnpushedCommits > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d unpushed commit(s) on %q; push before ending the session",
			*snap.UnpushedCommits, snap.CurrentBranch))
	}

	if backupCount > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"%d PreCompact backup(s) found; a previous session may have been interrupted",
			backupCount))
	}

	return warnings
}
