// Package domain defines the normalized domain types for workflow state
// reconciliation. These types represent the core concepts independent of the
// GitHub GraphQL API structure.
package domain

import "time"

// LifecycleState is an issue's OPEN/CLOSED status as tracked by the issue
// system itself, independent of any project board.
type LifecycleState string

const (
	StateOpen   LifecycleState = "OPEN"
	StateClosed LifecycleState = "CLOSED"
)

// WorkItem is an immutable snapshot of a single issue and its best-matching
// project board item, fetched once per run.
type WorkItem struct {
	Number    int            // Issue number, unique within a repository
	Title     string         // Issue title
	URL       string         // Issue URL
	IssueID   string         // GitHub issue node ID, used for mutations (may be empty)
	State     LifecycleState // OPEN or CLOSED
	ClosedAt  *time.Time     // When the issue was closed, nil if open or unknown
	Labels    []string       // Label names in API order
	Assignees []string       // Login names of assigned users, may be empty

	// Board fields. BoardItemID and BoardID are either both empty (the issue
	// is not on any board) or both set.
	BoardStatus string // Single-select Status value, empty if unset or off-board
	Priority    string // Single-select Priority value, optional
	Size        string // Single-select Size value, optional
	BoardItemID string // ProjectV2Item node ID, empty if not on a board
	BoardID     string // ProjectV2 node ID, empty if not on a board
}

// OnBoard reports whether the item has a project board reference.
func (w WorkItem) OnBoard() bool {
	return w.BoardItemID != "" && w.BoardID != ""
}

// Severity classifies how actionable an inconsistency is. Errors are
// auto-fixable contradictions; info items need human judgment.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityInfo  Severity = "info"
)

// Inconsistency is a single detected divergence between an issue's lifecycle
// state and its board status. Derived fresh every run, never persisted.
type Inconsistency struct {
	Number        int            `json:"number"`         // issue number this refers to
	IssueState    LifecycleState `json:"issue_state"`    // lifecycle state at classification time
	ProjectStatus string         `json:"project_status"` // board status at classification time
	Severity      Severity       `json:"severity"`
	Description   string         `json:"description"` // human-readable, names both states verbatim
}

// FixAction identifies which corrective action a FixResult records.
type FixAction string

const (
	ActionClose             FixAction = "close"
	ActionUpdateStatus      FixAction = "update-status"
	ActionBackfillTimestamp FixAction = "backfill-timestamp"
)

// FixResult records one attempted corrective action. Error is set iff the
// attempt failed; failures are never retried within the same run.
type FixResult struct {
	Number  int       `json:"number"`
	Action  FixAction `json:"action"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

// Summary rolls per-item outcomes into the counts reported to the caller.
type Summary struct {
	TotalChecked         int `json:"total_checked"`
	TotalInconsistencies int `json:"total_inconsistencies"`
	Errors               int `json:"errors"`
	Info                 int `json:"info"`
	Fixed                int `json:"fixed"`
	FixFailures          int `json:"fix_failures"`
}

// Report is the composed result of one reconciliation run.
type Report struct {
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	Fixes           []FixResult     `json:"fixes"`
	Summary         Summary         `json:"summary"`
}

// FieldDef represents a project field definition with its metadata.
type FieldDef struct {
	ID      string   // GitHub field node ID
	Name    string   // Field name (e.g., "Status")
	Type    string   // Field type (e.g., "SINGLE_SELECT", "TEXT")
	Options []Option // Available options for SINGLE_SELECT fields
}

// Option represents a single option value for a SINGLE_SELECT field.
type Option struct {
	ID   string // GitHub option node ID
	Name string // Option name displayed to users (e.g., "In Progress", "Done")
}

// FieldType constants for commonly used field types.
const (
	FieldTypeSingleSelect = "SINGLE_SELECT"
	FieldTypeText         = "TEXT"
	FieldTypeDate         = "DATE"
)

// Status vocabulary. Comparison against these sets is case-sensitive and
// exact; "done" is not "Done".
var (
	// DefaultDoneStatuses are the board statuses considered terminal.
	DefaultDoneStatuses = []string{"Done", "Released"}

	// WorkStartedStatuses are board statuses implying active work began.
	// A CLOSED issue sitting in one of these is a contradiction worth fixing;
	// a CLOSED issue in any other pre-work status may be an intentional
	// "won't do" and is only reported as info.
	WorkStartedStatuses = []string{"In Progress", "Review", "Pending", "Testing"}

	// DefaultProtectedBranches are branches no feature work should happen
	// on. The preflight checks warn when one is checked out, and the PR
	// branch heuristic never attributes work to one.
	DefaultProtectedBranches = []string{"main", "master", "develop"}
)

// StatusIn reports whether status is an exact member of set.
func StatusIn(status string, set []string) bool {
	for _, s := range set {
		if status == s {
			return true
		}
	}
	return false
}
