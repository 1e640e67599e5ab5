// Package drift detects divergence between an issue's lifecycle state and its
// project board status. Classification is pure: it takes a fetched snapshot
// and returns flagged items without performing any I/O.
package drift

import (
	"fmt"

	"github.com/robby/ghsync/internal/domain"
)

// Classify compares each item's lifecycle state against its board status and
// returns one Inconsistency per contradicting item. doneStatuses defaults to
// domain.DefaultDoneStatuses when nil.
//
// Rules, evaluated independently per item (no item matches more than one):
//
//  1. OPEN issue whose board status is terminal (Done/Released) -> error.
//     The issue should have been closed when work finished.
//  2. CLOSED issue whose board status is a non-empty, non-terminal value ->
//     error when the status implies work started (In Progress, Review, ...),
//     info otherwise. A closed issue in Backlog or Icebox may be an
//     intentional "won't do", so it is surfaced but never auto-fixed.
//
// Status comparison is case-sensitive and exact. Output order matches input
// order. The function is total: it never fails, and empty input yields empty
// output.
func Classify(items []domain.WorkItem, doneStatuses []string) []domain.Inconsistency {
	if doneStatuses == nil {
		doneStatuses = domain.DefaultDoneStatuses
	}

	inconsistencies := make([]domain.Inconsistency, 0)
	for _, item := range items {
		switch {
		case item.State == domain.StateOpen && domain.StatusIn(item.BoardStatus, doneStatuses):
			inconsistencies = append(inconsistencies, domain.Inconsistency{
				Number:        item.Number,
				IssueState:    item.State,
				ProjectStatus: item.BoardStatus,
				Severity:      domain.SeverityError,
				Description: fmt.Sprintf("Issue #%d is OPEN but board status is %q",
					item.Number, item.BoardStatus),
			})

		case item.State == domain.StateClosed && item.BoardStatus != "" &&
			!domain.StatusIn(item.BoardStatus, doneStatuses):
			severity := domain.SeverityInfo
			if domain.StatusIn(item.BoardStatus, domain.WorkStartedStatuses) {
				severity = domain.SeverityError
			}
			inconsistencies = append(inconsistencies, domain.Inconsistency{
				Number:        item.Number,
				IssueState:    item.State,
				ProjectStatus: item.BoardStatus,
				Severity:      severity,
				Description: fmt.Sprintf("Issue #%d is CLOSED but board status is %q",
					item.Number, item.BoardStatus),
			})
		}
	}

	return inconsistencies
}
