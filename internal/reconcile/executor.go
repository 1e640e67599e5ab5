// Package reconcile applies corrective actions for detected drift and rolls
// per-item outcomes into a run summary. The core contract is failure
// isolation: one item's failed fix never aborts the rest of the pass.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/robby/ghsync/internal/domain"
	"github.com/robby/ghsync/internal/drift"
)

// Issue close reasons accepted by the mutation contract.
const (
	CloseReasonCompleted  = "COMPLETED"
	CloseReasonNotPlanned = "NOT_PLANNED"
)

// BoardAPI is the mutation surface the executor needs. The gh client
// implements it; tests use fakes.
type BoardAPI interface {
	// ProjectFields returns the board's field definitions.
	ProjectFields(ctx context.Context, projectID string) ([]domain.FieldDef, error)
	// UpdateItemField sets a single-select field to an option.
	UpdateItemField(ctx context.Context, projectID, itemID, fieldID, optionID string) error
	// UpdateItemTextField sets a free-text field to a raw string.
	UpdateItemTextField(ctx context.Context, projectID, itemID, fieldID, value string) error
	// CloseIssue closes the issue identified by its node ID.
	CloseIssue(ctx context.Context, issueID, reason string) error
}

// Executor applies fixes for one run. It owns the per-board field-definition
// cache, so concurrent runs (tests, parallel CI) never share state.
type Executor struct {
	API         BoardAPI
	StatusField string           // board field holding the status, default "Status"
	DoneStatus  string           // terminal option to move fixed items to, default "Done"
	Now         func() time.Time // injected for deterministic backfill values

	fields map[string][]domain.FieldDef // board ID -> definitions, populated once per board
}

// NewExecutor returns an Executor with the standard field names.
func NewExecutor(api BoardAPI) *Executor {
	return &Executor{
		API:         api,
		StatusField: "Status",
		DoneStatus:  "Done",
		Now:         time.Now,
		fields:      make(map[string][]domain.FieldDef),
	}
}

// ApplyFixes attempts one corrective action per error-severity inconsistency,
// in classification order. Info-severity findings are never auto-fixed. Every
// attempt produces exactly one FixResult; failures carry an error message and
// processing continues with the next item.
func (e *Executor) ApplyFixes(ctx context.Context, items []domain.WorkItem, inconsistencies []domain.Inconsistency) []domain.FixResult {
	byNumber := make(map[int]domain.WorkItem, len(items))
	for _, item := range items {
		byNumber[item.Number] = item
	}

	results := make([]domain.FixResult, 0)
	for _, inc := range inconsistencies {
		if inc.Severity != domain.SeverityError {
			continue
		}

		switch inc.IssueState {
		case domain.StateOpen:
			// Board says the work is done; close the issue to match.
			results = append(results, e.closeIssue(ctx, byNumber, inc))
		case domain.StateClosed:
			// Issue is closed; move the board item to the terminal status.
			results = append(results, e.updateStatus(ctx, byNumber, inc))
		}
	}

	return results
}

func (e *Executor) closeIssue(ctx context.Context, byNumber map[int]domain.WorkItem, inc domain.Inconsistency) domain.FixResult {
	result := domain.FixResult{Number: inc.Number, Action: domain.ActionClose}

	item, ok := byNumber[inc.Number]
	if !ok {
		result.Error = fmt.Sprintf("no fetched work item for issue #%d", inc.Number)
		return result
	}
	if item.IssueID == "" {
		result.Error = fmt.Sprintf("issue #%d has no node ID to close", inc.Number)
		return result
	}

	if err := e.API.CloseIssue(ctx, item.IssueID, CloseReasonCompleted); err != nil {
		result.Error = fmt.Sprintf("failed to close issue #%d: %v", inc.Number, err)
		return result
	}

	result.Success = true
	return result
}

func (e *Executor) updateStatus(ctx context.Context, byNumber map[int]domain.WorkItem, inc domain.Inconsistency) domain.FixResult {
	result := domain.FixResult{Number: inc.Number, Action: domain.ActionUpdateStatus}

	item, ok := byNumber[inc.Number]
	if !ok {
		result.Error = fmt.Sprintf("no fetched work item for issue #%d", inc.Number)
		return result
	}
	if !item.OnBoard() {
		result.Error = fmt.Sprintf("issue #%d is not on a project board", inc.Number)
		return result
	}

	fieldID, optionID, err := e.resolveStatusOption(ctx, item.BoardID, e.DoneStatus)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if err := e.API.UpdateItemField(ctx, item.BoardID, item.BoardItemID, fieldID, optionID); err != nil {
		result.Error = fmt.Sprintf("failed to update status of issue #%d: %v", inc.Number, err)
		return result
	}

	result.Success = true
	return result
}

// BackfillTimestamps writes a completion timestamp for every Done/Released
// item whose mapped text field is empty. The issue's recorded close time is
// used when known, otherwise the current time. statusDateFields maps a board
// status to the text field expected to carry its timestamp.
func (e *Executor) BackfillTimestamps(ctx context.Context, items []domain.WorkItem, textValues map[string]map[string]string, statusDateFields map[string]string) []domain.FixResult {
	results := make([]domain.FixResult, 0)
	for _, missing := range drift.MissingCompletionFields(items, textValues, statusDateFields) {
		item := missing.Item
		result := domain.FixResult{Number: item.Number, Action: domain.ActionBackfillTimestamp}

		fieldID, err := e.resolveTextField(ctx, item.BoardID, missing.FieldName)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}

		value := e.Now().UTC().Format(time.RFC3339)
		if item.ClosedAt != nil {
			value = item.ClosedAt.UTC().Format(time.RFC3339)
		}

		if err := e.API.UpdateItemTextField(ctx, item.BoardID, item.BoardItemID, fieldID, value); err != nil {
			result.Error = fmt.Sprintf("failed to backfill %q for issue #%d: %v", missing.FieldName, item.Number, err)
			results = append(results, result)
			continue
		}

		result.Success = true
		results = append(results, result)
	}

	return results
}

// projectFields fetches a board's field definitions at most once per run.
// Failed lookups are not cached, so a transient error on one item does not
// poison later items on the same board.
func (e *Executor) projectFields(ctx context.Context, boardID string) ([]domain.FieldDef, error) {
	if fields, ok := e.fields[boardID]; ok {
		return fields, nil
	}
	fields, err := e.API.ProjectFields(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch board fields: %w", err)
	}
	e.fields[boardID] = fields
	return fields, nil
}

func (e *Executor) resolveStatusOption(ctx context.Context, boardID, optionName string) (fieldID, optionID string, err error) {
	fields, err := e.projectFields(ctx, boardID)
	if err != nil {
		return "", "", err
	}
	for _, field := range fields {
		if field.Name != e.StatusField || field.Type != domain.FieldTypeSingleSelect {
			continue
		}
		for _, opt := range field.Options {
			if opt.Name == optionName {
				return field.ID, opt.ID, nil
			}
		}
		return "", "", fmt.Errorf("field %q has no option %q", field.Name, optionName)
	}
	return "", "", fmt.Errorf("board has no single-select field %q", e.StatusField)
}

func (e *Executor) resolveTextField(ctx context.Context, boardID, name string) (string, error) {
	fields, err := e.projectFields(ctx, boardID)
	if err != nil {
		return "", err
	}
	for _, field := range fields {
		if field.Name == name && field.Type == domain.FieldTypeText {
			return field.ID, nil
		}
	}
	return "", fmt.Errorf("board has no text field %q", name)
}

// Summarize rolls a run's findings and fixes into the summary counts.
func Summarize(totalChecked int, inconsistencies []domain.Inconsistency, fixes []domain.FixResult) domain.Summary {
	s := domain.Summary{
		TotalChecked:         totalChecked,
		TotalInconsistencies: len(inconsistencies),
	}
	for _, inc := range inconsistencies {
		switch inc.Severity {
		case domain.SeverityError:
			s.Errors++
		case domain.SeverityInfo:
			s.Info++
		}
	}
	for _, fix := range fixes {
		if fix.Success {
			s.Fixed++
		} else {
			s.FixFailures++
		}
	}
	return s
}

// ExitCode implements the process exit contract: any fix failure fails the
// run; without fixing, remaining errors fail the run; otherwise success.
func ExitCode(s domain.Summary, fixRequested bool) int {
	if s.FixFailures > 0 {
		return 1
	}
	if !fixRequested && s.Errors > 0 {
		return 1
	}
	return 0
}
