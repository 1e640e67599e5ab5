package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robby/ghsync/internal/domain"
	"github.com/robby/ghsync/internal/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBoardAPI records mutations and serves canned field definitions.
type fakeBoardAPI struct {
	fields      map[string][]domain.FieldDef
	fieldsErr   error
	fieldCalls  int
	closed      []string
	closeErr    map[string]error
	updated     []string // "boardID/itemID/fieldID/optionID"
	updateErr   map[string]error
	textUpdates map[string]string // itemID -> value
	textErr     error
}

func newFakeBoardAPI() *fakeBoardAPI {
	return &fakeBoardAPI{
		fields: map[string][]domain.FieldDef{
			"board_1": {
				{
					ID:   "f_status",
					Name: "Status",
					Type: domain.FieldTypeSingleSelect,
					Options: []domain.Option{
						{ID: "o_backlog", Name: "Backlog"},
						{ID: "o_inprogress", Name: "In Progress"},
						{ID: "o_done", Name: "Done"},
					},
				},
				{ID: "f_completed", Name: "Completed At", Type: domain.FieldTypeText},
			},
		},
		closeErr:    map[string]error{},
		updateErr:   map[string]error{},
		textUpdates: map[string]string{},
	}
}

func (f *fakeBoardAPI) ProjectFields(_ context.Context, projectID string) ([]domain.FieldDef, error) {
	f.fieldCalls++
	if f.fieldsErr != nil {
		return nil, f.fieldsErr
	}
	return f.fields[projectID], nil
}

func (f *fakeBoardAPI) UpdateItemField(_ context.Context, projectID, itemID, fieldID, optionID string) error {
	if err := f.updateErr[itemID]; err != nil {
		return err
	}
	f.updated = append(f.updated, projectID+"/"+itemID+"/"+fieldID+"/"+optionID)
	return nil
}

func (f *fakeBoardAPI) UpdateItemTextField(_ context.Context, _, itemID, _, value string) error {
	if f.textErr != nil {
		return f.textErr
	}
	f.textUpdates[itemID] = value
	return nil
}

func (f *fakeBoardAPI) CloseIssue(_ context.Context, issueID, _ string) error {
	if err := f.closeErr[issueID]; err != nil {
		return err
	}
	f.closed = append(f.closed, issueID)
	return nil
}

func openDoneItem(number int) domain.WorkItem {
	return domain.WorkItem{
		Number:      number,
		IssueID:     "issue_" + string(rune('0'+number)),
		State:       domain.StateOpen,
		BoardStatus: "Done",
		BoardItemID: "item_" + string(rune('0'+number)),
		BoardID:     "board_1",
	}
}

func closedInProgressItem(number int) domain.WorkItem {
	return domain.WorkItem{
		Number:      number,
		IssueID:     "issue_" + string(rune('0'+number)),
		State:       domain.StateClosed,
		BoardStatus: "In Progress",
		BoardItemID: "item_" + string(rune('0'+number)),
		BoardID:     "board_1",
	}
}

func TestApplyFixes_ClosesOpenDoneItem(t *testing.T) {
	api := newFakeBoardAPI()
	items := []domain.WorkItem{openDoneItem(1)}
	incs := drift.Classify(items, nil)

	results := NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, domain.ActionClose, results[0].Action)
	assert.Equal(t, []string{"issue_1"}, api.closed)
}

func TestApplyFixes_MovesClosedWorkStartedItemToDone(t *testing.T) {
	api := newFakeBoardAPI()
	items := []domain.WorkItem{closedInProgressItem(2)}
	incs := drift.Classify(items, nil)

	results := NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, domain.ActionUpdateStatus, results[0].Action)
	require.Len(t, api.updated, 1)
	assert.Equal(t, "board_1/item_2/f_status/o_done", api.updated[0])
}

func TestApplyFixes_InfoSeverityNeverFixed(t *testing.T) {
	api := newFakeBoardAPI()
	closedBacklog := closedInProgressItem(3)
	closedBacklog.BoardStatus = "Backlog"
	items := []domain.WorkItem{closedBacklog}
	incs := drift.Classify(items, nil)
	require.Len(t, incs, 1)
	require.Equal(t, domain.SeverityInfo, incs[0].Severity)

	results := NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	assert.Empty(t, results)
	assert.Empty(t, api.updated)
	assert.Empty(t, api.closed)
}

func TestApplyFixes_FailureIsolation(t *testing.T) {
	api := newFakeBoardAPI()
	api.closeErr["issue_1"] = errors.New("api: boom")
	items := []domain.WorkItem{openDoneItem(1), openDoneItem(2), closedInProgressItem(3)}
	incs := drift.Classify(items, nil)
	require.Len(t, incs, 3)

	results := NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	require.Len(t, results, 3)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "boom")
	assert.True(t, results[1].Success, "failure on #1 must not abort #2")
	assert.True(t, results[2].Success, "failure on #1 must not abort #3")
}

func TestApplyFixes_MissingIssueIDIsRecordedFailure(t *testing.T) {
	api := newFakeBoardAPI()
	item := openDoneItem(4)
	item.IssueID = ""
	items := []domain.WorkItem{item}
	incs := drift.Classify(items, nil)

	results := NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "node ID")
	assert.Empty(t, api.closed)
}

func TestApplyFixes_OffBoardClosedItemIsRecordedFailure(t *testing.T) {
	api := newFakeBoardAPI()
	item := closedInProgressItem(5)
	item.BoardItemID = ""
	item.BoardID = ""
	items := []domain.WorkItem{item}
	// Classification saw a status, but by fix time the item has no board ref.
	incs := []domain.Inconsistency{{
		Number:        5,
		IssueState:    domain.StateClosed,
		ProjectStatus: "In Progress",
		Severity:      domain.SeverityError,
	}}

	results := NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "not on a project board")
}

func TestApplyFixes_FieldDefinitionsCachedPerBoard(t *testing.T) {
	api := newFakeBoardAPI()
	items := []domain.WorkItem{closedInProgressItem(1), closedInProgressItem(2), closedInProgressItem(3)}
	incs := drift.Classify(items, nil)

	NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	assert.Equal(t, 1, api.fieldCalls, "board fields must be fetched once per board")
}

func TestApplyFixes_FieldFetchErrorNotCached(t *testing.T) {
	api := newFakeBoardAPI()
	api.fieldsErr = errors.New("timeout")
	items := []domain.WorkItem{closedInProgressItem(1), closedInProgressItem(2)}
	incs := drift.Classify(items, nil)

	e := NewExecutor(api)
	results := e.ApplyFixes(context.Background(), items, incs)

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, 2, api.fieldCalls, "a failed lookup must be retried for the next item")
}

func TestApplyFixes_MissingDoneOption(t *testing.T) {
	api := newFakeBoardAPI()
	api.fields["board_1"][0].Options = api.fields["board_1"][0].Options[:2] // drop "Done"
	items := []domain.WorkItem{closedInProgressItem(1)}
	incs := drift.Classify(items, nil)

	results := NewExecutor(api).ApplyFixes(context.Background(), items, incs)

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, `no option "Done"`)
}

func TestBackfillTimestamps_UsesClosedAtWhenKnown(t *testing.T) {
	api := newFakeBoardAPI()
	closedAt := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	item := openDoneItem(1)
	item.State = domain.StateClosed
	item.ClosedAt = &closedAt

	e := NewExecutor(api)
	results := e.BackfillTimestamps(context.Background(), []domain.WorkItem{item}, nil,
		map[string]string{"Done": "Completed At"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, domain.ActionBackfillTimestamp, results[0].Action)
	assert.Equal(t, "2026-02-01T09:30:00Z", api.textUpdates["item_1"])
}

func TestBackfillTimestamps_FallsBackToNow(t *testing.T) {
	api := newFakeBoardAPI()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	item := openDoneItem(1)
	item.State = domain.StateClosed

	e := NewExecutor(api)
	e.Now = func() time.Time { return now }
	results := e.BackfillTimestamps(context.Background(), []domain.WorkItem{item}, nil,
		map[string]string{"Done": "Completed At"})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "2026-03-15T12:00:00Z", api.textUpdates["item_1"])
}

func TestBackfillTimestamps_PresentValueSkipped(t *testing.T) {
	api := newFakeBoardAPI()
	item := openDoneItem(1)
	values := map[string]map[string]string{
		"item_1": {"Completed At": "2026-01-01T00:00:00Z"},
	}

	results := NewExecutor(api).BackfillTimestamps(context.Background(), []domain.WorkItem{item}, values,
		map[string]string{"Done": "Completed At"})

	assert.Empty(t, results)
	assert.Empty(t, api.textUpdates)
}

func TestBackfillTimestamps_UnknownFieldIsRecordedFailure(t *testing.T) {
	api := newFakeBoardAPI()
	item := openDoneItem(1)

	results := NewExecutor(api).BackfillTimestamps(context.Background(), []domain.WorkItem{item}, nil,
		map[string]string{"Done": "Finished On"})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "Finished On")
}

func TestSummarize(t *testing.T) {
	incs := []domain.Inconsistency{
		{Severity: domain.SeverityError},
		{Severity: domain.SeverityError},
		{Severity: domain.SeverityInfo},
	}
	fixes := []domain.FixResult{
		{Success: true},
		{Success: false, Error: "x"},
	}

	s := Summarize(10, incs, fixes)

	assert.Equal(t, 10, s.TotalChecked)
	assert.Equal(t, 3, s.TotalInconsistencies)
	assert.Equal(t, 2, s.Errors)
	assert.Equal(t, 1, s.Info)
	assert.Equal(t, 1, s.Fixed)
	assert.Equal(t, 1, s.FixFailures)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(domain.Summary{}, false))
	assert.Equal(t, 1, ExitCode(domain.Summary{Errors: 2}, false))
	assert.Equal(t, 0, ExitCode(domain.Summary{Errors: 2, Fixed: 2}, true))
	assert.Equal(t, 1, ExitCode(domain.Summary{Errors: 2, Fixed: 1, FixFailures: 1}, true))
	assert.Equal(t, 1, ExitCode(domain.Summary{FixFailures: 1}, false))
	assert.Equal(t, 0, ExitCode(domain.Summary{Info: 5}, false), "info findings never fail the run")
}
