package drift

import (
	"fmt"
	"time"

	"github.com/robby/ghsync/internal/domain"
)

// DefaultStaleThresholdDays is how long an item may sit In Progress before
// the staleness check flags it.
const DefaultStaleThresholdDays = 14

// MetricsConfig controls the timestamp-audit checks.
type MetricsConfig struct {
	// StatusDateFields maps a board status to the name of the free-text
	// field expected to carry that status's timestamp (e.g. "Done" ->
	// "Completed At", "In Progress" -> "Started At").
	StatusDateFields map[string]string

	// StaleThresholdDays is the maximum whole days an item may remain
	// In Progress before being flagged. Zero means DefaultStaleThresholdDays.
	StaleThresholdDays int
}

// timestampLayouts are the accepted formats for text-field timestamps.
// Anything unparseable is treated as indeterminate, not flagged.
var timestampLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// ClassifyMetrics audits board hygiene on top of the state comparison:
// completed items must carry a completion timestamp, and In Progress items
// must not have been started longer ago than the stale threshold. All
// findings are info severity. textValues maps board item ID -> field name ->
// recorded text. now is injected so results are deterministic under test.
func ClassifyMetrics(items []domain.WorkItem, textValues map[string]map[string]string, cfg MetricsConfig, now time.Time) []domain.Inconsistency {
	threshold := cfg.StaleThresholdDays
	if threshold == 0 {
		threshold = DefaultStaleThresholdDays
	}

	inconsistencies := make([]domain.Inconsistency, 0)
	for _, item := range items {
		if !item.OnBoard() {
			continue
		}

		switch {
		case domain.StatusIn(item.BoardStatus, domain.DefaultDoneStatuses):
			field, ok := cfg.StatusDateFields[item.BoardStatus]
			if !ok || field == "" {
				continue
			}
			if textValues[item.BoardItemID][field] != "" {
				continue
			}
			inconsistencies = append(inconsistencies, domain.Inconsistency{
				Number:        item.Number,
				IssueState:    item.State,
				ProjectStatus: item.BoardStatus,
				Severity:      domain.SeverityInfo,
				Description: fmt.Sprintf("Issue #%d has status %q but no %q timestamp recorded",
					item.Number, item.BoardStatus, field),
			})

		case item.BoardStatus == "In Progress":
			field, ok := cfg.StatusDateFields[item.BoardStatus]
			if !ok || field == "" {
				continue
			}
			started, ok := parseTimestamp(textValues[item.BoardItemID][field])
			if !ok {
				// Missing or unparseable start time: indeterminate, skip.
				continue
			}
			days := int(now.Sub(started).Hours() / 24)
			if days <= threshold {
				continue
			}
			inconsistencies = append(inconsistencies, domain.Inconsistency{
				Number:        item.Number,
				IssueState:    item.State,
				ProjectStatus: item.BoardStatus,
				Severity:      domain.SeverityInfo,
				Description: fmt.Sprintf("Issue #%d has been In Progress for %d days (threshold %d)",
					item.Number, days, threshold),
			})
		}
	}

	return inconsistencies
}

// MissingCompletionFields returns, for every Done/Released item whose mapped
// completion field has no recorded value, the item paired with the field name
// that needs backfilling. The fix executor shares this predicate with
// ClassifyMetrics so the two cannot drift apart.
func MissingCompletionFields(items []domain.WorkItem, textValues map[string]map[string]string, statusDateFields map[string]string) []MissingField {
	missing := make([]MissingField, 0)
	for _, item := range items {
		if !item.OnBoard() || !domain.StatusIn(item.BoardStatus, domain.DefaultDoneStatuses) {
			continue
		}
		field, ok := statusDateFields[item.BoardStatus]
		if !ok || field == "" {
			continue
		}
		if textValues[item.BoardItemID][field] != "" {
			continue
		}
		missing = append(missing, MissingField{Item: item, FieldName: field})
	}
	return missing
}

// MissingField pairs a work item with the timestamp field it is missing.
type MissingField struct {
	Item      domain.WorkItem
	FieldName string
}

func parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
