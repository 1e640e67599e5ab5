package report

import (
	"testing"

	"github.com/robby/ghsync/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRender_CleanReport(t *testing.T) {
	r := domain.Report{Summary: domain.Summary{TotalChecked: 5}}

	out := Render(r, 80)

	assert.Contains(t, out, "No inconsistencies")
	assert.Contains(t, out, "5 checked")
}

func TestRender_InconsistenciesAndFixes(t *testing.T) {
	r := domain.Report{
		Inconsistencies: []domain.Inconsistency{
			{Number: 1, Severity: domain.SeverityError, Description: `Issue #1 is OPEN but board status is "Done"`},
			{Number: 2, Severity: domain.SeverityInfo, Description: `Issue #2 is CLOSED but board status is "Backlog"`},
		},
		Fixes: []domain.FixResult{
			{Number: 1, Action: domain.ActionClose, Success: true},
			{Number: 3, Action: domain.ActionUpdateStatus, Success: false, Error: "field not found"},
		},
		Summary: domain.Summary{
			TotalChecked: 10, TotalInconsistencies: 2,
			Errors: 1, Info: 1, Fixed: 1, FixFailures: 1,
		},
	}

	out := Render(r, 120)

	assert.Contains(t, out, `Issue #1 is OPEN but board status is "Done"`)
	assert.Contains(t, out, "close")
	assert.Contains(t, out, "field not found")
	assert.Contains(t, out, "1 fixed, 1 failed")
}

func TestRenderWarnings_Empty(t *testing.T) {
	out := RenderWarnings(nil, 80)

	assert.Contains(t, out, "no preflight warnings")
}

func TestRenderWarnings_OnePerLine(t *testing.T) {
	out := RenderWarnings([]string{"first warning", "second warning"}, 80)

	assert.Contains(t, out, "first warning")
	assert.Contains(t, out, "second warning")
}
