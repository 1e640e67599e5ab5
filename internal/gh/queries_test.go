package gh

import (
	"testing"
	"time"

	"github.com/robby/ghsync/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectItem(itemID, projectID, projectTitle, status string) projectItemNode {
	node := projectItemNode{ID: itemID}
	node.Project.ID = projectID
	node.Project.Title = projectTitle
	if status != "" {
		node.Status = &singleSelectValue{Name: status}
	}
	return node
}

func TestPickBoardItem_PrefersProjectMatchingRepoName(t *testing.T) {
	nodes := []projectItemNode{
		projectItem("item_a", "proj_a", "Company Roadmap", "Backlog"),
		projectItem("item_b", "proj_b", "widgets", "In Progress"),
	}

	picked := pickBoardItem(nodes, "widgets")

	require.NotNil(t, picked)
	assert.Equal(t, "item_b", picked.ID)
}

func TestPickBoardItem_FallsBackToFirst(t *testing.T) {
	nodes := []projectItemNode{
		projectItem("item_a", "proj_a", "Company Roadmap", "Backlog"),
		projectItem("item_b", "proj_b", "Other Board", "Done"),
	}

	picked := pickBoardItem(nodes, "widgets")

	require.NotNil(t, picked)
	assert.Equal(t, "item_a", picked.ID)
}

func TestPickBoardItem_Empty(t *testing.T) {
	assert.Nil(t, pickBoardItem(nil, "widgets"))
}

func TestToWorkItem(t *testing.T) {
	closedAt := "2026-02-01T09:30:00Z"
	node := issueNode{
		ID:       "issue_node_1",
		Number:   42,
		Title:    "Fix the widget",
		URL:      "https://github.com/acme/widgets/issues/42",
		State:    "CLOSED",
		ClosedAt: &closedAt,
	}
	node.ProjectItems.Nodes = []projectItemNode{
		projectItem("item_1", "proj_1", "widgets", "In Progress"),
	}

	item := toWorkItem(node, "widgets")

	assert.Equal(t, 42, item.Number)
	assert.Equal(t, domain.StateClosed, item.State)
	require.NotNil(t, item.ClosedAt)
	assert.Equal(t, "2026-02-01T09:30:00Z", item.ClosedAt.UTC().Format(time.RFC3339))
	assert.Equal(t, "item_1", item.BoardItemID)
	assert.Equal(t, "proj_1", item.BoardID)
	assert.Equal(t, "In Progress", item.BoardStatus)
	assert.True(t, item.OnBoard())
}

func TestToWorkItem_NoBoard(t *testing.T) {
	node := issueNode{ID: "issue_node_2", Number: 7, State: "OPEN"}

	item := toWorkItem(node, "widgets")

	assert.Empty(t, item.BoardItemID)
	assert.Empty(t, item.BoardID)
	assert.Empty(t, item.BoardStatus)
	assert.False(t, item.OnBoard())
	assert.Nil(t, item.ClosedAt)
}
