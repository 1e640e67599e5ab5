package gh

import (
	"context"
	"fmt"

	"github.com/machinebox/graphql"
)

// UpdateItemField sets a project item's SINGLE_SELECT field to an option.
// This is how a board item is moved to a different status column.
func (c *Client) UpdateItemField(ctx context.Context, projectID, itemID, fieldID, optionID string) error {
	req := graphql.NewRequest(`
		mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
			updateProjectV2ItemFieldValue(
				input: {
					projectId: $projectId
					itemId: $itemId
					fieldId: $fieldId
					value: $value
				}
			) {
				projectV2Item {
					id
				}
			}
		}
	`)

	req.Var("projectId", projectID)
	req.Var("itemId", itemID)
	req.Var("fieldId", fieldID)
	req.Var("value", map[string]interface{}{
		"singleSelectOptionId": optionID,
	})

	var resp struct {
		UpdateProjectV2ItemFieldValue struct {
			ProjectV2Item struct {
				ID string `json:"id"`
			} `json:"projectV2Item"`
		} `json:"updateProjectV2ItemFieldValue"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to update item field: %w", err)
	}

	return nil
}

// UpdateItemTextField sets a project item's free-text field to a raw string.
// Used to backfill missing timestamp audit fields.
func (c *Client) UpdateItemTextField(ctx context.Context, projectID, itemID, fieldID, value string) error {
	req := graphql.NewRequest(`
		mutation($projectId: ID!, $itemId: ID!, $fieldId: ID!, $value: ProjectV2FieldValue!) {
			updateProjectV2ItemFieldValue(
				input: {
					projectId: $projectId
					itemId: $itemId
					fieldId: $fieldId
					value: $value
				}
			) {
				projectV2Item {
					id
				}
			}
		}
	`)

	req.Var("projectId", projectID)
	req.Var("itemId", itemID)
	req.Var("fieldId", fieldID)
	req.Var("value", map[string]interface{}{
		"text": value,
	})

	var resp struct {
		UpdateProjectV2ItemFieldValue struct {
			ProjectV2Item struct {
				ID string `json:"id"`
			} `json:"projectV2Item"`
		} `json:"updateProjectV2ItemFieldValue"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to update item text field: %w", err)
	}

	return nil
}

// CloseIssue closes an issue by node ID with the given state reason
// (COMPLETED or NOT_PLANNED).
func (c *Client) CloseIssue(ctx context.Context, issueID, reason string) error {
	req := graphql.NewRequest(`
		mutation($issueId: ID!, $reason: IssueClosedStateReason) {
			closeIssue(input: {issueId: $issueId, stateReason: $reason}) {
				issue {
					id
					state
				}
			}
		}
	`)

	req.Var("issueId", issueID)
	req.Var("reason", reason)

	var resp struct {
		CloseIssue struct {
			Issue struct {
				ID    string `json:"id"`
				State string `json:"state"`
			} `json:"issue"`
		} `json:"closeIssue"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return fmt.Errorf("failed to close issue: %w", err)
	}

	return nil
}
