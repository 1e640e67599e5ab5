package gh

import (
	"context"
	"fmt"
	"time"

	"github.com/machinebox/graphql"
	"github.com/robby/ghsync/internal/domain"
	"github.com/robby/ghsync/internal/prdetect"
)

// pageSize is the per-request item count for paginated queries.
const pageSize = 100

// issueNode is the raw shape of one issue in the work item query. Optional
// GraphQL fields are pointers so absence is explicit rather than inferred
// from zero values.
type issueNode struct {
	ID       string  `json:"id"`
	Number   int     `json:"number"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	State    string  `json:"state"`
	ClosedAt *string `json:"closedAt"`
	Labels   *struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"labels"`
	Assignees *struct {
		Nodes []struct {
			Login string `json:"login"`
		} `json:"nodes"`
	} `json:"assignees"`
	ProjectItems struct {
		Nodes []projectItemNode `json:"nodes"`
	} `json:"projectItems"`
}

type projectItemNode struct {
	ID      string `json:"id"`
	Project struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"project"`
	Status   *singleSelectValue `json:"status"`
	Priority *singleSelectValue `json:"priority"`
	Size     *singleSelectValue `json:"size"`
}

type singleSelectValue struct {
	Name string `json:"name"`
}

// FetchWorkItems fetches the repository's issues in the given lifecycle
// states, following cursors until exhaustion or limit. Each issue is joined
// with its best-matching board item: the item on the project whose title
// equals the repository name when present, otherwise the first project item.
func (c *Client) FetchWorkItems(ctx context.Context, owner, repo string, states []string, limit int) ([]domain.WorkItem, error) {
	items := make([]domain.WorkItem, 0)
	cursor := ""

	for limit <= 0 || len(items) < limit {
		first := pageSize
		if limit > 0 && limit-len(items) < first {
			first = limit - len(items)
		}

		page, endCursor, hasNext, err := c.fetchIssuePage(ctx, owner, repo, states, first, cursor)
		if err != nil {
			return nil, err
		}

		for _, node := range page {
			items = append(items, toWorkItem(node, repo))
		}

		if !hasNext {
			break
		}
		cursor = endCursor
	}

	return items, nil
}

func (c *Client) fetchIssuePage(ctx context.Context, owner, repo string, states []string, first int, cursor string) ([]issueNode, string, bool, error) {
	req := graphql.NewRequest(`
		query($owner: String!, $repo: String!, $states: [IssueState!], $first: Int!, $after: String) {
			repository(owner: $owner, name: $repo) {
				issues(states: $states, first: $first, after: $after, orderBy: {field: CREATED_AT, direction: DESC}) {
					pageInfo {
						hasNextPage
						endCursor
					}
					nodes {
						id
						number
						title
						url
						state
						closedAt
						labels(first: 20) {
							nodes {
								name
							}
						}
						assignees(first: 10) {
							nodes {
								login
							}
						}
						projectItems(first: 10, includeArchived: false) {
							nodes {
								id
								project {
									id
									title
								}
								status: fieldValueByName(name: "Status") {
									... on ProjectV2ItemFieldSingleSelectValue {
										name
									}
								}
								priority: fieldValueByName(name: "Priority") {
									... on ProjectV2ItemFieldSingleSelectValue {
										name
									}
								}
								size: fieldValueByName(name: "Size") {
									... on ProjectV2ItemFieldSingleSelectValue {
										name
									}
								}
							}
						}
					}
				}
			}
		}
	`)
	req.Var("owner", owner)
	req.Var("repo", repo)
	req.Var("states", states)
	req.Var("first", first)
	if cursor != "" {
		req.Var("after", cursor)
	} else {
		req.Var("after", nil)
	}

	var resp struct {
		Repository struct {
			Issues struct {
				PageInfo struct {
					HasNextPage bool   `json:"hasNextPage"`
					EndCursor   string `json:"endCursor"`
				} `json:"pageInfo"`
				Nodes []issueNode `json:"nodes"`
			} `json:"issues"`
		} `json:"repository"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, "", false, fmt.Errorf("failed to fetch issues: %w", err)
	}

	issues := resp.Repository.Issues
	return issues.Nodes, issues.PageInfo.EndCursor, issues.PageInfo.HasNextPage, nil
}

// toWorkItem normalizes an issue node, picking the best board item for the
// repository.
func toWorkItem(node issueNode, repo string) domain.WorkItem {
	item := domain.WorkItem{
		Number:  node.Number,
		Title:   node.Title,
		URL:     node.URL,
		IssueID: node.ID,
		State:   domain.LifecycleState(node.State),
	}

	if node.ClosedAt != nil {
		if t, err := time.Parse(time.RFC3339, *node.ClosedAt); err == nil {
			item.ClosedAt = &t
		}
	}

	if node.Labels != nil {
		item.Labels = make([]string, 0, len(node.Labels.Nodes))
		for _, l := range node.Labels.Nodes {
			item.Labels = append(item.Labels, l.Name)
		}
	}

	if node.Assignees != nil {
		item.Assignees = make([]string, 0, len(node.Assignees.Nodes))
		for _, a := range node.Assignees.Nodes {
			item.Assignees = append(item.Assignees, a.Login)
		}
	}

	if board := pickBoardItem(node.ProjectItems.Nodes, repo); board != nil {
		item.BoardItemID = board.ID
		item.BoardID = board.Project.ID
		if board.Status != nil {
			item.BoardStatus = board.Status.Name
		}
		if board.Priority != nil {
			item.Priority = board.Priority.Name
		}
		if board.Size != nil {
			item.Size = board.Size.Name
		}
	}

	return item
}

// pickBoardItem prefers the project whose title equals the repository name,
// falling back to the first project item present.
func pickBoardItem(nodes []projectItemNode, repo string) *projectItemNode {
	if len(nodes) == 0 {
		return nil
	}
	for i := range nodes {
		if nodes[i].Project.Title == repo {
			return &nodes[i]
		}
	}
	return &nodes[0]
}

// ProjectFields fetches all fields for a project, including options for
// SINGLE_SELECT fields, in their configured order.
func (c *Client) ProjectFields(ctx context.Context, projectID string) ([]domain.FieldDef, error) {
	req := graphql.NewRequest(`
		query($projectId: ID!) {
			node(id: $projectId) {
				... on ProjectV2 {
					fields(first: 50) {
						nodes {
							... on ProjectV2Field {
								id
								name
								dataType
							}
							... on ProjectV2SingleSelectField {
								id
								name
								dataType
								options {
									id
									name
								}
							}
							... on ProjectV2IterationField {
								id
								name
								dataType
							}
						}
					}
				}
			}
		}
	`)
	req.Var("projectId", projectID)

	var resp struct {
		Node struct {
			Fields struct {
				Nodes []struct {
					ID       string `json:"id"`
					Name     string `json:"name"`
					DataType string `json:"dataType"`
					Options  []struct {
						ID   string `json:"id"`
						Name string `json:"name"`
					} `json:"options"`
				} `json:"nodes"`
			} `json:"fields"`
		} `json:"node"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to get project fields: %w", err)
	}

	fields := make([]domain.FieldDef, 0, len(resp.Node.Fields.Nodes))
	for _, node := range resp.Node.Fields.Nodes {
		field := domain.FieldDef{
			ID:   node.ID,
			Name: node.Name,
			Type: node.DataType,
		}
		if node.DataType == domain.FieldTypeSingleSelect && len(node.Options) > 0 {
			field.Options = make([]domain.Option, 0, len(node.Options))
			for _, opt := range node.Options {
				field.Options = append(field.Options, domain.Option{ID: opt.ID, Name: opt.Name})
			}
		}
		fields = append(fields, field)
	}

	return fields, nil
}

// ItemTextFieldValues returns, for every item on the project, the recorded
// text of each named field: board item ID -> field name -> text. Items with
// no value for a field simply have no entry.
func (c *Client) ItemTextFieldValues(ctx context.Context, projectID string) (map[string]map[string]string, error) {
	values := make(map[string]map[string]string)
	cursor := ""

	for {
		req := graphql.NewRequest(`
			query($projectId: ID!, $first: Int!, $after: String) {
				node(id: $projectId) {
					... on ProjectV2 {
						items(first: $first, after: $after) {
							pageInfo {
								hasNextPage
								endCursor
							}
							nodes {
								id
								fieldValues(first: 30) {
									nodes {
										... on ProjectV2ItemFieldTextValue {
											text
											field {
												... on ProjectV2FieldCommon {
													name
												}
											}
										}
									}
								}
							}
						}
					}
				}
			}
		`)
		req.Var("projectId", projectID)
		req.Var("first", pageSize)
		if cursor != "" {
			req.Var("after", cursor)
		} else {
			req.Var("after", nil)
		}

		var resp struct {
			Node struct {
				Items struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []struct {
						ID          string `json:"id"`
						FieldValues struct {
							Nodes []struct {
								Text  *string `json:"text"`
								Field *struct {
									Name string `json:"name"`
								} `json:"field"`
							} `json:"nodes"`
						} `json:"fieldValues"`
					} `json:"nodes"`
				} `json:"items"`
			} `json:"node"`
		}

		if err := c.makeRequest(ctx, req, &resp); err != nil {
			return nil, fmt.Errorf("failed to get item field values: %w", err)
		}

		for _, item := range resp.Node.Items.Nodes {
			for _, fv := range item.FieldValues.Nodes {
				if fv.Text == nil || fv.Field == nil || *fv.Text == "" {
					continue
				}
				if values[item.ID] == nil {
					values[item.ID] = make(map[string]string)
				}
				values[item.ID][fv.Field.Name] = *fv.Text
			}
		}

		if !resp.Node.Items.PageInfo.HasNextPage {
			break
		}
		cursor = resp.Node.Items.PageInfo.EndCursor
	}

	return values, nil
}

// searchMergedPRs runs a search query and returns the pull request nodes.
func (c *Client) searchMergedPRs(ctx context.Context, query string) ([]prdetect.MergedPR, error) {
	req := graphql.NewRequest(`
		query($query: String!, $first: Int!) {
			search(query: $query, type: ISSUE, first: $first) {
				nodes {
					... on PullRequest {
						number
						title
						body
						headRefName
					}
				}
			}
		}
	`)
	req.Var("query", query)
	req.Var("first", 20)

	var resp struct {
		Search struct {
			Nodes []struct {
				Number      int    `json:"number"`
				Title       string `json:"title"`
				Body        string `json:"body"`
				HeadRefName string `json:"headRefName"`
			} `json:"nodes"`
		} `json:"search"`
	}

	if err := c.makeRequest(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("failed to search merged PRs: %w", err)
	}

	prs := make([]prdetect.MergedPR, 0, len(resp.Search.Nodes))
	for _, node := range resp.Search.Nodes {
		if node.Number == 0 {
			// Search can return non-PR nodes as empty objects.
			continue
		}
		prs = append(prs, prdetect.MergedPR{
			Number:     node.Number,
			Title:      node.Title,
			Body:       node.Body,
			HeadBranch: node.HeadRefName,
		})
	}

	return prs, nil
}

// MergedPRsByHeadBranch implements prdetect.Searcher.
func (c *Client) MergedPRsByHeadBranch(ctx context.Context, owner, repo, branch string) ([]prdetect.MergedPR, error) {
	query := fmt.Sprintf("repo:%s/%s is:pr is:merged head:%s", owner, repo, branch)
	return c.searchMergedPRs(ctx, query)
}

// MergedPRsMentioning implements prdetect.Searcher.
func (c *Client) MergedPRsMentioning(ctx context.Context, owner, repo string, number int) ([]prdetect.MergedPR, error) {
	query := fmt.Sprintf(`repo:%s/%s is:pr is:merged "#%d" in:body`, owner, repo, number)
	return c.searchMergedPRs(ctx, query)
}
