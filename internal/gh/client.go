// Package gh provides a GraphQL client for the GitHub issue and Projects v2
// APIs. It implements a deep module interface - simple methods hiding complex
// GraphQL queries.
package gh

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/machinebox/graphql"
	"github.com/robby/ghsync/internal/auth"
)

// maxRetries bounds how often a round trip is retried before its error is
// surfaced to the caller.
const maxRetries = 3

// Client is a GitHub GraphQL API client for issues and Projects v2.
type Client struct {
	gql   *graphql.Client
	token string
}

// New creates a new GitHub GraphQL client. It obtains an authentication token
// using the auth package and returns an error if token retrieval fails.
func New() (*Client, error) {
	token, err := auth.GetToken()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain GitHub token: %w", err)
	}

	return &Client{
		gql:   graphql.NewClient("https://api.github.com/graphql"),
		token: token,
	}, nil
}

// NewWithEndpoint creates a client against a custom endpoint with a fixed
// token, for GitHub Enterprise deployments.
func NewWithEndpoint(endpoint, token string) *Client {
	return &Client{
		gql:   graphql.NewClient(endpoint),
		token: token,
	}
}

// makeRequest executes a GraphQL request with authentication, retrying
// transient failures with exponential backoff. All mutations issued through
// this client set absolute values, so a retried request is idempotent.
func (c *Client) makeRequest(ctx context.Context, req *graphql.Request, resp interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)

	return backoff.Retry(func() error {
		return c.gql.Run(ctx, req, resp)
	}, policy)
}
