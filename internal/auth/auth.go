// Package auth provides GitHub authentication token and identity lookup.
// It implements a simple interface with multiple providers following the
// "deep modules" principle - simple interface, complex implementation hidden.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// TokenProvider defines the interface for obtaining a GitHub authentication
// token. Implementations may use different sources (CLI tools, environment
// variables, etc).
type TokenProvider interface {
	GetToken() (string, error)
}

// GhCliProvider obtains tokens by shelling out to the GitHub CLI
// (`gh auth token`). This is the preferred method as it respects the user's
// gh CLI authentication state.
type GhCliProvider struct{}

// GetToken shells out to `gh auth token` to retrieve the current token.
// Returns an error if gh CLI is not installed, not authenticated, or the
// command fails.
func (g *GhCliProvider) GetToken() (string, error) {
	cmd := exec.Command("gh", "auth", "token", "--hostname", "github.com")
	output, err := cmd.Output()
	if err != nil {
		if execErr, ok := err.(*exec.Error); ok && execErr.Err == exec.ErrNotFound {
			return "", errors.New("gh CLI not found in PATH")
		}
		return "", fmt.Errorf("gh auth token failed: %w", err)
	}

	token := strings.TrimSpace(string(output))
	if token == "" {
		return "", errors.New("gh auth token returned empty token")
	}

	return token, nil
}

// EnvProvider obtains tokens from the GITHUB_TOKEN environment variable.
// This is the fallback method when gh CLI is not available.
type EnvProvider struct{}

// GetToken reads the GITHUB_TOKEN environment variable.
// Returns an error if the variable is not set or is empty.
func (e *EnvProvider) GetToken() (string, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return "", errors.New("GITHUB_TOKEN environment variable not set or empty")
	}
	return token, nil
}

// GetToken attempts to obtain a GitHub token using the following strategy:
// 1. Try gh CLI first (preferred method)
// 2. Fall back to GITHUB_TOKEN environment variable
// 3. Return a clear, actionable error if both fail
func GetToken() (string, error) {
	ghCli := &GhCliProvider{}
	token, err := ghCli.GetToken()
	if err == nil {
		return token, nil
	}
	ghErr := err

	envProvider := &EnvProvider{}
	token, err = envProvider.GetToken()
	if err == nil {
		return token, nil
	}

	return "", fmt.Errorf(
		"failed to obtain GitHub token: gh CLI error (%v) and GITHUB_TOKEN not set.\n"+
			"Please either:\n"+
			"  1. Run 'gh auth login' to authenticate with GitHub CLI, or\n"+
			"  2. Set the GITHUB_TOKEN environment variable with a personal access token",
		ghErr,
	)
}

// Username returns the current GitHub login via the gh CLI, falling back to
// the GITHUB_USER environment variable. Returns "" when neither is available;
// callers must treat the username as optional.
func Username() string {
	cmd := exec.Command("gh", "api", "user", "--jq", ".login")
	output, err := cmd.Output()
	if err == nil {
		if login := strings.TrimSpace(string(output)); login != "" {
			return login
		}
	}
	return os.Getenv("GITHUB_USER")
}
