// Package github answers whether a repository exists on the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gogithub "github.com/google/go-github/v81/github"
	"golang.org/x/oauth2"
)

// RepoChecker validates repository identifiers against the GitHub API
// before a chat is bound to them.
type RepoChecker struct {
	client *gogithub.Client
}

// NewRepoChecker creates a checker. An empty token yields an anonymous
// client, which works but rate-limits quickly; baseURL overrides the API
// host for tests (empty means api.github.com). The trailing slash on the
// base URL is required by go-github.
func NewRepoChecker(token, baseURL string) (*RepoChecker, error) {
	httpClient := http.DefaultClient
	if strings.TrimSpace(token) != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := gogithub.NewClient(httpClient)

	if strings.TrimSpace(baseURL) != "" {
		parsed, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse GitHub API base URL: %w", err)
		}
		client.BaseURL = parsed
	}

	return &RepoChecker{client: client}, nil
}

// Exists reports whether repo (owner/name) resolves on GitHub. A 404 is a
// clean false; anything else unexpected propagates as an error.
func (g *RepoChecker) Exists(ctx context.Context, repo string) (bool, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return false, nil
	}

	_, resp, err := g.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("checking GitHub repo %s: %w", repo, err)
	}
	return true, nil
}
