package github

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	gh "github.com/google/go-github/v66/github"
)

// ErrQueryTooShort is returned before any HTTP call is made.
var ErrQueryTooShort = errors.New("search query must be at least 2 characters")

// SearchPerPage is the number of repositories shown per search page.
const SearchPerPage = 5

// SearchResult is one page of a repository search, sorted by stars.
type SearchResult struct {
	Repos      []RepoSummary
	TotalCount int
	Page       int
	Query      string
	HasNext    bool
	HasPrev    bool
}

// SearchRepos searches public repositories. Queries shorter than 2 characters
// are rejected locally.
func (c *Client) SearchRepos(ctx context.Context, query string, page int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < 2 {
		return nil, ErrQueryTooShort
	}
	opts := &gh.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: gh.ListOptions{Page: page, PerPage: SearchPerPage},
	}
	res, _, err := c.api(ctx).Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, wrapErr(err)
	}
	out := &SearchResult{
		TotalCount: res.GetTotal(),
		Page:       page,
		Query:      query,
	}
	for _, r := range res.Repositories {
		out.Repos = append(out.Repos, summarize(r))
	}
	out.HasNext = len(out.Repos) == SearchPerPage && page*SearchPerPage < out.TotalCount
	out.HasPrev = page > 1
	return out, nil
}
