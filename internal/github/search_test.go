package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestSearchRepos_shortQueryRejectedLocally(t *testing.T) {
	called := false
	c := fakeClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	_, err := c.SearchRepos(context.Background(), "a", 1)
	if !errors.Is(err, ErrQueryTooShort) {
		t.Fatalf("expected ErrQueryTooShort, got %v", err)
	}
	if called {
		t.Fatal("short query must not reach the API")
	}
	if _, err := c.SearchRepos(context.Background(), "   ", 1); !errors.Is(err, ErrQueryTooShort) {
		t.Fatalf("whitespace query: %v", err)
	}
	// One multibyte character is still one character.
	if _, err := c.SearchRepos(context.Background(), "日", 1); !errors.Is(err, ErrQueryTooShort) {
		t.Fatalf("single multibyte rune query: %v", err)
	}
	if called {
		t.Fatal("short query must not reach the API")
	}

	// Two multibyte runes pass the minimum.
	if _, err := c.SearchRepos(context.Background(), "日本", 1); err != nil {
		t.Fatalf("two-rune query: %v", err)
	}
	if !called {
		t.Fatal("valid query should reach the API")
	}
}

func TestSearchRepos_page(t *testing.T) {
	c := fakeClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "ab" {
			t.Errorf("q = %q", got)
		}
		items := make([]map[string]any, SearchPerPage)
		for i := range items {
			items[i] = map[string]any{
				"name":             "repo",
				"full_name":        "u/repo",
				"stargazers_count": 10,
				"owner":            map[string]any{"login": "u"},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"total_count": 42, "items": items})
	})
	res, err := c.SearchRepos(context.Background(), "ab", 1)
	if err != nil {
		t.Fatalf("SearchRepos: %v", err)
	}
	if len(res.Repos) != SearchPerPage || res.TotalCount != 42 {
		t.Fatalf("got %d repos, total %d", len(res.Repos), res.TotalCount)
	}
	if !res.HasNext || res.HasPrev {
		t.Fatalf("HasNext=%v HasPrev=%v", res.HasNext, res.HasPrev)
	}
	if res.Repos[0].Description != "No description" {
		t.Fatalf("empty description not defaulted: %q", res.Repos[0].Description)
	}
}
