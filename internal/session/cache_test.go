package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal/repobot/internal/github"
)

func sampleResults() *github.SearchResult {
	return &github.SearchResult{
		Repos:      []github.RepoSummary{{Name: "r", FullName: "u/r"}},
		TotalCount: 1,
		Page:       1,
		Query:      "ab",
	}
}

func TestSearchCache_ownerScoped(t *testing.T) {
	c := NewSearchCache()
	id := c.Put("ab", 1, sampleResults(), 7)
	require.Len(t, id, 8)

	got, err := c.Get(id, 7)
	require.NoError(t, err)
	assert.Equal(t, "ab", got.Query)

	_, err = c.Get(id, 8)
	assert.True(t, errors.Is(err, ErrForbidden))

	_, err = c.Get("missing", 7)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSearchCache_expiry(t *testing.T) {
	c := NewSearchCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	id := c.Put("ab", 1, sampleResults(), 7)

	c.now = func() time.Time { return now.Add(CacheTTL + time.Second) }
	_, err := c.Get(id, 7)
	assert.True(t, errors.Is(err, ErrNotFound), "expired entry reads as gone")
}

func TestSearchCache_updatePageKeepsIDAndResetsClock(t *testing.T) {
	c := NewSearchCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	id := c.Put("ab", 1, sampleResults(), 7)

	c.now = func() time.Time { return now.Add(CacheTTL - time.Minute) }
	next := sampleResults()
	next.Page = 2
	c.UpdatePage(id, 2, next)

	// The original Put time is past the TTL, but UpdatePage refreshed it.
	c.now = func() time.Time { return now.Add(CacheTTL + time.Minute) }
	got, err := c.Get(id, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Page)
}

func TestSearchCache_getReturnsSnapshot(t *testing.T) {
	c := NewSearchCache()
	first := sampleResults()
	id := c.Put("ab", 1, first, 7)

	before, err := c.Get(id, 7)
	require.NoError(t, err)

	second := sampleResults()
	second.Page = 2
	c.UpdatePage(id, 2, second)

	// The earlier snapshot is untouched by the update.
	assert.Equal(t, 1, before.Page)
	assert.Same(t, first, before.Results)

	after, err := c.Get(id, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Page)
	assert.Same(t, second, after.Results)
}

func TestSearchCache_concurrentPaginationAndReads(t *testing.T) {
	c := NewSearchCache()
	id := c.Put("ab", 1, sampleResults(), 7)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(page int) {
			defer wg.Done()
			next := sampleResults()
			next.Page = page
			c.UpdatePage(id, page, next)
		}(i + 2)
		go func() {
			defer wg.Done()
			e, err := c.Get(id, 7)
			if err != nil {
				return
			}
			// Fields of the snapshot must be stable reads.
			_ = e.Page
			_ = e.Results.TotalCount
		}()
	}
	wg.Wait()

	got, err := c.Get(id, 7)
	require.NoError(t, err)
	assert.Equal(t, "ab", got.Query)
}

func TestSearchCache_sweep(t *testing.T) {
	c := NewSearchCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Put("old", 1, sampleResults(), 7)

	c.now = func() time.Time { return now.Add(CacheTTL + time.Second) }
	fresh := c.Put("fresh", 1, sampleResults(), 7)
	c.Sweep()

	assert.Equal(t, 1, c.Len())
	_, err := c.Get(fresh, 7)
	assert.NoError(t, err)
}
