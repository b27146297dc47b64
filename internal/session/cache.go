package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvidal/repobot/internal/github"
)

var (
	// ErrNotFound means the session id is unknown or already expired.
	ErrNotFound = errors.New("search session not found")
	// ErrForbidden means the session belongs to another user.
	ErrForbidden = errors.New("search session belongs to another user")
)

// CacheTTL is how long a search session stays usable after its last update.
const CacheTTL = 1800 * time.Second

// CachedSearch is one user's paginated repository search in flight.
type CachedSearch struct {
	ID        string
	Query     string
	Page      int
	Results   *github.SearchResult
	OwnerID   int64
	UpdatedAt time.Time
}

// SearchCache keys recent searches by an opaque short token so callback
// payloads stay small. Expired entries are swept lazily on access.
type SearchCache struct {
	mu      sync.Mutex
	entries map[string]*CachedSearch
	now     func() time.Time
}

func NewSearchCache() *SearchCache {
	return &SearchCache{entries: make(map[string]*CachedSearch), now: time.Now}
}

// Put stores a fresh search and returns its session id.
func (c *SearchCache) Put(query string, page int, results *github.SearchResult, ownerID int64) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = &CachedSearch{
		ID:        id,
		Query:     query,
		Page:      page,
		Results:   results,
		OwnerID:   ownerID,
		UpdatedAt: c.now(),
	}
	return id
}

// Get returns a snapshot of the session for id, enforcing ownership and
// expiry. The copy is taken under the lock so a concurrent UpdatePage never
// mutates fields a handler is still reading; UpdatePage swaps the Results
// pointer rather than writing through it, so the snapshot stays immutable.
func (c *SearchCache) Get(id string, userID int64) (*CachedSearch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.now().Sub(e.UpdatedAt) > CacheTTL {
		delete(c.entries, id)
		return nil, ErrNotFound
	}
	if e.OwnerID != userID {
		return nil, ErrForbidden
	}
	snapshot := *e
	return &snapshot, nil
}

// UpdatePage refreshes results in place for pagination, keeping the same id
// so existing buttons stay valid, and resets the expiry clock.
func (c *SearchCache) UpdatePage(id string, page int, results *github.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return
	}
	e.Page = page
	e.Results = results
	e.UpdatedAt = c.now()
}

// Sweep removes entries older than the TTL. Called opportunistically at the
// start of callback handling; there is no background timer.
func (c *SearchCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.UpdatedAt) > CacheTTL {
			delete(c.entries, id)
		}
	}
}

// Len reports the number of live entries.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
