package session

import (
	"sync"
	"time"
)

// Kind identifies what the next free-text message from a user means.
type Kind string

const (
	KindRename         Kind = "rename"
	KindMkdir          Kind = "mkdir"
	KindFileSearch     Kind = "file_search"
	KindRepoSearch     Kind = "repo_search"
	KindCreateRepoName Kind = "create_repo_name"
	KindCreateRepoDesc Kind = "create_repo_desc"
	KindCreateRepoVis  Kind = "create_repo_visibility"
	KindForkRepo       Kind = "fork_repo"
	KindDeleteRepo     Kind = "delete_repo"
	KindCreateBranch   Kind = "create_branch"
)

// Pending is a parked operation waiting for one more text message.
type Pending struct {
	Kind      Kind
	Context   map[string]string
	CreatedAt time.Time
}

// PendingTTL bounds how long an unanswered prompt stays alive. The next text
// message after expiry is treated as ordinary input.
const PendingTTL = 10 * time.Minute

// Tracker holds at most one Pending per user. Setting a new one overwrites
// any unconsumed prior one; Consume reads and clears under a single lock so
// two rapid messages cannot both claim the same operation.
type Tracker struct {
	mu      sync.Mutex
	pending map[int64]*Pending
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{pending: make(map[int64]*Pending), now: time.Now}
}

// Set parks an operation for the user, replacing any existing one.
func (t *Tracker) Set(userID int64, kind Kind, ctx map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ctx == nil {
		ctx = map[string]string{}
	}
	t.pending[userID] = &Pending{Kind: kind, Context: ctx, CreatedAt: t.now()}
}

// Consume atomically takes the user's pending operation, if any. Expired
// entries are dropped and reported as absent.
func (t *Tracker) Consume(userID int64) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[userID]
	if !ok {
		return nil, false
	}
	delete(t.pending, userID)
	if t.now().Sub(p.CreatedAt) > PendingTTL {
		return nil, false
	}
	return p, true
}

// Cancel drops the user's pending operation. Reports whether one existed.
func (t *Tracker) Cancel(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[userID]
	delete(t.pending, userID)
	return ok
}

// Len reports how many users have a pending operation.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
