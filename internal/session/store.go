package session

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session IDs.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidFilter is returned for a category or status outside the closed sets.
	ErrInvalidFilter = errors.New("invalid filter value")
)

// Filters is the bill listing selection of a session.
type Filters struct {
	Category bill.Category `json:"category"`
	Status   bill.Status   `json:"status"`
}

// DefaultFilters selects every bill.
func DefaultFilters() Filters {
	return Filters{Category: bill.CategoryAll, Status: bill.StatusAll}
}

// SetCategory selects a category, or every category for bill.CategoryAll.
func (f *Filters) SetCategory(c bill.Category) error {
	if c != bill.CategoryAll && !c.Valid() {
		return fmt.Errorf("%w: category %q", ErrInvalidFilter, c)
	}
	f.Category = c
	return nil
}

// SetStatus selects a status, or every status for bill.StatusAll.
func (f *Filters) SetStatus(s bill.Status) error {
	if s != bill.StatusAll && !s.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidFilter, s)
	}
	f.Status = s
	return nil
}

// Clear resets both predicates to the wildcard.
func (f *Filters) Clear() {
	*f = DefaultFilters()
}

// Active reports whether any predicate narrows the listing.
func (f Filters) Active() bool {
	return f.Category != bill.CategoryAll || f.Status != bill.StatusAll
}

// Apply filters bills by the session's selection.
func (f Filters) Apply(bills []bill.Bill) []bill.Bill {
	return bill.Filter(bills, f.Category, f.Status)
}

// Session is one citizen's ephemeral participation state.
type Session struct {
	ID        string               `json:"id"`
	State     State                `json:"state"`
	Filters   Filters              `json:"filters"`
	Votes     map[string]bill.Vote `json:"votes"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func (s *Session) clone() Session {
	c := *s
	c.Votes = maps.Clone(s.Votes)
	if c.Votes == nil {
		c.Votes = map[string]bill.Vote{}
	}
	return c
}

// Store holds sessions. Update runs fn while holding the session exclusively,
// so each session has a single writer.
type Store interface {
	Create() (Session, error)
	Get(id string) (Session, error)
	Update(id string, fn func(*Session) error) (Session, error)
	Delete(id string) error
}

// MemoryStore is an in-memory implementation of Store. Sessions are never
// persisted and vanish with the process.
type MemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		State:     NewState(),
		Filters:   DefaultFilters(),
		Votes:     map[string]bill.Vote{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	return sess.clone(), nil
}

func (s *MemoryStore) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess.clone(), nil
}

// Update applies fn to a copy of the session and stores the copy only when fn
// succeeds, so a failed update leaves the session untouched.
func (s *MemoryStore) Update(id string, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	next := sess.clone()
	if err := fn(&next); err != nil {
		return Session{}, err
	}
	next.ID = sess.ID
	next.UpdatedAt = s.now()
	s.sessions[id] = &next
	return next.clone(), nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// PruneIdle removes sessions not updated within maxIdle and returns how many
// were removed.
func (s *MemoryStore) PruneIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
