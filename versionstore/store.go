// Package versionstore implements the append-only Version Store (C4): a
// monotonically increasing, never-mutated log of applied configurations.
// The default in-memory Store below is grounded on the ordering and
// monotonicity guarantees of the alert-history service's PostgreSQLConfigStorage.Save
// (internal/config/update_storage.go) — "get current max, insert next,
// return it" — done here with a mutex instead of a SQL transaction, since
// the default store has no external persistence to arbitrate.
package versionstore

import (
	"sync"
	"time"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/diff"
	"github.com/four-robots/brokerctl/internal/ctlerr"
)

// Version is one append-only configuration record.
type Version struct {
	VersionID int64
	Snapshot  *config.BrokerConfiguration
	ParentID  int64 // 0 means "no parent" (first version)
	AppliedAt time.Time
	Description string
	Diff      *diff.Diff // diff from parent; nil for the first version
	Actor     string
}

// Store is the C4 contract. Implementations must be atomic on Append and
// must never delete or mutate a previously appended Version.
type Store interface {
	// Append assigns the next version_id and persists v, returning the
	// assigned id. The caller supplies everything except VersionID.
	Append(v Version) (int64, error)

	// Get returns the version with the given id, or a NotFound error.
	Get(id int64) (Version, error)

	// Latest returns the most recently appended version. ok is false if
	// the store is empty.
	Latest() (v Version, ok bool)

	// List returns versions newest-first, paginated by limit/offset.
	List(limit, offset int) ([]Version, error)
}

// InMemoryStore is the default Store: an ordered slice guarded by a mutex.
// It does not persist across process restarts — the pluggable postgres
// and sqlite packages do.
type InMemoryStore struct {
	mu       sync.Mutex
	versions []Version
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(v Version) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextID := int64(len(s.versions)) + 1
	v.VersionID = nextID
	s.versions = append(s.versions, v)
	return nextID, nil
}

func (s *InMemoryStore) Get(id int64) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 1 || id > int64(len(s.versions)) {
		return Version{}, ctlerr.New(ctlerr.NotFound, "version not found")
	}
	return s.versions[id-1], nil
}

func (s *InMemoryStore) Latest() (Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.versions) == 0 {
		return Version{}, false
	}
	return s.versions[len(s.versions)-1], true
}

func (s *InMemoryStore) List(limit, offset int) ([]Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.versions)
	if offset < 0 {
		offset = 0
	}

	var out []Version
	for rank := offset; rank < n; rank++ {
		if limit > 0 && len(out) >= limit {
			break
		}
		idx := n - 1 - rank // rank 0 = newest
		out = append(out, s.versions[idx])
	}
	return out, nil
}
