package versionstore

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingStore decorates a persisted Store with an in-process LRU cache of
// recently fetched versions, so repeat Get/Latest calls against a
// postgres- or sqlite-backed store (e.g. from the monitoring surface)
// don't round-trip to the database. Append always writes straight through;
// nothing is ever evicted from the backing Store, only from the cache.
type CachingStore struct {
	backing Store
	cache   *lru.Cache[int64, Version]
	latest  *Version
}

// NewCachingStore wraps backing with an LRU cache holding up to size
// versions. size must be > 0.
func NewCachingStore(backing Store, size int) (*CachingStore, error) {
	cache, err := lru.New[int64, Version](size)
	if err != nil {
		return nil, err
	}
	return &CachingStore{backing: backing, cache: cache}, nil
}

func (s *CachingStore) Append(v Version) (int64, error) {
	id, err := s.backing.Append(v)
	if err != nil {
		return 0, err
	}
	v.VersionID = id
	s.cache.Add(id, v)
	s.latest = &v
	return id, nil
}

func (s *CachingStore) Get(id int64) (Version, error) {
	if v, ok := s.cache.Get(id); ok {
		return v, nil
	}
	v, err := s.backing.Get(id)
	if err != nil {
		return Version{}, err
	}
	s.cache.Add(id, v)
	return v, nil
}

func (s *CachingStore) Latest() (Version, bool) {
	if s.latest != nil {
		return *s.latest, true
	}
	v, ok := s.backing.Latest()
	if ok {
		s.latest = &v
		s.cache.Add(v.VersionID, v)
	}
	return v, ok
}

// List always defers to the backing store: pagination results are not
// cached since they are rarely repeated with identical (limit, offset).
func (s *CachingStore) List(limit, offset int) ([]Version, error) {
	return s.backing.List(limit, offset)
}

var _ Store = (*CachingStore)(nil)
