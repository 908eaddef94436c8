package scanner

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SeenSet remembers which items a scan already handled. It is bounded in both
// size and age: the least recently marked ref is evicted when full, and refs
// older than the TTL are forgotten.
type SeenSet struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, struct{}]
}

// NewSeenSet builds a set holding at most max refs for ttl each. A zero max or
// ttl disables that bound.
func NewSeenSet(max int, ttl time.Duration) *SeenSet {
	if max < 0 {
		max = 0
	}
	return &SeenSet{lru: expirable.NewLRU[string, struct{}](max, nil, ttl)}
}

// MarkIfNew records ref and reports whether it was absent.
func (s *SeenSet) MarkIfNew(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lru.Get(ref); ok {
		return false
	}
	s.lru.Add(ref, struct{}{})
	return true
}

// Forget drops ref so the next scan handles it again.
func (s *SeenSet) Forget(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Remove(ref)
}

func (s *SeenSet) Len() int {
	return s.lru.Len()
}
