package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenStore remembers recently processed command IDs so re-delivered
// bus messages are dropped instead of executed twice. The Bloom filter
// answers the common "never seen" case without touching the map.
type SeenStore struct {
	ids               map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	maxIDs            int
	falsePositiveRate float64
}

// NewSeenStore creates a seen store holding at most maxIDs command IDs.
func NewSeenStore(maxIDs int, falsePositiveRate float64) *SeenStore {
	lruCache, _ := lru.New[string, struct{}](maxIDs)

	if maxIDs < 0 || maxIDs > int(^uint(0)>>1) {
		panic("maxIDs value out of range for uint conversion")
	}
	bloomFilter := bloom.NewWithEstimates(uint(maxIDs), falsePositiveRate)

	return &SeenStore{
		ids:               make(map[string]struct{}),
		bloom:             bloomFilter,
		lru:               lruCache,
		maxIDs:            maxIDs,
		falsePositiveRate: falsePositiveRate,
	}
}

// Seen reports whether the command ID was marked before.
func (s *SeenStore) Seen(id string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.bloom.TestString(id) {
		return false
	}

	_, exists := s.ids[id]
	return exists
}

// Mark records a command ID, evicting the oldest entry when the store
// is full.
func (s *SeenStore) Mark(id string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.ids[id]; exists {
		return
	}

	s.ids[id] = struct{}{}
	s.bloom.AddString(id)
	s.lru.Add(id, struct{}{})

	if len(s.ids) > s.maxIDs {
		s.evictOldest()
	}
}

// Size returns the number of command IDs currently stored.
func (s *SeenStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.ids)
}

func (s *SeenStore) evictOldest() {
	if s.lru.Len() == 0 {
		return
	}

	oldestKey, _, ok := s.lru.GetOldest()
	if !ok {
		return
	}

	delete(s.ids, oldestKey)
	s.lru.Remove(oldestKey)
}
