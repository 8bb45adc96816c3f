package store

import (
	"sync"
	"time"
)

// IDSource hands out todo ids derived from the creation time in
// milliseconds. When the clock has not moved since the last id, the previous
// id plus one is used so ids stay unique and increasing.
type IDSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewIDSource returns an IDSource reading the given clock. A nil clock uses
// time.Now.
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next returns a fresh id.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

// NextN returns n consecutive fresh ids.
func (s *IDSource) NextN(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = s.Next()
	}
	return ids
}
