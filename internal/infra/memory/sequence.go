package memory

import (
	"context"
	"sync"
)

// Sequence is an in-memory app.Sequence. The mutex makes increments atomic
// under concurrent issuance; durability belongs to the Postgres counter.
type Sequence struct {
	mu    sync.Mutex
	value int64
}

func NewSequence() *Sequence {
	return &Sequence{}
}

func (s *Sequence) Next(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value++
	return s.value, nil
}
