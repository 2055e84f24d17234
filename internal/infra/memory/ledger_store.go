package memory

import (
	"context"
	"sync"

	"cartie-training-service/internal/domain"
)

// LedgerStore is an in-memory app.LedgerRepository with the same optimistic
// concurrency contract as the Postgres store: Save succeeds only against
// the current revision.
type LedgerStore struct {
	mu      sync.Mutex
	ledgers map[domain.LedgerKey]domain.AttemptLedger
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{ledgers: make(map[domain.LedgerKey]domain.AttemptLedger)}
}

func (s *LedgerStore) Load(_ context.Context, key domain.LedgerKey) (domain.AttemptLedger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[key]
	if !ok {
		return domain.AttemptLedger{}, false, nil
	}
	out := copyLedger(ledger)
	out.State = out.State.Normalize()
	return out, true, nil
}

func (s *LedgerStore) Save(_ context.Context, ledger *domain.AttemptLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.ledgers[ledger.Key]
	if !exists {
		if ledger.Revision != 0 {
			return domain.ErrConcurrencyConflict
		}
	} else if current.Revision != ledger.Revision {
		return domain.ErrConcurrencyConflict
	}

	ledger.Revision++
	s.ledgers[ledger.Key] = copyLedger(*ledger)
	return nil
}

func copyLedger(l domain.AttemptLedger) domain.AttemptLedger {
	attempts := make([]domain.Attempt, len(l.Attempts))
	copy(attempts, l.Attempts)
	l.Attempts = attempts
	return l
}
