package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// CertificateCounterName is the counter row backing certificate numbering.
const CertificateCounterName = "certificate"

// Sequence hands out a strictly increasing value via a single atomic
// upsert-and-increment statement. A read-then-write pattern would reopen
// the duplicate-number race this exists to close.
type Sequence struct {
	pool *pgxpool.Pool
	name string
}

func NewSequence(pool *pgxpool.Pool, name string) *Sequence {
	return &Sequence{pool: pool, name: name}
}

func (s *Sequence) Next(ctx context.Context) (int64, error) {
	var value int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO counters (name, value) VALUES ($1, 1)
		 ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		 RETURNING value`,
		s.name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("next counter value: %w", err)
	}
	return value, nil
}
