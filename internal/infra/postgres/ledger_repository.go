package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cartie-training-service/internal/domain"
)

// LedgerRepository stores one row per ledger key with the attempt list as
// JSONB and a revision column for optimistic concurrency. Appends are a
// compare-and-swap on the revision, never a blind overwrite, so two racing
// submissions cannot both slip under the daily cap.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) Load(ctx context.Context, key domain.LedgerKey) (domain.AttemptLedger, bool, error) {
	var (
		rawAttempts []byte
		state       string
		unlocked    bool
		completedAt *time.Time
		revision    int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT attempts, state, next_unlocked, completed_at, revision
		   FROM attempt_ledgers
		  WHERE user_id=$1 AND location_id=$2 AND section_id=$3`,
		key.UserID, key.LocationID, key.SectionID,
	).Scan(&rawAttempts, &state, &unlocked, &completedAt, &revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AttemptLedger{}, false, nil
	}
	if err != nil {
		return domain.AttemptLedger{}, false, fmt.Errorf("load ledger: %w", err)
	}

	var attempts []domain.Attempt
	if err := json.Unmarshal(rawAttempts, &attempts); err != nil {
		return domain.AttemptLedger{}, false, fmt.Errorf("unmarshal attempts: %w", err)
	}
	ledger := domain.AttemptLedger{
		Key:          key,
		Attempts:     attempts,
		State:        domain.SectionState(state).Normalize(),
		NextUnlocked: unlocked,
		Revision:     revision,
	}
	if completedAt != nil {
		ledger.CompletedAt = *completedAt
	}
	return ledger, true, nil
}

func (r *LedgerRepository) Save(ctx context.Context, ledger *domain.AttemptLedger) error {
	rawAttempts, err := json.Marshal(ledger.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}
	var completedAt *time.Time
	if !ledger.CompletedAt.IsZero() {
		completedAt = &ledger.CompletedAt
	}

	if ledger.Revision == 0 {
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO attempt_ledgers (user_id, location_id, section_id, state, next_unlocked, completed_at, attempts, revision)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
			 ON CONFLICT (user_id, location_id, section_id) DO NOTHING`,
			ledger.Key.UserID, ledger.Key.LocationID, ledger.Key.SectionID,
			string(ledger.State), ledger.NextUnlocked, completedAt, rawAttempts)
		if err != nil {
			return fmt.Errorf("insert ledger: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrConcurrencyConflict
		}
		ledger.Revision = 1
		return nil
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE attempt_ledgers
		    SET attempts=$4, state=$5, next_unlocked=$6, completed_at=$7, revision=revision+1
		  WHERE user_id=$1 AND location_id=$2 AND section_id=$3 AND revision=$8`,
		ledger.Key.UserID, ledger.Key.LocationID, ledger.Key.SectionID,
		rawAttempts, string(ledger.State), ledger.NextUnlocked, completedAt, ledger.Revision)
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}
	ledger.Revision++
	return nil
}
