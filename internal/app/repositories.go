package app

import (
	"context"

	"cartie-training-service/internal/domain"
)

// LocationRepository answers geometric and identity lookups over the
// location set. Implementations return domain.ErrLocationNotFound /
// domain.ErrNotConfigured for the respective misses.
type LocationRepository interface {
	// Containing returns the admin location whose boundary contains the
	// coordinate, or ErrLocationNotFound when none does.
	Containing(ctx context.Context, c domain.Coordinate) (domain.Location, error)
	// DefaultScope returns the super-admin fallback location, or
	// ErrNotConfigured when none exists.
	DefaultScope(ctx context.Context) (domain.Location, error)
	ByID(ctx context.Context, id string) (domain.Location, error)
}

// QuestionRepository loads the question bank for a scope in stable
// (insertion) order.
type QuestionRepository interface {
	Questions(ctx context.Context, locationID, sectionID string) ([]domain.Question, error)
}

// AnswerSource supplies the questionID -> correct-optionID map used for
// grading. Implementations may cache (memory TTL cache, Redis hash).
type AnswerSource interface {
	CorrectOptions(ctx context.Context, locationID, sectionID string) (map[string]string, error)
}

// LedgerRepository persists attempt ledgers with optimistic concurrency.
// Save succeeds only when the ledger's Revision still matches the stored
// one (0 for a ledger that does not exist yet) and bumps it; a lost race
// returns domain.ErrConcurrencyConflict.
type LedgerRepository interface {
	Load(ctx context.Context, key domain.LedgerKey) (domain.AttemptLedger, bool, error)
	Save(ctx context.Context, ledger *domain.AttemptLedger) error
}

// ProgressRepository persists watch records. Upsert must be monotone: a
// concurrent or out-of-order write can never clear a completion flag or
// shrink watched seconds.
type ProgressRepository interface {
	Get(ctx context.Context, userID, locationID, sectionID, videoID string) (domain.WatchRecord, bool, error)
	Upsert(ctx context.Context, record domain.WatchRecord) error
	Section(ctx context.Context, userID, locationID, sectionID string) ([]domain.WatchRecord, error)
	ByLocation(ctx context.Context, userID, locationID string) ([]domain.WatchRecord, error)
}

// CertificateRepository persists certificates. Create is the enforcement
// point for the at-most-once guarantee: a storage-level uniqueness
// constraint on (userID, locationID) decides races, and the loser receives
// the already-persisted certificate with created=false.
type CertificateRepository interface {
	Find(ctx context.Context, userID, locationID string) (domain.Certificate, bool, error)
	Create(ctx context.Context, cert domain.Certificate) (domain.Certificate, bool, error)
	ByUser(ctx context.Context, userID string) ([]domain.Certificate, error)
	UpdateStatus(ctx context.Context, id string, status domain.CertificateStatus) error
}

// Sequence hands out a strictly increasing global value via an atomic
// find-and-increment. Values are never reused, even when the issuance that
// drew them fails.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
}

// Renderer produces the durable certificate artifact and returns its URL.
type Renderer interface {
	Render(ctx context.Context, fields domain.CertificateFields) (string, error)
}

// UserDirectory exposes the slice of the externally owned user record the
// core reads.
type UserDirectory interface {
	User(ctx context.Context, id string) (domain.User, error)
}

// ContentCatalog supplies canonical section/video lists and durations; an
// external collaborator from the core's point of view.
type ContentCatalog interface {
	Video(ctx context.Context, locationID, sectionID, videoID string) (domain.CatalogVideo, error)
	Sections(ctx context.Context, locationID string) ([]domain.CatalogSection, error)
}

// CompletionGate decides whether a user has met every completion condition
// for a location. A nil gate on the certificate service disables gating.
type CompletionGate interface {
	Eligible(ctx context.Context, userID, locationID string) (bool, error)
}
