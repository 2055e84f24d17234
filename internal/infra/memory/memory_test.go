package memory

import (
	"context"
	"testing"
	"time"

	"cartie-training-service/internal/domain"
)

func TestAnswerCacheCaches(t *testing.T) {
	source := &countingSource{QuestionStore: NewQuestionStore(sampleQuestions())}
	cache := NewAnswerCache(source, time.Minute)

	answers, err := cache.CorrectOptions(context.Background(), "loc-1", "")
	if err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if answers["q1"] != "o2" {
		t.Fatalf("expected q1 -> o2, got %q", answers["q1"])
	}
	if source.calls != 1 {
		t.Fatalf("expected source loaded once, got %d", source.calls)
	}

	if _, err := cache.CorrectOptions(context.Background(), "loc-1", ""); err != nil {
		t.Fatalf("correct options 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}
}

func TestAnswerCacheSkipsUnflaggedQuestions(t *testing.T) {
	store := NewQuestionStore([]domain.Question{
		{ID: "q1", LocationID: "loc-1", Options: []domain.Option{{ID: "o1"}, {ID: "o2"}}},
	})
	cache := NewAnswerCache(store, time.Minute)

	answers, err := cache.CorrectOptions(context.Background(), "loc-1", "")
	if err != nil {
		t.Fatalf("correct options: %v", err)
	}
	if _, ok := answers["q1"]; ok {
		t.Fatalf("question with no correct option must not be gradeable")
	}
}

func TestLedgerStoreRevisionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	key := domain.LedgerKey{UserID: "u1", LocationID: "loc-1"}

	fresh := domain.AttemptLedger{Key: key, State: domain.StateInProgress}
	if err := store.Save(ctx, &fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	if fresh.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", fresh.Revision)
	}

	// Two loads pick up revision 1; only the first save may win.
	first, _, _ := store.Load(ctx, key)
	second, _, _ := store.Load(ctx, key)
	if err := store.Save(ctx, &first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := store.Save(ctx, &second); err != domain.ErrConcurrencyConflict {
		t.Fatalf("expected conflict on stale revision, got %v", err)
	}

	// Inserting over an existing key with revision 0 must also conflict.
	stale := domain.AttemptLedger{Key: key}
	if err := store.Save(ctx, &stale); err != domain.ErrConcurrencyConflict {
		t.Fatalf("expected conflict on duplicate insert, got %v", err)
	}
}

func TestLedgerStoreNormalizesStateOnLoad(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	key := domain.LedgerKey{UserID: "u1", LocationID: "loc-1"}

	// A ledger saved with the zero-value state must load as not_started,
	// matching the Postgres store.
	seeded := domain.AttemptLedger{Key: key}
	if err := store.Save(ctx, &seeded); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, found, err := store.Load(ctx, key)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if loaded.State != domain.StateNotStarted {
		t.Fatalf("expected not_started, got %q", loaded.State)
	}
}

func TestSequenceIncrements(t *testing.T) {
	seq := NewSequence()
	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(context.Background())
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestCertificateStoreUniquePerPair(t *testing.T) {
	ctx := context.Background()
	store := NewCertificateStore()

	first := domain.Certificate{ID: "c1", UserID: "u1", LocationID: "loc-1", Number: "CERT-001"}
	if _, created, err := store.Create(ctx, first); err != nil || !created {
		t.Fatalf("expected first create to win, created=%v err=%v", created, err)
	}

	dup := domain.Certificate{ID: "c2", UserID: "u1", LocationID: "loc-1", Number: "CERT-002"}
	persisted, created, err := store.Create(ctx, dup)
	if err != nil {
		t.Fatalf("create dup: %v", err)
	}
	if created || persisted.Number != "CERT-001" {
		t.Fatalf("expected existing certificate back, created=%v number=%s", created, persisted.Number)
	}
}

type countingSource struct {
	*QuestionStore
	calls int
}

func (s *countingSource) Questions(ctx context.Context, locationID, sectionID string) ([]domain.Question, error) {
	s.calls++
	return s.QuestionStore.Questions(ctx, locationID, sectionID)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:         "q1",
			LocationID: "loc-1",
			Prompt:     "What is the safe following distance?",
			Options: []domain.Option{
				{ID: "o1", Text: "1 second"},
				{ID: "o2", Text: "3 seconds", Correct: true},
			},
		},
	}
}
