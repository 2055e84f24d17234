package memory

import (
	"context"
	"sort"
	"sync"

	"cartie-training-service/internal/domain"
)

// ProgressStore is an in-memory app.ProgressRepository. Upserts merge
// monotonically under the store lock, matching the Postgres
// GREATEST/OR upsert.
type ProgressStore struct {
	mu      sync.RWMutex
	records map[progressKey]domain.WatchRecord
}

type progressKey struct {
	userID     string
	locationID string
	sectionID  string
	videoID    string
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{records: make(map[progressKey]domain.WatchRecord)}
}

func (s *ProgressStore) Get(_ context.Context, userID, locationID, sectionID, videoID string) (domain.WatchRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[progressKey{userID, locationID, sectionID, videoID}]
	return record, ok, nil
}

func (s *ProgressStore) Upsert(_ context.Context, record domain.WatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey{record.UserID, record.LocationID, record.SectionID, record.VideoID}
	if existing, ok := s.records[key]; ok {
		if existing.WatchedSeconds > record.WatchedSeconds {
			record.WatchedSeconds = existing.WatchedSeconds
		}
		record.Completed = record.Completed || existing.Completed
	}
	s.records[key] = record
	return nil
}

func (s *ProgressStore) Section(_ context.Context, userID, locationID, sectionID string) ([]domain.WatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WatchRecord
	for key, record := range s.records {
		if key.userID == userID && key.locationID == locationID && key.sectionID == sectionID {
			out = append(out, record)
		}
	}
	sortRecords(out)
	return out, nil
}

func (s *ProgressStore) ByLocation(_ context.Context, userID, locationID string) ([]domain.WatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.WatchRecord
	for key, record := range s.records {
		if key.userID == userID && key.locationID == locationID {
			out = append(out, record)
		}
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(records []domain.WatchRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].SectionID != records[j].SectionID {
			return records[i].SectionID < records[j].SectionID
		}
		return records[i].VideoID < records[j].VideoID
	})
}
