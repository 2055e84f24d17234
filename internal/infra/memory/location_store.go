package memory

import (
	"context"

	"cartie-training-service/internal/domain"
)

// LocationStore is an in-memory app.LocationRepository backed by a static
// location list; useful for tests and the no-database demo mode.
type LocationStore struct {
	locations []domain.Location
}

func NewLocationStore(locations []domain.Location) *LocationStore {
	return &LocationStore{locations: locations}
}

func (s *LocationStore) Containing(_ context.Context, c domain.Coordinate) (domain.Location, error) {
	for _, loc := range s.locations {
		if !loc.Default && loc.Boundary.Contains(c) {
			return loc, nil
		}
	}
	return domain.Location{}, domain.ErrLocationNotFound
}

func (s *LocationStore) DefaultScope(_ context.Context) (domain.Location, error) {
	for _, loc := range s.locations {
		if loc.Default {
			return loc, nil
		}
	}
	return domain.Location{}, domain.ErrNotConfigured
}

func (s *LocationStore) ByID(_ context.Context, id string) (domain.Location, error) {
	for _, loc := range s.locations {
		if loc.ID == id {
			return loc, nil
		}
	}
	return domain.Location{}, domain.ErrLocationNotFound
}
