package app

import (
	"context"
	"errors"

	"cartie-training-service/internal/domain"
)

// Resolver maps a user coordinate to the governing content scope. Pure
// lookup, no side effects.
type Resolver struct {
	locations LocationRepository
}

func NewResolver(locations LocationRepository) *Resolver {
	return &Resolver{locations: locations}
}

// Resolve returns the admin location containing the coordinate, falling
// back to the default scope when no boundary matches. ErrNotConfigured when
// neither exists.
func (r *Resolver) Resolve(ctx context.Context, c domain.Coordinate) (domain.Scope, error) {
	loc, err := r.locations.Containing(ctx, c)
	if err == nil {
		return domain.Scope{LocationID: loc.ID}, nil
	}
	if !errors.Is(err, domain.ErrLocationNotFound) {
		return domain.Scope{}, err
	}

	fallback, err := r.locations.DefaultScope(ctx)
	if err != nil {
		return domain.Scope{}, err
	}
	return domain.Scope{LocationID: fallback.ID, Default: true}, nil
}
