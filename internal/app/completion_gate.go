package app

import (
	"context"

	"cartie-training-service/internal/domain"
)

// TrainingGate is the aggregate completion check consulted before
// certificate issuance: every catalog section must be fully watched and its
// assessment passed. Locations without catalog sections gate on the
// location-level assessment alone.
type TrainingGate struct {
	ledgers  LedgerRepository
	progress ProgressRepository
	catalog  ContentCatalog
}

func NewTrainingGate(ledgers LedgerRepository, progress ProgressRepository, catalog ContentCatalog) *TrainingGate {
	return &TrainingGate{ledgers: ledgers, progress: progress, catalog: catalog}
}

func (g *TrainingGate) Eligible(ctx context.Context, userID, locationID string) (bool, error) {
	sections, err := g.catalog.Sections(ctx, locationID)
	if err != nil {
		return false, err
	}

	if len(sections) == 0 {
		return g.passed(ctx, domain.LedgerKey{UserID: userID, LocationID: locationID})
	}

	for _, section := range sections {
		passed, err := g.passed(ctx, domain.LedgerKey{UserID: userID, LocationID: locationID, SectionID: section.ID})
		if err != nil {
			return false, err
		}
		if !passed {
			return false, nil
		}
		watched, err := g.sectionWatched(ctx, userID, locationID, section)
		if err != nil {
			return false, err
		}
		if !watched {
			return false, nil
		}
	}
	return true, nil
}

func (g *TrainingGate) passed(ctx context.Context, key domain.LedgerKey) (bool, error) {
	ledger, found, err := g.ledgers.Load(ctx, key)
	if err != nil {
		return false, err
	}
	return found && ledger.State.Passed(), nil
}

func (g *TrainingGate) sectionWatched(ctx context.Context, userID, locationID string, section domain.CatalogSection) (bool, error) {
	records, err := g.progress.Section(ctx, userID, locationID, section.ID)
	if err != nil {
		return false, err
	}
	completed := make(map[string]bool, len(records))
	for _, r := range records {
		completed[r.VideoID] = r.Completed
	}
	for _, video := range section.Videos {
		if !completed[video.ID] {
			return false, nil
		}
	}
	return true, nil
}
