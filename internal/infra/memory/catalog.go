package memory

import (
	"context"

	"cartie-training-service/internal/domain"
)

// Catalog is a static app.ContentCatalog keyed by location.
type Catalog struct {
	sections map[string][]domain.CatalogSection
}

func NewCatalog(sections map[string][]domain.CatalogSection) *Catalog {
	return &Catalog{sections: sections}
}

func (c *Catalog) Video(_ context.Context, locationID, sectionID, videoID string) (domain.CatalogVideo, error) {
	for _, section := range c.sections[locationID] {
		if section.ID != sectionID {
			continue
		}
		for _, video := range section.Videos {
			if video.ID == videoID {
				return video, nil
			}
		}
	}
	return domain.CatalogVideo{}, domain.ErrVideoNotFound
}

func (c *Catalog) Sections(_ context.Context, locationID string) ([]domain.CatalogSection, error) {
	sections := c.sections[locationID]
	out := make([]domain.CatalogSection, len(sections))
	copy(out, sections)
	return out, nil
}

// UserDirectory is a static app.UserDirectory for tests and demo mode.
type UserDirectory struct {
	users map[string]domain.User
}

func NewUserDirectory(users []domain.User) *UserDirectory {
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return &UserDirectory{users: byID}
}

func (d *UserDirectory) User(_ context.Context, id string) (domain.User, error) {
	if user, ok := d.users[id]; ok {
		return user, nil
	}
	return domain.User{}, domain.ErrUserNotFound
}
