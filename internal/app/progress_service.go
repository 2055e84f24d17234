package app

import (
	"context"
	"time"

	"cartie-training-service/internal/domain"
	"cartie-training-service/internal/logging"
)

// DefaultToleranceSeconds is the slack subtracted from the canonical video
// duration when deciding watch-completion, absorbing playback rounding.
const DefaultToleranceSeconds = 5

// ProgressAck reports the state after one progress update.
type ProgressAck struct {
	VideoCompleted   bool `json:"videoCompleted"`
	SectionCompleted bool `json:"sectionCompleted"`
	WatchedSeconds   int  `json:"watchedSeconds"`
}

// SectionOverview is the read-only projection of catalog plus progress that
// the player renders for one location.
type SectionOverview struct {
	SectionID        string          `json:"sectionId"`
	SectionNumber    string          `json:"sectionNumber"`
	Title            string          `json:"title"`
	SectionCompleted bool            `json:"isSectionCompleted"`
	Videos           []VideoOverview `json:"videos"`
}

// VideoOverview pairs a catalog video with the user's progress through it.
type VideoOverview struct {
	VideoID         string `json:"videoId"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"durationSeconds"`
	WatchedSeconds  int    `json:"watchedSeconds"`
	Completed       bool   `json:"isCompleted"`
}

// ProgressService tracks per-video watch state and derives section
// completion from it.
type ProgressService struct {
	progress  ProgressRepository
	catalog   ContentCatalog
	log       *logging.Logger
	tolerance int
	clock     func() time.Time
}

func NewProgressService(progress ProgressRepository, catalog ContentCatalog, log *logging.Logger) *ProgressService {
	return &ProgressService{
		progress:  progress,
		catalog:   catalog,
		log:       log,
		tolerance: DefaultToleranceSeconds,
		clock:     time.Now,
	}
}

// WithTolerance overrides the completion tolerance.
func (s *ProgressService) WithTolerance(seconds int) *ProgressService {
	if seconds >= 0 {
		s.tolerance = seconds
	}
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *ProgressService) WithClock(now func() time.Time) *ProgressService {
	s.clock = now
	return s
}

// UpdateVideoProgress folds a playback position into the stored record and
// recomputes section completion. Purely accumulative: records are created
// on first write and completion never reverts.
func (s *ProgressService) UpdateVideoProgress(ctx context.Context, userID, locationID, sectionID, videoID string, watchedSeconds int) (ProgressAck, error) {
	var messages []string
	if userID == "" {
		messages = append(messages, "userId is required")
	}
	if locationID == "" {
		messages = append(messages, "locationId is required")
	}
	if sectionID == "" {
		messages = append(messages, "sectionId is required")
	}
	if videoID == "" {
		messages = append(messages, "videoId is required")
	}
	if watchedSeconds < 0 {
		messages = append(messages, "watchedSeconds must not be negative")
	}
	if len(messages) > 0 {
		return ProgressAck{}, domain.NewValidationError(messages...)
	}

	video, err := s.catalog.Video(ctx, locationID, sectionID, videoID)
	if err != nil {
		return ProgressAck{}, err
	}

	record, found, err := s.progress.Get(ctx, userID, locationID, sectionID, videoID)
	if err != nil {
		return ProgressAck{}, err
	}
	if !found {
		record = domain.WatchRecord{
			UserID:     userID,
			LocationID: locationID,
			SectionID:  sectionID,
			VideoID:    videoID,
		}
	}
	record.Apply(watchedSeconds, video.DurationSeconds, s.tolerance, s.clock())

	if err := s.progress.Upsert(ctx, record); err != nil {
		return ProgressAck{}, err
	}

	sectionDone, err := s.sectionCompleted(ctx, userID, locationID, sectionID)
	if err != nil {
		return ProgressAck{}, err
	}
	if record.Completed {
		s.log.Debug("video completed",
			"userId", userID, "videoId", videoID, "sectionCompleted", sectionDone)
	}
	return ProgressAck{
		VideoCompleted:   record.Completed,
		SectionCompleted: sectionDone,
		WatchedSeconds:   record.WatchedSeconds,
	}, nil
}

// Overview assembles the per-section progress view for a location.
func (s *ProgressService) Overview(ctx context.Context, userID, locationID string) ([]SectionOverview, error) {
	sections, err := s.catalog.Sections(ctx, locationID)
	if err != nil {
		return nil, err
	}
	records, err := s.progress.ByLocation(ctx, userID, locationID)
	if err != nil {
		return nil, err
	}
	byVideo := make(map[string]domain.WatchRecord, len(records))
	for _, r := range records {
		byVideo[r.SectionID+"/"+r.VideoID] = r
	}

	overview := make([]SectionOverview, 0, len(sections))
	for _, section := range sections {
		so := SectionOverview{
			SectionID:     section.ID,
			SectionNumber: section.Number,
			Title:         section.Title,
		}
		// Sections without videos have nothing to watch and count complete,
		// the same rule the issuance gate applies.
		done := true
		for _, video := range section.Videos {
			record := byVideo[section.ID+"/"+video.ID]
			if !record.Completed {
				done = false
			}
			so.Videos = append(so.Videos, VideoOverview{
				VideoID:         video.ID,
				Title:           video.Title,
				DurationSeconds: video.DurationSeconds,
				WatchedSeconds:  record.WatchedSeconds,
				Completed:       record.Completed,
			})
		}
		so.SectionCompleted = done
		overview = append(overview, so)
	}
	return overview, nil
}

// sectionCompleted is true iff every catalog video of the section has a
// completed record.
func (s *ProgressService) sectionCompleted(ctx context.Context, userID, locationID, sectionID string) (bool, error) {
	sections, err := s.catalog.Sections(ctx, locationID)
	if err != nil {
		return false, err
	}
	var (
		videos []domain.CatalogVideo
		known  bool
	)
	for _, section := range sections {
		if section.ID == sectionID {
			videos = section.Videos
			known = true
			break
		}
	}
	if !known {
		return false, nil
	}
	// No videos means nothing left to watch; matches Overview and the
	// issuance gate.
	if len(videos) == 0 {
		return true, nil
	}

	records, err := s.progress.Section(ctx, userID, locationID, sectionID)
	if err != nil {
		return false, err
	}
	completed := make(map[string]bool, len(records))
	for _, r := range records {
		completed[r.VideoID] = r.Completed
	}
	for _, video := range videos {
		if !completed[video.ID] {
			return false, nil
		}
	}
	return true, nil
}
