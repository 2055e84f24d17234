package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cartie-training-service/internal/domain"
)

// ProgressRepository stores one row per (user, location, section, video).
// The upsert is monotone at the SQL level: watched seconds can only grow
// and a completion flag can only be set, whatever order concurrent updates
// land in.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

func (r *ProgressRepository) Get(ctx context.Context, userID, locationID, sectionID, videoID string) (domain.WatchRecord, bool, error) {
	record := domain.WatchRecord{
		UserID:     userID,
		LocationID: locationID,
		SectionID:  sectionID,
		VideoID:    videoID,
	}
	err := r.pool.QueryRow(ctx,
		`SELECT watched_seconds, is_completed, updated_at
		   FROM video_progress
		  WHERE user_id=$1 AND location_id=$2 AND section_id=$3 AND video_id=$4`,
		userID, locationID, sectionID, videoID,
	).Scan(&record.WatchedSeconds, &record.Completed, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WatchRecord{}, false, nil
	}
	if err != nil {
		return domain.WatchRecord{}, false, fmt.Errorf("load progress: %w", err)
	}
	return record, true, nil
}

func (r *ProgressRepository) Upsert(ctx context.Context, record domain.WatchRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO video_progress (user_id, location_id, section_id, video_id, watched_seconds, is_completed, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, location_id, section_id, video_id) DO UPDATE
		    SET watched_seconds = GREATEST(video_progress.watched_seconds, EXCLUDED.watched_seconds),
		        is_completed = video_progress.is_completed OR EXCLUDED.is_completed,
		        updated_at = EXCLUDED.updated_at`,
		record.UserID, record.LocationID, record.SectionID, record.VideoID,
		record.WatchedSeconds, record.Completed, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (r *ProgressRepository) Section(ctx context.Context, userID, locationID, sectionID string) ([]domain.WatchRecord, error) {
	return r.query(ctx,
		`SELECT user_id, location_id, section_id, video_id, watched_seconds, is_completed, updated_at
		   FROM video_progress
		  WHERE user_id=$1 AND location_id=$2 AND section_id=$3
		  ORDER BY video_id`,
		userID, locationID, sectionID)
}

func (r *ProgressRepository) ByLocation(ctx context.Context, userID, locationID string) ([]domain.WatchRecord, error) {
	return r.query(ctx,
		`SELECT user_id, location_id, section_id, video_id, watched_seconds, is_completed, updated_at
		   FROM video_progress
		  WHERE user_id=$1 AND location_id=$2
		  ORDER BY section_id, video_id`,
		userID, locationID)
}

func (r *ProgressRepository) query(ctx context.Context, sql string, args ...interface{}) ([]domain.WatchRecord, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("load progress rows: %w", err)
	}
	defer rows.Close()

	var out []domain.WatchRecord
	for rows.Next() {
		var record domain.WatchRecord
		if err := rows.Scan(&record.UserID, &record.LocationID, &record.SectionID, &record.VideoID,
			&record.WatchedSeconds, &record.Completed, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
