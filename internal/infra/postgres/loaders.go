package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cartie-training-service/internal/domain"
)

// QuestionLoader loads question JSONB from Postgres in stable position
// order, satisfying app.QuestionRepository.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) Questions(ctx context.Context, locationID, sectionID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT data FROM questions WHERE location_id=$1 AND section_id=$2 ORDER BY position`,
		locationID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// LocationLoader reads location JSONB and answers the repository contract.
// Boundary containment is evaluated in Go over the stored polygons; the
// location set is small and read-heavy.
type LocationLoader struct {
	pool *pgxpool.Pool
}

func NewLocationLoader(pool *pgxpool.Pool) *LocationLoader {
	return &LocationLoader{pool: pool}
}

func (l *LocationLoader) Containing(ctx context.Context, c domain.Coordinate) (domain.Location, error) {
	locations, err := l.all(ctx)
	if err != nil {
		return domain.Location{}, err
	}
	for _, loc := range locations {
		if !loc.Default && loc.Boundary.Contains(c) {
			return loc, nil
		}
	}
	return domain.Location{}, domain.ErrLocationNotFound
}

func (l *LocationLoader) DefaultScope(ctx context.Context) (domain.Location, error) {
	locations, err := l.all(ctx)
	if err != nil {
		return domain.Location{}, err
	}
	for _, loc := range locations {
		if loc.Default {
			return loc, nil
		}
	}
	return domain.Location{}, domain.ErrNotConfigured
}

func (l *LocationLoader) ByID(ctx context.Context, id string) (domain.Location, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM locations WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Location{}, domain.ErrLocationNotFound
	}
	if err != nil {
		return domain.Location{}, fmt.Errorf("load location: %w", err)
	}
	var loc domain.Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		return domain.Location{}, fmt.Errorf("unmarshal location: %w", err)
	}
	return loc, nil
}

func (l *LocationLoader) all(ctx context.Context) ([]domain.Location, error) {
	rows, err := l.pool.Query(ctx, `SELECT data FROM locations`)
	if err != nil {
		return nil, fmt.Errorf("load locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.Location
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		var loc domain.Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			return nil, fmt.Errorf("unmarshal location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}
