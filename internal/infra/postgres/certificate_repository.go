package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"cartie-training-service/internal/domain"
)

// CertificateRepository persists certificates. The unique constraint on
// (user_id, location_id) is the at-most-once enforcement point; Create uses
// ON CONFLICT DO NOTHING and hands the loser the winner's row.
type CertificateRepository struct {
	pool *pgxpool.Pool
}

func NewCertificateRepository(pool *pgxpool.Pool) *CertificateRepository {
	return &CertificateRepository{pool: pool}
}

const certificateColumns = `id, user_id, location_id, certificate_number, email, certificate_name, issued_by, status, issue_date, valid_until, artifact_url`

func (r *CertificateRepository) Find(ctx context.Context, userID, locationID string) (domain.Certificate, bool, error) {
	cert, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id=$1 AND location_id=$2`,
		userID, locationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Certificate{}, false, nil
	}
	if err != nil {
		return domain.Certificate{}, false, fmt.Errorf("find certificate: %w", err)
	}
	return cert, true, nil
}

func (r *CertificateRepository) Create(ctx context.Context, cert domain.Certificate) (domain.Certificate, bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO certificates (`+certificateColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT ON CONSTRAINT certificates_user_location_uniq DO NOTHING`,
		cert.ID, cert.UserID, cert.LocationID, cert.Number, cert.Email, cert.Name,
		cert.IssuedBy, string(cert.Status), cert.IssueDate, cert.ValidUntil, cert.ArtifactURL)
	if err != nil {
		return domain.Certificate{}, false, fmt.Errorf("insert certificate: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return cert, true, nil
	}

	existing, found, err := r.Find(ctx, cert.UserID, cert.LocationID)
	if err != nil {
		return domain.Certificate{}, false, err
	}
	if !found {
		return domain.Certificate{}, false, domain.ErrConcurrencyConflict
	}
	return existing, false, nil
}

func (r *CertificateRepository) ByUser(ctx context.Context, userID string) ([]domain.Certificate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE user_id=$1 ORDER BY certificate_number`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []domain.Certificate
	for rows.Next() {
		cert, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		out = append(out, cert)
	}
	return out, rows.Err()
}

func (r *CertificateRepository) UpdateStatus(ctx context.Context, id string, status domain.CertificateStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE certificates SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update certificate status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCertificateNotFound
	}
	return nil
}

func (r *CertificateRepository) scanOne(row pgx.Row) (domain.Certificate, error) {
	var cert domain.Certificate
	var status string
	err := row.Scan(&cert.ID, &cert.UserID, &cert.LocationID, &cert.Number, &cert.Email,
		&cert.Name, &cert.IssuedBy, &status, &cert.IssueDate, &cert.ValidUntil, &cert.ArtifactURL)
	if err != nil {
		return domain.Certificate{}, err
	}
	cert.Status = domain.CertificateStatus(status)
	return cert, nil
}
