package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cartie-training-service/internal/domain"
	"cartie-training-service/internal/logging"
)

// DefaultIssuedBy is stamped on certificates when no issuer is configured.
const DefaultIssuedBy = "CARTIE APP"

// CertificateService issues certificates at most once per (user, location)
// pair and serves certificate reads.
type CertificateService struct {
	certs     CertificateRepository
	sequence  Sequence
	renderer  Renderer
	users     UserDirectory
	locations LocationRepository
	gate      CompletionGate
	log       *logging.Logger
	issuedBy  string
	clock     func() time.Time
}

func NewCertificateService(certs CertificateRepository, sequence Sequence, renderer Renderer, users UserDirectory, locations LocationRepository, log *logging.Logger) *CertificateService {
	return &CertificateService{
		certs:     certs,
		sequence:  sequence,
		renderer:  renderer,
		users:     users,
		locations: locations,
		log:       log,
		issuedBy:  DefaultIssuedBy,
		clock:     time.Now,
	}
}

// WithCompletionGate requires the gate's conditions before issuing.
func (s *CertificateService) WithCompletionGate(gate CompletionGate) *CertificateService {
	s.gate = gate
	return s
}

// WithIssuedBy overrides the issuer stamped on certificates.
func (s *CertificateService) WithIssuedBy(name string) *CertificateService {
	if name != "" {
		s.issuedBy = name
	}
	return s
}

// WithClock is test-only for deterministic timestamps.
func (s *CertificateService) WithClock(now func() time.Time) *CertificateService {
	s.clock = now
	return s
}

// Enroll issues the certificate for (userID, locationID), resolving to the
// default scope when locationID is empty. Calling it again returns the
// existing certificate unchanged; issuance never re-triggers. Under
// concurrent calls the storage uniqueness constraint decides the winner and
// every caller receives the one persisted certificate. The render runs
// before the persist, so a render failure leaves nothing behind (the drawn
// sequence number stays consumed; accepted gap).
func (s *CertificateService) Enroll(ctx context.Context, userID, locationID string) (domain.Certificate, error) {
	user, err := s.users.User(ctx, userID)
	if err != nil {
		return domain.Certificate{}, err
	}

	var location domain.Location
	if locationID == "" {
		location, err = s.locations.DefaultScope(ctx)
		if errors.Is(err, domain.ErrNotConfigured) {
			err = domain.ErrLocationNotFound
		}
	} else {
		location, err = s.locations.ByID(ctx, locationID)
	}
	if err != nil {
		return domain.Certificate{}, err
	}

	if existing, found, err := s.certs.Find(ctx, userID, location.ID); err != nil {
		return domain.Certificate{}, err
	} else if found {
		s.log.Info("certificate already issued", "userId", userID, "locationId", location.ID, "number", existing.Number)
		return existing, nil
	}

	if s.gate != nil {
		eligible, err := s.gate.Eligible(ctx, userID, location.ID)
		if err != nil {
			return domain.Certificate{}, err
		}
		if !eligible {
			return domain.Certificate{}, domain.ErrNotEligible
		}
	}

	value, err := s.sequence.Next(ctx)
	if err != nil {
		return domain.Certificate{}, err
	}
	number := domain.FormatCertificateNumber(value)

	issueDate := s.clock()
	validUntil := issueDate.AddDate(domain.ValidityYears, 0, 0)
	name := fmt.Sprintf("Certificate of Completion for %s", location.Name)

	artifactURL, err := s.renderer.Render(ctx, domain.CertificateFields{
		Name:         name,
		LocationName: location.Name,
		Email:        user.Email,
		Number:       number,
		IssuedBy:     s.issuedBy,
		IssueDate:    issueDate,
		ValidUntil:   validUntil,
	})
	if err != nil {
		return domain.Certificate{}, fmt.Errorf("%w: %v", domain.ErrCertificateRenderFailed, err)
	}

	cert := domain.Certificate{
		ID:          uuid.NewString(),
		UserID:      userID,
		LocationID:  location.ID,
		Number:      number,
		Email:       user.Email,
		Name:        name,
		IssuedBy:    s.issuedBy,
		Status:      domain.CertificateActive,
		IssueDate:   issueDate,
		ValidUntil:  validUntil,
		ArtifactURL: artifactURL,
	}

	persisted, created, err := s.certs.Create(ctx, cert)
	if err != nil {
		return domain.Certificate{}, err
	}
	if !created {
		// Lost the insert race; the first writer's certificate wins.
		s.log.Info("certificate race lost, returning existing", "userId", userID, "locationId", location.ID, "number", persisted.Number)
		return persisted, nil
	}
	s.log.Info("certificate issued", "userId", userID, "locationId", location.ID, "number", persisted.Number)
	return persisted, nil
}

// List returns a user's certificates, refreshing expired statuses in memory
// on the way out.
func (s *CertificateService) List(ctx context.Context, userID string) ([]domain.Certificate, error) {
	if userID == "" {
		return nil, domain.NewValidationError("userId is required")
	}
	certs, err := s.certs.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	for i := range certs {
		if certs[i].Status == domain.CertificateActive && now.After(certs[i].ValidUntil) {
			certs[i].Status = domain.CertificateExpired
		}
	}
	return certs, nil
}

// RefreshStatus persists the Active -> Expired transition for every
// certificate of a user whose validity window has closed. The external
// expiry sweep invokes this.
func (s *CertificateService) RefreshStatus(ctx context.Context, userID string) (int, error) {
	certs, err := s.certs.ByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := s.clock()
	expired := 0
	for _, cert := range certs {
		if cert.Status == domain.CertificateActive && now.After(cert.ValidUntil) {
			if err := s.certs.UpdateStatus(ctx, cert.ID, domain.CertificateExpired); err != nil {
				return expired, err
			}
			expired++
		}
	}
	return expired, nil
}
