package memory

import (
	"context"
	"sort"
	"sync"

	"cartie-training-service/internal/domain"
)

// CertificateStore is an in-memory app.CertificateRepository enforcing the
// (user, location) uniqueness constraint under its lock, the way the
// Postgres unique index does.
type CertificateStore struct {
	mu    sync.RWMutex
	certs map[certKey]domain.Certificate
}

type certKey struct {
	userID     string
	locationID string
}

func NewCertificateStore() *CertificateStore {
	return &CertificateStore{certs: make(map[certKey]domain.Certificate)}
}

func (s *CertificateStore) Find(_ context.Context, userID, locationID string) (domain.Certificate, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cert, ok := s.certs[certKey{userID, locationID}]
	return cert, ok, nil
}

func (s *CertificateStore) Create(_ context.Context, cert domain.Certificate) (domain.Certificate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := certKey{cert.UserID, cert.LocationID}
	if existing, ok := s.certs[key]; ok {
		return existing, false, nil
	}
	s.certs[key] = cert
	return cert, true, nil
}

func (s *CertificateStore) ByUser(_ context.Context, userID string) ([]domain.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Certificate
	for key, cert := range s.certs {
		if key.userID == userID {
			out = append(out, cert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *CertificateStore) UpdateStatus(_ context.Context, id string, status domain.CertificateStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cert := range s.certs {
		if cert.ID == id {
			cert.Status = status
			s.certs[key] = cert
			return nil
		}
	}
	return domain.ErrCertificateNotFound
}
