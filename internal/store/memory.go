package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/serroba/qr-safe/internal/trust"
)

// MemoryRegistry is an in-memory implementation of trust.Registry.
type MemoryRegistry struct {
	mu        sync.RWMutex
	partners  map[trust.NormalizedURL]trust.VerifiedPartner
	malicious map[trust.NormalizedURL]trust.MaliciousURL
}

// NewMemoryRegistry creates a registry from seed records. It rejects
// duplicate keys and keys present in both tables.
func NewMemoryRegistry(partners []trust.VerifiedPartner, malicious []trust.MaliciousURL) (*MemoryRegistry, error) {
	m := &MemoryRegistry{
		partners:  make(map[trust.NormalizedURL]trust.VerifiedPartner, len(partners)),
		malicious: make(map[trust.NormalizedURL]trust.MaliciousURL, len(malicious)),
	}

	for _, p := range partners {
		if err := m.AddPartner(p); err != nil {
			return nil, err
		}
	}

	for _, r := range malicious {
		if err := m.AddMalicious(r); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// AddPartner stores a verified partner record.
func (m *MemoryRegistry) AddPartner(p trust.VerifiedPartner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.partners[p.NormalizedURL]; ok {
		return fmt.Errorf("%w: duplicate partner %s", ErrDuplicateKey, p.NormalizedURL)
	}

	if _, ok := m.malicious[p.NormalizedURL]; ok {
		return fmt.Errorf("%w: %s", trust.ErrRegistryConflict, p.NormalizedURL)
	}

	m.partners[p.NormalizedURL] = p

	return nil
}

// AddMalicious stores a malicious URL record.
func (m *MemoryRegistry) AddMalicious(r trust.MaliciousURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.malicious[r.NormalizedURL]; ok {
		return fmt.Errorf("%w: duplicate malicious url %s", ErrDuplicateKey, r.NormalizedURL)
	}

	if _, ok := m.partners[r.NormalizedURL]; ok {
		return fmt.Errorf("%w: %s", trust.ErrRegistryConflict, r.NormalizedURL)
	}

	m.malicious[r.NormalizedURL] = r

	return nil
}

// SavePartner adds a partner unless its key already exists. It reports whether
// the record was written.
func (m *MemoryRegistry) SavePartner(_ context.Context, p trust.VerifiedPartner) (bool, error) {
	return inserted(m.AddPartner(p))
}

// SaveMalicious adds a malicious URL unless its key already exists. It reports
// whether the record was written.
func (m *MemoryRegistry) SaveMalicious(_ context.Context, r trust.MaliciousURL) (bool, error) {
	return inserted(m.AddMalicious(r))
}

func inserted(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrDuplicateKey):
		return false, nil
	default:
		return false, err
	}
}

func (m *MemoryRegistry) FindPartner(_ context.Context, key trust.NormalizedURL) (*trust.VerifiedPartner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.partners[key]
	if !ok {
		return nil, trust.ErrNotFound
	}

	return &p, nil
}

func (m *MemoryRegistry) FindMalicious(_ context.Context, key trust.NormalizedURL) (*trust.MaliciousURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.malicious[key]
	if !ok {
		return nil, trust.ErrNotFound
	}

	return &r, nil
}

// Conflicts returns keys present in both tables. It is always empty for a
// registry built through NewMemoryRegistry.
func (m *MemoryRegistry) Conflicts(_ context.Context) ([]trust.NormalizedURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []trust.NormalizedURL

	for key := range m.partners {
		if _, ok := m.malicious[key]; ok {
			out = append(out, key)
		}
	}

	return out, nil
}

// Ping always succeeds.
func (m *MemoryRegistry) Ping(_ context.Context) error {
	return nil
}

var _ trust.Registry = (*MemoryRegistry)(nil)
