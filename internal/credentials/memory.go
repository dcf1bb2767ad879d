package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/upb/llm-gateway/internal/domain"
)

// MemoryStore is an in-process Store, used by tests and by components that
// only need the Store contract without a database.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]domain.ProviderCredential
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]domain.ProviderCredential)}
}

func (s *MemoryStore) Upsert(ctx context.Context, providerID, apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[providerID] = domain.ProviderCredential{
		ProviderID: providerID,
		APIKey:     apiKey,
		UpdatedAt:  time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, providerID string) (domain.ProviderCredential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.rows[providerID]
	return cred, ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.ProviderCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProviderCredential, 0, len(s.rows))
	for _, cred := range s.rows {
		out = append(out, cred)
	}
	return out, nil
}

func (s *MemoryStore) RecordError(ctx context.Context, providerID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred := s.rows[providerID]
	cred.ProviderID = providerID
	cred.LastError = &message
	now := time.Now().UTC()
	cred.LastErrorAt = &now
	cred.UpdatedAt = now
	s.rows[providerID] = cred
	return nil
}

func (s *MemoryStore) ClearError(ctx context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.rows[providerID]
	if !ok {
		return nil
	}
	cred.LastError = nil
	cred.LastErrorAt = nil
	cred.UpdatedAt = time.Now().UTC()
	s.rows[providerID] = cred
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, providerID)
	return nil
}
