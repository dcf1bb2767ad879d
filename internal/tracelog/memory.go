package tracelog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/upb/llm-gateway/internal/domain"
)

// MemoryStore is an in-process Store used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	rows   []domain.ProviderLog
	nextID int64
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) RecordProviderLog(ctx context.Context, providerID string, requestBody, responseBody any, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.rows = append(s.rows, domain.ProviderLog{
		ID:           s.nextID,
		ProviderID:   providerID,
		CreatedAt:    time.Now().UTC(),
		RequestID:    requestID,
		RequestBody:  requestBody,
		ResponseBody: responseBody,
	})

	cutoff := StartOfTodayUTC(time.Now())
	kept := s.rows[:0]
	for _, row := range s.rows {
		if !row.CreatedAt.Before(cutoff) {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

// Prune removes rows older than start-of-today.
func (s *MemoryStore) Prune(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := StartOfTodayUTC(time.Now())
	kept := s.rows[:0]
	for _, row := range s.rows {
		if !row.CreatedAt.Before(cutoff) {
			kept = append(kept, row)
		}
	}
	s.rows = kept
	return nil
}

func (s *MemoryStore) ListProviderLogs(ctx context.Context, providerID string, limit int) ([]domain.ProviderLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ProviderLog
	for _, row := range s.rows {
		if row.ProviderID == providerID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
