package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/upb/llm-gateway/internal/domain"
)

// MemoryStore is an in-process Store used by tests and by the selector's
// own unit tests to assert on emitted events without a database.
type MemoryStore struct {
	mu            sync.Mutex
	rows          []domain.OrchestratorEvent
	nextID        int64
	enabled       bool
	retentionDays int
}

// NewMemoryStore builds a MemoryStore. enabled mirrors EVENTS_ENABLED;
// retentionDays mirrors RETENTION_DAYS.
func NewMemoryStore(enabled bool, retentionDays int) *MemoryStore {
	return &MemoryStore{enabled: enabled, retentionDays: retentionDays}
}

func (s *MemoryStore) RecordEvent(ctx context.Context, params RecordParams) error {
	if !s.enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.rows = append(s.rows, domain.OrchestratorEvent{
		ID:           s.nextID,
		Timestamp:    time.Now().UTC(),
		Level:        params.Level,
		Kind:         params.Kind,
		RequestID:    params.RequestID,
		ProviderFrom: params.ProviderFrom,
		ProviderTo:   params.ProviderTo,
		Model:        params.Model,
		ErrorCode:    params.ErrorCode,
		Message:      params.Message,
		Meta:         params.Meta,
	})
	s.prune()
	return nil
}

func (s *MemoryStore) ListRecentEvents(ctx context.Context, limit int) ([]domain.OrchestratorEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	out := make([]domain.OrchestratorEvent, len(s.rows))
	copy(out, s.rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	limit = ClampLimit(limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune removes rows older than the retention cutoff.
func (s *MemoryStore) Prune(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	return nil
}

// prune must be called with mu held.
func (s *MemoryStore) prune() {
	cutoff := RetentionCutoff(time.Now(), s.retentionDays)
	kept := s.rows[:0]
	for _, ev := range s.rows {
		if !ev.Timestamp.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	s.rows = kept
}
