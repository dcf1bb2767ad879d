package tracelog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-gateway/internal/domain"
)

func TestStartOfTodayUTC(t *testing.T) {
	now := time.Date(2026, 8, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), StartOfTodayUTC(now))
}

func TestMemoryStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.RecordProviderLog(ctx, "cerebras", map[string]any{"model": "llama3.1-8b"}, map[string]any{"ok": true}, "req-1"))
	require.NoError(t, s.RecordProviderLog(ctx, "cohere", map[string]any{"model": "command-r"}, nil, "req-2"))

	rows, err := s.ListProviderLogs(ctx, "cerebras", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "req-1", rows[0].RequestID)
}

func TestMemoryStore_PrunesBeforeToday(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.rows = append(s.rows, domain.ProviderLog{ID: 1, ProviderID: "cerebras", CreatedAt: time.Now().UTC().AddDate(0, 0, -1)})

	require.NoError(t, s.RecordProviderLog(ctx, "cerebras", nil, nil, ""))

	rows, err := s.ListProviderLogs(ctx, "cerebras", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
