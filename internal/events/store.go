// Package events implements the durable orchestrator event log: every
// provider failure, failover and terminal failure the selector sees, and
// the admin credential and health-check outcomes, are recorded here,
// subject to a rolling retention window. A successful completion records
// no event.
package events

import (
	"context"
	"time"

	"github.com/upb/llm-gateway/internal/domain"
)

// RecordParams is the set of fields record_event accepts; everything but
// Kind and Level is optional.
type RecordParams struct {
	Kind         string
	Level        domain.EventLevel
	Message      string
	RequestID    string
	ProviderFrom string
	ProviderTo   string
	Model        string
	ErrorCode    string
	Meta         map[string]any
}

// Store is the event repository contract. Writes are best-effort: the
// store logs a persistence failure itself and RecordEvent returns nil,
// so the failure never reaches the caller.
type Store interface {
	// RecordEvent persists one event and prunes rows older than the
	// retention cutoff in the same transaction. No-ops silently when
	// events are disabled by configuration.
	RecordEvent(ctx context.Context, params RecordParams) error

	// ListRecentEvents prunes by retention, then returns up to limit
	// rows with ts >= cutoff, newest first.
	ListRecentEvents(ctx context.Context, limit int) ([]domain.OrchestratorEvent, error)

	// Prune removes rows older than the retention cutoff without
	// returning anything. Used by the retention scheduler so a quiet
	// store (no writes, no lists) still gets swept.
	Prune(ctx context.Context) error
}

// MaxListLimit is the caller-clamped ceiling on ListRecentEvents' limit.
const MaxListLimit = 100

// DefaultRetentionDays keeps today plus yesterday.
const DefaultRetentionDays = 2

// RetentionCutoff computes the earliest ts that must remain in the store:
// start_of_today_UTC - (retentionDays-1) days.
func RetentionCutoff(now time.Time, retentionDays int) time.Time {
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return startOfToday.AddDate(0, 0, -(retentionDays - 1))
}

// ClampLimit applies the caller-clamped ceiling, defaulting non-positive
// values to MaxListLimit.
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
