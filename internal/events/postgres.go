package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-gateway/internal/config"
	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/storage"
)

// PostgresStore is the Postgres realization of Store.
type PostgresStore struct {
	db            *storage.DB
	logger        *zap.Logger
	enabled       bool
	retentionDays int
}

// NewPostgresStore builds a PostgresStore from the events configuration.
func NewPostgresStore(db *storage.DB, logger *zap.Logger, cfg config.EventsConfig) *PostgresStore {
	return &PostgresStore{
		db:            db,
		logger:        logger,
		enabled:       cfg.Enabled,
		retentionDays: cfg.RetentionDays,
	}
}

func (s *PostgresStore) RecordEvent(ctx context.Context, params RecordParams) error {
	if !s.enabled {
		return nil
	}

	metaJSON, err := json.Marshal(params.Meta)
	if err != nil {
		metaJSON = []byte("null")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Warn("failed to begin event transaction", zap.Error(err))
		return nil
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orchestrator_events
			(ts, level, kind, request_id, provider_from, provider_to, model, error_code, message, meta)
		VALUES (now(), $1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, string(params.Level), params.Kind, nullIfEmpty(params.RequestID), nullIfEmpty(params.ProviderFrom),
		nullIfEmpty(params.ProviderTo), nullIfEmpty(params.Model), nullIfEmpty(params.ErrorCode),
		nullIfEmpty(params.Message), metaJSON)
	if err != nil {
		s.logger.Warn("failed to insert orchestrator event", zap.Error(err))
		return nil
	}

	cutoff := RetentionCutoff(time.Now(), s.retentionDays)
	if _, err := tx.ExecContext(ctx, `DELETE FROM orchestrator_events WHERE ts < $1`, cutoff); err != nil {
		s.logger.Warn("failed to prune orchestrator events", zap.Error(err))
		return nil
	}

	if err := tx.Commit(); err != nil {
		s.logger.Warn("failed to commit orchestrator event", zap.Error(err))
	}
	return nil
}

func (s *PostgresStore) ListRecentEvents(ctx context.Context, limit int) ([]domain.OrchestratorEvent, error) {
	cutoff := RetentionCutoff(time.Now(), s.retentionDays)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orchestrator_events WHERE ts < $1`, cutoff); err != nil {
		return nil, fmt.Errorf("prune orchestrator events: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, level, kind, request_id, provider_from, provider_to, model, error_code, message, meta
		FROM orchestrator_events
		WHERE ts >= $1
		ORDER BY ts DESC
		LIMIT $2
	`, cutoff, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list orchestrator events: %w", err)
	}
	defer rows.Close()

	var out []domain.OrchestratorEvent
	for rows.Next() {
		var (
			ev                                                  domain.OrchestratorEvent
			level                                                string
			requestID, providerFrom, providerTo, model, errCode sql.NullString
			message                                              sql.NullString
			metaJSON                                             []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &level, &ev.Kind, &requestID, &providerFrom, &providerTo,
			&model, &errCode, &message, &metaJSON); err != nil {
			return nil, fmt.Errorf("scan orchestrator event: %w", err)
		}
		ev.Level = domain.EventLevel(level)
		ev.RequestID = requestID.String
		ev.ProviderFrom = providerFrom.String
		ev.ProviderTo = providerTo.String
		ev.Model = model.String
		ev.ErrorCode = errCode.String
		ev.Message = message.String
		if len(metaJSON) > 0 {
			var meta map[string]any
			if err := json.Unmarshal(metaJSON, &meta); err == nil {
				ev.Meta = meta
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Prune removes rows older than the retention cutoff.
func (s *PostgresStore) Prune(ctx context.Context) error {
	cutoff := RetentionCutoff(time.Now(), s.retentionDays)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orchestrator_events WHERE ts < $1`, cutoff); err != nil {
		return fmt.Errorf("prune orchestrator events: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
