package tracelog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-gateway/internal/domain"
	"github.com/upb/llm-gateway/internal/storage"
)

// PostgresStore is the Postgres realization of Store.
type PostgresStore struct {
	db     *storage.DB
	logger *zap.Logger
}

// NewPostgresStore builds a PostgresStore.
func NewPostgresStore(db *storage.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// StartOfTodayUTC truncates now to midnight UTC.
func StartOfTodayUTC(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *PostgresStore) RecordProviderLog(ctx context.Context, providerID string, requestBody, responseBody any, requestID string) error {
	reqJSON := encodeBody(requestBody)
	respJSON := encodeBody(responseBody)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Warn("failed to begin provider log transaction", zap.Error(err))
		return nil
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO provider_logs (provider_id, created_at, request_id, request_body, response_body)
		VALUES ($1, now(), $2, $3, $4)
	`, providerID, nullIfEmpty(requestID), reqJSON, respJSON)
	if err != nil {
		s.logger.Warn("failed to insert provider log", zap.Error(err))
		return nil
	}

	cutoff := StartOfTodayUTC(time.Now())
	if _, err := tx.ExecContext(ctx, `DELETE FROM provider_logs WHERE created_at < $1`, cutoff); err != nil {
		s.logger.Warn("failed to prune provider logs", zap.Error(err))
		return nil
	}

	if err := tx.Commit(); err != nil {
		s.logger.Warn("failed to commit provider log", zap.Error(err))
	}
	return nil
}

func (s *PostgresStore) ListProviderLogs(ctx context.Context, providerID string, limit int) ([]domain.ProviderLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	cutoff := StartOfTodayUTC(time.Now())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider_id, created_at, request_id, request_body, response_body
		FROM provider_logs
		WHERE provider_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, providerID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list provider logs for %s: %w", providerID, err)
	}
	defer rows.Close()

	var out []domain.ProviderLog
	for rows.Next() {
		var (
			pl                  domain.ProviderLog
			requestID           *string
			reqJSON, respJSON   []byte
		)
		if err := rows.Scan(&pl.ID, &pl.ProviderID, &pl.CreatedAt, &requestID, &reqJSON, &respJSON); err != nil {
			return nil, fmt.Errorf("scan provider log: %w", err)
		}
		if requestID != nil {
			pl.RequestID = *requestID
		}
		pl.RequestBody = decodeBody(reqJSON)
		pl.ResponseBody = decodeBody(respJSON)
		out = append(out, pl)
	}
	return out, rows.Err()
}

// Prune removes rows older than start-of-today.
func (s *PostgresStore) Prune(ctx context.Context) error {
	cutoff := StartOfTodayUTC(time.Now())
	if _, err := s.db.ExecContext(ctx, `DELETE FROM provider_logs WHERE created_at < $1`, cutoff); err != nil {
		return fmt.Errorf("prune provider logs: %w", err)
	}
	return nil
}

// encodeBody JSON-encodes body, falling back to fmt.Sprint then "null" per
// the record_provider_log fallback chain.
func encodeBody(body any) []byte {
	if body == nil {
		return []byte("null")
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		encoded, err = json.Marshal(fmt.Sprint(body))
		if err != nil {
			return []byte("null")
		}
	}
	return encoded
}

func decodeBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
