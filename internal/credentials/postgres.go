package credentials

import (
	"context"
	"database/sql"
	"fmt"

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

func (s *PostgresStore) Upsert(ctx context.Context, providerID, apiKey string) error {
	return s.withLockedRow(ctx, providerID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO provider_credentials (provider_id, api_key, last_error, last_error_at, updated_at)
			VALUES ($1, $2, NULL, NULL, now())
			ON CONFLICT (provider_id) DO UPDATE
			SET api_key = EXCLUDED.api_key, last_error = NULL, last_error_at = NULL, updated_at = now()
		`, providerID, apiKey)
		return err
	})
}

func (s *PostgresStore) Get(ctx context.Context, providerID string) (domain.ProviderCredential, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT provider_id, api_key, last_error, last_error_at, updated_at
		FROM provider_credentials WHERE provider_id = $1
	`, providerID)

	cred, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return domain.ProviderCredential{}, false, nil
	}
	if err != nil {
		return domain.ProviderCredential{}, false, fmt.Errorf("get credential for %s: %w", providerID, err)
	}
	return cred, true, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]domain.ProviderCredential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider_id, api_key, last_error, last_error_at, updated_at
		FROM provider_credentials ORDER BY provider_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []domain.ProviderCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential row: %w", err)
		}
		out = append(out, cred)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecordError(ctx context.Context, providerID, message string) error {
	return s.withLockedRow(ctx, providerID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO provider_credentials (provider_id, api_key, last_error, last_error_at, updated_at)
			VALUES ($1, '', $2, now(), now())
			ON CONFLICT (provider_id) DO UPDATE
			SET last_error = EXCLUDED.last_error, last_error_at = now(), updated_at = now()
		`, providerID, message)
		return err
	})
}

func (s *PostgresStore) ClearError(ctx context.Context, providerID string) error {
	return s.withLockedRow(ctx, providerID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE provider_credentials
			SET last_error = NULL, last_error_at = NULL, updated_at = now()
			WHERE provider_id = $1
		`, providerID)
		return err
	})
}

func (s *PostgresStore) Delete(ctx context.Context, providerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM provider_credentials WHERE provider_id = $1`, providerID)
	if err != nil {
		return fmt.Errorf("delete credential for %s: %w", providerID, err)
	}
	return nil
}

// withLockedRow runs fn inside a transaction that holds a FOR UPDATE lock
// on the provider's credential row (or its absence), serializing
// concurrent writers per provider ID.
func (s *PostgresStore) withLockedRow(ctx context.Context, providerID string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var discard string
	err = tx.QueryRowContext(ctx,
		`SELECT provider_id FROM provider_credentials WHERE provider_id = $1 FOR UPDATE`,
		providerID,
	).Scan(&discard)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("lock credential row for %s: %w", providerID, err)
	}

	if err := fn(tx); err != nil {
		return fmt.Errorf("credential write for %s: %w", providerID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credential write for %s: %w", providerID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (domain.ProviderCredential, error) {
	var cred domain.ProviderCredential
	var lastError sql.NullString
	var lastErrorAt sql.NullTime
	err := row.Scan(&cred.ProviderID, &cred.APIKey, &lastError, &lastErrorAt, &cred.UpdatedAt)
	if err != nil {
		return domain.ProviderCredential{}, err
	}
	if lastError.Valid {
		cred.LastError = &lastError.String
	}
	if lastErrorAt.Valid {
		t := lastErrorAt.Time
		cred.LastErrorAt = &t
	}
	return cred, nil
}
