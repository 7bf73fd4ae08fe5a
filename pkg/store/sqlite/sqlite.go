// Package sqlite provides the pure-Go SQLite store backend, the default
// for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/store"
	"github.com/stratovia/cpi/pkg/store/sqlbase"
)

const defaultListLimit = 100

// timeLayout is RFC 3339 with a fixed-width fraction so the TEXT columns
// sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements the store contract on a local SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (or creates) the database file and runs migrations.
func NewStore(ctx context.Context, logger *slog.Logger, path string) (*Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// WAL lets the API read while the runner writes.
	_, err = database.ExecContext(ctx, "PRAGMA journal_mode=WAL")
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	_, err = database.ExecContext(ctx, "PRAGMA busy_timeout=5000")
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// SaveInvocation inserts or updates an invocation audit record.
func (s *Store) SaveInvocation(ctx context.Context, record *models.InvocationRecord) error {
	args, err := marshalJSON(record.Args)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation args: %w", err)
	}

	output, err := marshalJSON(record.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation output: %w", err)
	}

	query := `
		INSERT INTO invocations (
			id, provider, action, args, output, error, status, started_at, finished_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			output = excluded.output,
			error = excluded.error,
			status = excluded.status,
			finished_at = excluded.finished_at,
			duration_ms = excluded.duration_ms
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.Provider,
		record.Action,
		args,
		output,
		nullString(record.Error),
		string(record.Status),
		record.StartedAt.UTC().Format(timeLayout),
		record.FinishedAt.UTC().Format(timeLayout),
		record.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to save invocation: %w", err)
	}

	return nil
}

// InvocationByID returns one invocation record.
func (s *Store) InvocationByID(ctx context.Context, id string) (*models.InvocationRecord, error) {
	query := `
		SELECT
			id
		  , provider
		  , action
		  , args
		  , output
		  , error
		  , status
		  , started_at
		  , finished_at
		  , duration_ms
		FROM invocations
		WHERE id = ?
	`

	record, err := scanInvocation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrInvocationNotFound, id)
		}

		return nil, fmt.Errorf("failed to scan invocation: %w", err)
	}

	return record, nil
}

// Invocations lists invocation records, newest first.
func (s *Store) Invocations(ctx context.Context, filter store.Filter) ([]*models.InvocationRecord, error) {
	query := `
		SELECT
			id
		  , provider
		  , action
		  , args
		  , output
		  , error
		  , status
		  , started_at
		  , finished_at
		  , duration_ms
		FROM invocations
	`

	var (
		conditions []string
		params     []any
	)

	if filter.Provider != "" {
		conditions = append(conditions, "provider = ?")
		params = append(params, filter.Provider)
	}

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		params = append(params, filter.Action)
	}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		params = append(params, string(filter.Status))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invocations: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.InvocationRecord, 0)

	for rows.Next() {
		record, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invocation: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating invocations: %w", err)
	}

	return records, nil
}

// SaveProviderHealth appends a health observation.
func (s *Store) SaveProviderHealth(ctx context.Context, health *models.ProviderHealth) error {
	detail, err := marshalJSON(health.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal health detail: %w", err)
	}

	query := `
		INSERT INTO provider_health (provider, healthy, detail, error, checked_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		health.Provider,
		health.Healthy,
		detail,
		nullString(health.Error),
		health.CheckedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save provider health: %w", err)
	}

	return nil
}

// LatestProviderHealth returns the most recent health observation for a
// provider.
func (s *Store) LatestProviderHealth(ctx context.Context, provider string) (*models.ProviderHealth, error) {
	query := `
		SELECT
			provider
		  , healthy
		  , detail
		  , error
		  , checked_at
		FROM provider_health
		WHERE provider = ?
		ORDER BY checked_at DESC
		LIMIT 1
	`

	var (
		health    models.ProviderHealth
		detail    sql.NullString
		errMsg    sql.NullString
		checkedAt string
	)

	err := s.db.QueryRowContext(ctx, query, provider).Scan(
		&health.Provider,
		&health.Healthy,
		&detail,
		&errMsg,
		&checkedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrHealthNotFound, provider)
		}

		return nil, fmt.Errorf("failed to scan provider health: %w", err)
	}

	health.Error = errMsg.String

	health.CheckedAt, err = time.Parse(time.RFC3339Nano, checkedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse checked_at: %w", err)
	}

	err = unmarshalJSON(detail, &health.Detail)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal health detail: %w", err)
	}

	return &health, nil
}

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE invocations (
				id TEXT PRIMARY KEY,
				provider TEXT NOT NULL,
				action TEXT NOT NULL,
				args TEXT,
				output TEXT,
				error TEXT,
				status TEXT NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				duration_ms INTEGER NOT NULL
			);

			CREATE INDEX idx_invocations_provider ON invocations(provider);
			CREATE INDEX idx_invocations_status ON invocations(status);
			CREATE INDEX idx_invocations_started_at ON invocations(started_at);

			CREATE TABLE provider_health (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				provider TEXT NOT NULL,
				healthy INTEGER NOT NULL,
				detail TEXT,
				error TEXT,
				checked_at TEXT NOT NULL
			);

			CREATE INDEX idx_provider_health_provider ON provider_health(provider, checked_at);
		`,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row scanner) (*models.InvocationRecord, error) {
	var (
		record     models.InvocationRecord
		args       sql.NullString
		output     sql.NullString
		errMsg     sql.NullString
		startedAt  string
		finishedAt string
	)

	err := row.Scan(
		&record.ID,
		&record.Provider,
		&record.Action,
		&args,
		&output,
		&errMsg,
		&record.Status,
		&startedAt,
		&finishedAt,
		&record.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	record.Error = errMsg.String

	record.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}

	record.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finished_at: %w", err)
	}

	if args.Valid {
		err = json.Unmarshal([]byte(args.String), &record.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal invocation args: %w", err)
		}
	}

	err = unmarshalJSON(output, &record.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal invocation output: %w", err)
	}

	return &record, nil
}

func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}

	// Typed nils (an empty args map, say) marshal to "null"; store those
	// as SQL NULL like the untyped case.
	if string(data) == "null" {
		return sql.NullString{}, nil
	}

	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalJSON(column sql.NullString, target *any) error {
	if !column.Valid {
		return nil
	}

	return json.Unmarshal([]byte(column.String), target)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
