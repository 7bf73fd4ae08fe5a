// Package postgresql provides the PostgreSQL store backend for multi-node
// deployments.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/lib/pq"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/store"
	"github.com/stratovia/cpi/pkg/store/sqlbase"
)

const defaultListLimit = 100

// Store implements the store contract on PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore connects to the database and runs migrations.
func NewStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*Store, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			output = EXCLUDED.output,
			error = EXCLUDED.error,
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			duration_ms = EXCLUDED.duration_ms
	`

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.Provider,
		record.Action,
		args,
		output,
		nullString(record.Error),
		string(record.Status),
		record.StartedAt.UTC(),
		record.FinishedAt.UTC(),
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
		WHERE id = $1
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
		params = append(params, filter.Provider)
		conditions = append(conditions, fmt.Sprintf("provider = $%d", len(params)))
	}

	if filter.Action != "" {
		params = append(params, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(params)))
	}

	if filter.Status != "" {
		params = append(params, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(params)))
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
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.ExecContext(ctx, query,
		health.Provider,
		health.Healthy,
		detail,
		nullString(health.Error),
		health.CheckedAt.UTC(),
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
		WHERE provider = $1
		ORDER BY checked_at DESC
		LIMIT 1
	`

	var (
		health models.ProviderHealth
		detail sql.NullString
		errMsg sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, provider).Scan(
		&health.Provider,
		&health.Healthy,
		&detail,
		&errMsg,
		&health.CheckedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrHealthNotFound, provider)
		}

		return nil, fmt.Errorf("failed to scan provider health: %w", err)
	}

	health.Error = errMsg.String

	err = unmarshalJSON(detail, &health.Detail)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal health detail: %w", err)
	}

	return &health, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row scanner) (*models.InvocationRecord, error) {
	var (
		record models.InvocationRecord
		args   sql.NullString
		output sql.NullString
		errMsg sql.NullString
	)

	err := row.Scan(
		&record.ID,
		&record.Provider,
		&record.Action,
		&args,
		&output,
		&errMsg,
		&record.Status,
		&record.StartedAt,
		&record.FinishedAt,
		&record.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	record.Error = errMsg.String

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
