package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/voidhawk42/reagent-cli/api/schemas"
)

// jsonCodec serializes the JSONB payloads. json.RawMessage stays as the
// column type because pgx handles it natively.
var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists completed interactions to PostgreSQL. Persistence is
// best-effort: the agent pipeline does not depend on it, and a missing
// database URL disables the store entirely.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

const sqlCreateInteractions = `
    CREATE TABLE IF NOT EXISTS interactions (
        id          TEXT PRIMARY KEY,
        created_at  TIMESTAMPTZ NOT NULL,
        query       TEXT NOT NULL,
        status      TEXT NOT NULL,
        response    TEXT,
        error_type  TEXT,
        plan        JSONB NOT NULL DEFAULT '{}',
        record      JSONB NOT NULL DEFAULT '{}'
    );
`

// New creates a store instance, verifies the connection and ensures the
// interactions table exists.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, sqlCreateInteractions); err != nil {
		return nil, fmt.Errorf("failed to ensure interactions table: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// SaveInteraction writes one finished interaction and its execution record.
func (s *Store) SaveInteraction(ctx context.Context, interaction *schemas.Interaction, record *schemas.ExecutionRecord) error {
	if interaction == nil || record == nil {
		return fmt.Errorf("interaction and record must be non-nil")
	}

	planJSON := json.RawMessage("{}")
	if interaction.FinalPlan != nil {
		var err error
		planJSON, err = marshalOrEmpty(interaction.FinalPlan)
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
	}
	recordJSON, err := marshalOrEmpty(record)
	if err != nil {
		return fmt.Errorf("failed to marshal execution record: %w", err)
	}

	createdAt := interaction.Timestamp.UTC()
	if interaction.Timestamp.IsZero() {
		createdAt = time.Now().UTC()
	}

	sql := `
        INSERT INTO interactions (id, created_at, query, status, response, error_type, plan, record)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            status = EXCLUDED.status,
            response = EXCLUDED.response,
            error_type = EXCLUDED.error_type,
            plan = EXCLUDED.plan,
            record = EXCLUDED.record;
    `
	_, err = s.pool.Exec(ctx, sql,
		interaction.ID, createdAt, interaction.Query,
		record.Status, record.Response, record.ErrorType,
		planJSON, recordJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	s.log.Debug("Interaction persisted",
		zap.String("interaction_id", interaction.ID),
		zap.String("status", record.Status))
	return nil
}

// StoredInteraction is one persisted row as read back from the database.
type StoredInteraction struct {
	ID        string                   `json:"id"`
	CreatedAt time.Time                `json:"created_at"`
	Query     string                   `json:"query"`
	Status    string                   `json:"status"`
	Response  string                   `json:"response,omitempty"`
	Record    *schemas.ExecutionRecord `json:"record,omitempty"`
}

// RecentInteractions returns the most recent rows, newest first.
func (s *Store) RecentInteractions(ctx context.Context, limit int) ([]StoredInteraction, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
        SELECT id, created_at, query, status, response, record
        FROM interactions
        ORDER BY created_at DESC
        LIMIT $1;
    `
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	var results []StoredInteraction
	for rows.Next() {
		var row StoredInteraction
		var recordJSON []byte

		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.Query, &row.Status, &row.Response, &recordJSON); err != nil {
			return nil, fmt.Errorf("failed to scan interaction row: %w", err)
		}

		if len(recordJSON) > 0 && string(recordJSON) != "{}" {
			var record schemas.ExecutionRecord
			if err := jsonCodec.Unmarshal(recordJSON, &record); err != nil {
				return nil, fmt.Errorf("failed to decode record for interaction %s: %w", row.ID, err)
			}
			row.Record = &record
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return results, nil
}

// marshalOrEmpty serializes v, substituting an empty JSON object for nil so
// the JSONB columns never hold SQL NULL.
func marshalOrEmpty(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("{}"), nil
	}
	data, err := jsonCodec.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return json.RawMessage("{}"), nil
	}
	return data, nil
}
