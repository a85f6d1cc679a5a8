package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
)

// DefaultDimensions is the embedding width used when the config does
// not name one (matches text-embedding-3-small).
const DefaultDimensions = 1536

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Config holds the connection settings for the postgres store.
type Config struct {
	// DSN is the postgres connection string.
	DSN string

	// Dimensions is the vector width of the documents.embedding column.
	// Must match the embedding model in use.
	Dimensions int
}

// Store is a pgvector-backed storage that backs both the index store
// and the pipeline state store through wrapper types sharing one
// connection pool. The schema mirrors the production RAG layout:
// documents holds chunk rows with a vector embedding and JSONB
// metadata carrying the file_id, document_metadata is the per-file
// record, document_rows holds tabular data keyed by dataset_id.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to postgres, ensures the schema exists and returns
// the store. The vector extension is created if missing, so the
// configured role needs CREATE privileges on first run.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", domain.ErrInvalidInput)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}

	// Bootstrap the schema on a plain connection first: the pool's
	// AfterConnect registers the vector type, which only exists after
	// CREATE EXTENSION has run.
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := ensureSchema(ctx, conn, cfg.Dimensions); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	if err := conn.Close(ctx); err != nil {
		return nil, fmt.Errorf("closing bootstrap connection: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// IndexStore returns an IndexStore interface backed by this store.
func (s *Store) IndexStore() driven.IndexStore {
	return &indexStore{store: s}
}

// StateStore returns a StateStore interface backed by this store.
func (s *Store) StateStore() driven.StateStore {
	return &stateStore{store: s}
}

// ensureSchema creates the extension and tables when absent. The
// embedding column width is fixed at creation time; changing the
// embedding model against an existing database requires a manual
// migration.
func ensureSchema(ctx context.Context, conn *pgx.Conn, dimensions int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS document_metadata (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			url         TEXT NOT NULL DEFAULT '',
			mime_type   TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL DEFAULT '',
			schema      TEXT,
			modified_at TIMESTAMPTZ,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS documents (
			id        BIGSERIAL PRIMARY KEY,
			content   TEXT NOT NULL,
			metadata  JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding VECTOR(%d)
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_documents_file_id ON documents ((metadata->>'file_id'))`,
		`CREATE TABLE IF NOT EXISTS document_rows (
			id         BIGSERIAL PRIMARY KEY,
			dataset_id TEXT NOT NULL REFERENCES document_metadata(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			row_data   JSONB NOT NULL DEFAULT '{}'::jsonb
		)`,
		`CREATE INDEX IF NOT EXISTS idx_document_rows_dataset_id ON document_rows (dataset_id)`,
		`CREATE TABLE IF NOT EXISTS rag_pipeline_state (
			pipeline_id     TEXT PRIMARY KEY,
			pipeline_type   TEXT NOT NULL DEFAULT '',
			known_files     JSONB NOT NULL DEFAULT '{}'::jsonb,
			last_check_time TIMESTAMPTZ,
			last_run        TIMESTAMPTZ,
			server_status   TEXT NOT NULL DEFAULT 'offline',
			status_details  JSONB,
			last_heartbeat  TIMESTAMPTZ,
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// ==================== Helper Functions ====================

// schemaToJSON marshals a tabular schema for storage, or returns nil
// for non-tabular files so the column stays NULL.
func schemaToJSON(schema []string) (interface{}, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshalling schema: %w", err)
	}
	return string(b), nil
}

// nullableTime returns nil for a zero time so the column stays NULL.
func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// timeOrZero dereferences a nullable scan target.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
