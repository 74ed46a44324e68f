// Package pg is a docstore.Store over a single PostgreSQL JSONB table.
//
// Every document is one row of the documents table keyed by (collection, id).
// Equality filters become a JSONB containment test, orderings become
// ORDER BY on the extracted JSONB value, and the BIGSERIAL seq column keeps
// ties in insertion order.
package pg

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/catalyst-codex/codex/shared/config"
	"github.com/catalyst-codex/codex/shared/docstore"
	internal_errors "github.com/catalyst-codex/codex/shared/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed migrations/init.sql
var schema string

// ConnectionConfig holds database connection pool settings.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns sensible defaults for connection pooling.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

type Storage struct {
	db *sql.DB
}

// Connect establishes and verifies a connection to the PostgreSQL database.
func Connect(cfg config.Pg, connCfg ConnectionConfig) (*sql.DB, error) {
	connStr := cfg.URL
	if connStr == "" {
		connStr = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Dbname)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(connCfg.MaxOpenConns)
	db.SetMaxIdleConns(connCfg.MaxIdleConns)
	db.SetConnMaxLifetime(connCfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(connCfg.ConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// New connects and makes sure the documents table exists.
func New(cfg config.Pg) (*Storage, error) {
	db, err := Connect(cfg, DefaultConnectionConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, internal_errors.NotFound("Document not found")
		}
		return docstore.Document{}, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return docstore.Document{ID: id, Data: data}, nil
}

func (s *Storage) Add(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Storage) Set(ctx context.Context, collection, id string, data any) error {
	if !docstore.ValidCollection(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}
	raw, err := encodeObject(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO documents (collection, id, data)
        VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (collection, id)
        DO UPDATE SET data = EXCLUDED.data, updated_at = now()
    `, collection, id, raw)
	if err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := encodeObject(fields)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
        UPDATE documents
        SET data = data || $3::jsonb, updated_at = now()
        WHERE collection = $1 AND id = $2
    `, collection, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return internal_errors.NotFound("Document not found")
	}
	return nil
}

func (s *Storage) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	query, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var doc docstore.Document
		var data []byte
		if err := rows.Scan(&doc.ID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Data = data
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return docs, nil
}

// buildQuery renders q as SQL. Field names are validated and quoted as
// literals before interpolation, values always travel as parameters.
func buildQuery(q docstore.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	args := []any{q.Collection}
	sb.WriteString("SELECT id, data FROM documents WHERE collection = $1")

	if len(q.Filters) > 0 {
		containment := make(map[string]any, len(q.Filters))
		for _, f := range q.Filters {
			containment[f.Field] = f.Value
		}
		raw, err := json.Marshal(containment)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		args = append(args, string(raw))
		fmt.Fprintf(&sb, " AND data @> $%d::jsonb", len(args))
	}

	sb.WriteString(" ORDER BY ")
	for _, o := range q.Orders {
		dir := "ASC NULLS FIRST"
		if o.Direction == docstore.Desc {
			dir = "DESC NULLS LAST"
		}
		fmt.Fprintf(&sb, "data -> %s %s, ", pq.QuoteLiteral(o.Field), dir)
	}
	sb.WriteString("seq ASC")

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args, nil
}

func encodeObject(data any) (string, error) {
	obj, err := docstore.NormalizeObject(data)
	if err != nil {
		return "", err
	}
	delete(obj, "id")
	raw, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(raw), nil
}
