// Package sqlite implements the record store on SQLite via modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/corpusd/corpusd/internal/domain"
	"github.com/corpusd/corpusd/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS paragraphs (
	reference TEXT PRIMARY KEY,
	text      TEXT NOT NULL,
	embedding BLOB NOT NULL
);`

// Compile-time check: Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store persists paragraph records in a single SQLite table.
type Store struct {
	conn   *sql.DB
	logger *zap.Logger
}

// Open opens or creates the database at path and ensures the schema exists.
// Use ":memory:" for an ephemeral store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{conn: conn, logger: logger}, nil
}

// Insert stores a record, replacing any existing row with the same reference.
func (s *Store) Insert(ctx context.Context, rec domain.Record) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO paragraphs (reference, text, embedding)
		VALUES (?, ?, ?)
		ON CONFLICT(reference) DO UPDATE SET
			text = excluded.text,
			embedding = excluded.embedding
	`, rec.Reference, rec.Text, store.EncodeVector(rec.Embedding))
	if err != nil {
		return fmt.Errorf("insert paragraph %q: %v: %w", rec.Reference, err, domain.ErrStoreWrite)
	}
	return nil
}

// List returns every stored record in table row order. Rows whose embedding
// blob fails to decode are logged and skipped; siblings still load.
func (s *Store) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT reference, text, embedding FROM paragraphs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("select paragraphs: %v: %w", err, domain.ErrStoreRead)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.Record
	for rows.Next() {
		var (
			rec  domain.Record
			blob []byte
		)
		if err := rows.Scan(&rec.Reference, &rec.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan paragraph row: %v: %w", err, domain.ErrStoreRead)
		}
		rec.Embedding, err = store.DecodeVector(blob)
		if err != nil {
			s.logger.Warn("skipping malformed paragraph row",
				zap.String("reference", rec.Reference), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paragraph rows: %v: %w", err, domain.ErrStoreRead)
	}
	return records, nil
}

// Delete removes the row for reference. Returns true if a row was removed.
func (s *Store) Delete(ctx context.Context, reference string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM paragraphs WHERE reference = ?`, reference)
	if err != nil {
		return false, fmt.Errorf("delete paragraph %q: %v: %w", reference, err, domain.ErrStoreWrite)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %v: %w", err, domain.ErrStoreWrite)
	}
	return n > 0, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}
