// Package sqlstore implements storage.Driver over database/sql. The sqlite
// and postgres drivers wrap it with their own connection setup; the only
// dialect difference it handles is the bind-parameter syntax.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/relay/pkg/storage"
)

// Dialect selects bind-parameter syntax.
type Dialect int

const (
	// SQLite binds with "?".
	SQLite Dialect = iota

	// Postgres binds with "$1", "$2", ...
	Postgres
)

const schema = `
CREATE TABLE IF NOT EXISTS relay_sessions (
	id              TEXT PRIMARY KEY,
	visitor_id      TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	code            TEXT NOT NULL,
	state           TEXT NOT NULL,
	frames          BIGINT NOT NULL,
	decode_faults   BIGINT NOT NULL,
	chunks          BIGINT NOT NULL,
	chars           BIGINT NOT NULL,
	error           TEXT NOT NULL,
	started_at      BIGINT NOT NULL,
	completed_at    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS relay_sessions_conversation_idx
	ON relay_sessions (conversation_id, started_at);
`

const columns = `id, visitor_id, conversation_id, code, state, frames, decode_faults, chunks, chars, error, started_at, completed_at`

// Store is a storage.Driver backed by a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New migrates the schema on db and returns a Store. The Store owns db and
// closes it on Close.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{db: db, dialect: dialect}, nil
}

// Put upserts record.
func (s *Store) Put(ctx context.Context, record *storage.Record) error {
	if record == nil {
		return storage.ErrNilRecord
	}

	query := s.rebind(`INSERT INTO relay_sessions (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			frames = excluded.frames,
			decode_faults = excluded.decode_faults,
			chunks = excluded.chunks,
			chars = excluded.chars,
			error = excluded.error,
			completed_at = excluded.completed_at`)

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.VisitorID,
		record.ConversationID,
		record.Code,
		record.State,
		record.Frames,
		record.DecodeFaults,
		record.Chunks,
		record.Chars,
		record.Error,
		record.StartedAt.UnixNano(),
		record.CompletedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("storing record %s: %w", record.ID, err)
	}
	return nil
}

// Get retrieves a record by its session ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+columns+` FROM relay_sessions WHERE id = ?`), id)

	record, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("loading record %s: %w", id, err)
	}
	return record, nil
}

// ListByConversation returns the records of one conversation, oldest first.
func (s *Store) ListByConversation(ctx context.Context, conversationID string) ([]*storage.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+columns+` FROM relay_sessions WHERE conversation_id = ? ORDER BY started_at`),
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []*storage.Record
	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*storage.Record, error) {
	var (
		r                  storage.Record
		started, completed int64
	)
	err := row.Scan(
		&r.ID,
		&r.VisitorID,
		&r.ConversationID,
		&r.Code,
		&r.State,
		&r.Frames,
		&r.DecodeFaults,
		&r.Chunks,
		&r.Chars,
		&r.Error,
		&started,
		&completed,
	)
	if err != nil {
		return nil, err
	}

	r.StartedAt = time.Unix(0, started).UTC()
	r.CompletedAt = time.Unix(0, completed).UTC()
	return &r, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) rebind(query string) string {
	return s.dialect.Rebind(query)
}

// Rebind rewrites "?" placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
