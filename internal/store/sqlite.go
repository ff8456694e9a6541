package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteLog implements QueryLog using modernc.org/sqlite.
type SQLiteLog struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLog{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS query_log (
	id                TEXT PRIMARY KEY,
	query             TEXT NOT NULL,
	translated        INTEGER NOT NULL DEFAULT 0,
	chunks_retrieved  INTEGER NOT NULL DEFAULT 0,
	chunks_in_context INTEGER NOT NULL DEFAULT 0,
	sources_cited     INTEGER NOT NULL DEFAULT 0,
	answer_chars      INTEGER NOT NULL DEFAULT 0,
	duration_ms       INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_query_log_created_at ON query_log(created_at);
`

func (s *SQLiteLog) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteLog) Close() error {
	return s.db.Close()
}

func (s *SQLiteLog) Record(ctx context.Context, entry QueryLogEntry) (*QueryLogEntry, error) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_log
			(id, query, translated, chunks_retrieved, chunks_in_context, sources_cited, answer_chars, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Query, boolToInt(entry.Translated),
		entry.ChunksRetrieved, entry.ChunksInContext, entry.SourcesCited,
		entry.AnswerChars, entry.DurationMS, entry.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert query log entry")
	}
	return &entry, nil
}

func (s *SQLiteLog) List(ctx context.Context, filter QueryLogFilter) ([]QueryLogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, query, translated, chunks_retrieved, chunks_in_context, sources_cited, answer_chars, duration_ms, created_at
		FROM query_log`
	args := []any{}
	if !filter.Since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list query log")
	}
	defer rows.Close()

	var entries []QueryLogEntry
	for rows.Next() {
		var e QueryLogEntry
		var translated int
		if err := rows.Scan(&e.ID, &e.Query, &translated,
			&e.ChunksRetrieved, &e.ChunksInContext, &e.SourcesCited,
			&e.AnswerChars, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan query log row")
		}
		e.Translated = translated != 0
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate query log")
}

func (s *SQLiteLog) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_log`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count query log")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
