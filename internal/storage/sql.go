package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names a database/sql driver the snapshot store can run on.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
)

const queryTimeout = 5 * time.Second

// SQLStore keeps snapshots in the deck_sessions table. Timestamps are stored as
// unix milliseconds so all three drivers read them back the same way.
type SQLStore struct {
	DB      *sql.DB
	dialect Dialect
}

// OpenSQL opens the database, applies pool settings for the dialect, pings it and
// creates the table if needed.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	switch dialect {
	case SQLite:
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	case Postgres, MySQL:
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	s, err := NewSQLStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the table if needed.
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{DB: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	var migrations []string
	switch s.dialect {
	case Postgres:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS deck_sessions (
				session_id UUID PRIMARY KEY,
				snapshot   JSONB NOT NULL,
				version    INTEGER NOT NULL DEFAULT 1,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_deck_sessions_updated ON deck_sessions(updated_at)`,
		}
	case MySQL:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS deck_sessions (
				session_id CHAR(36) PRIMARY KEY,
				snapshot   LONGTEXT NOT NULL,
				version    INT NOT NULL DEFAULT 1,
				created_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL,
				INDEX idx_deck_sessions_updated (updated_at)
			)`,
		}
	default:
		migrations = []string{
			`CREATE TABLE IF NOT EXISTS deck_sessions (
				session_id TEXT PRIMARY KEY,
				snapshot   TEXT NOT NULL,
				version    INTEGER NOT NULL DEFAULT 1,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_deck_sessions_updated ON deck_sessions(updated_at)`,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	for _, m := range migrations {
		if _, err := s.DB.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Create(ctx context.Context, data []byte) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rec := newRecord(data)
	query := s.rebind(`
		INSERT INTO deck_sessions (session_id, snapshot, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.DB.ExecContext(ctx, query,
		rec.ID.String(), string(data), rec.Version, rec.CreatedAt.UnixMilli(), rec.UpdatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) Load(ctx context.Context, id uuid.UUID) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := s.rebind(`
		SELECT snapshot, version, created_at, updated_at
		FROM deck_sessions
		WHERE session_id = ?
	`)

	rec := &Record{ID: id}
	var data string
	var created, updated int64
	err := s.DB.QueryRowContext(ctx, query, id.String()).Scan(&data, &rec.Version, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	rec.Data = []byte(data)
	rec.CreatedAt = time.UnixMilli(created).UTC()
	rec.UpdatedAt = time.UnixMilli(updated).UTC()
	return rec, nil
}

// Save replaces the snapshot and bumps the version counter.
func (s *SQLStore) Save(ctx context.Context, id uuid.UUID, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := s.rebind(`
		UPDATE deck_sessions
		SET snapshot   = ?,
		    version    = version + 1,
		    updated_at = ?
		WHERE session_id = ?
	`)
	result, err := s.DB.ExecContext(ctx, query, string(data), time.Now().UTC().UnixMilli(), id.String())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM deck_sessions WHERE session_id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM deck_sessions WHERE updated_at < ?`), cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return result.RowsAffected()
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}
