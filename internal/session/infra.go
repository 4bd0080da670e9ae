package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS link_sessions (
	id            TEXT PRIMARY KEY,
	subject       TEXT NOT NULL,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	id_token      TEXT NOT NULL,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at    BIGINT NOT NULL,
	created_at    BIGINT NOT NULL
)`

type sqlStore struct {
	db       *sql.DB
	postgres bool
}

// OpenPostgres opens a session store backed by PostgreSQL.
func OpenPostgres(ctx context.Context, dsn string) (Store, error) {
	return openSQL(ctx, "postgres", dsn)
}

// OpenSQLite opens a session store backed by a local SQLite file.
func OpenSQLite(ctx context.Context, path string) (Store, error) {
	return openSQL(ctx, "sqlite", path)
}

func openSQL(ctx context.Context, driver, dsn string) (Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &sqlStore{db: db, postgres: driver == "postgres"}, nil
}

// rebind turns ? placeholders into $n for postgres.
func (r *sqlStore) rebind(query string) string {
	if !r.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func (r *sqlStore) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT id, subject, username, email, id_token, access_token, refresh_token, expires_at, created_at
		FROM link_sessions
		WHERE id = ?
	`), id)

	var (
		s         Session
		expiresAt int64
		createdAt int64
	)
	err := row.Scan(
		&s.ID,
		&s.Principal.Subject,
		&s.Principal.Username,
		&s.Principal.Email,
		&s.Tokens.IDToken,
		&s.Tokens.AccessToken,
		&s.Tokens.RefreshToken,
		&expiresAt,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if expiresAt > 0 {
		s.Tokens.ExpiresAt = time.Unix(expiresAt, 0)
	}
	s.CreatedAt = time.Unix(createdAt, 0)
	return &s, nil
}

func (r *sqlStore) Put(ctx context.Context, s *Session) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO link_sessions (id, subject, username, email, id_token, access_token, refresh_token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			subject = excluded.subject,
			username = excluded.username,
			email = excluded.email,
			id_token = excluded.id_token,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at
	`),
		s.ID,
		s.Principal.Subject,
		s.Principal.Username,
		s.Principal.Email,
		s.Tokens.IDToken,
		s.Tokens.AccessToken,
		s.Tokens.RefreshToken,
		unixOrZero(s.Tokens.ExpiresAt),
		unixOrZero(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (r *sqlStore) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM link_sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *sqlStore) Close() error {
	return r.db.Close()
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
