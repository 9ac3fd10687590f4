// Package sqlite is the embedded store.Engine for single-process
// deployments, adapted from goclaw's internal/store/file (its
// no-external-dependency backend) but implemented against
// modernc.org/sqlite instead of flat files, so the demo game gets real
// SQL semantics (unique constraints, upserts) without requiring a
// Postgres instance. Schema creation runs inline at Open time rather
// than through golang-migrate, since golang-migrate's sqlite3 source
// driver needs cgo and modernc.org/sqlite is the pure-Go alternative.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entities (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	x          INTEGER NOT NULL DEFAULT 0,
	y          INTEGER NOT NULL DEFAULT 0,
	image_idx  INTEGER NOT NULL DEFAULT 0
);
`

// Engine is the sqlite-backed store.Engine.
type Engine struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database file at path and
// ensures its schema exists.
func Open(ctx context.Context, path string) (*Engine, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Engine{db: db}, nil
}

func (e *Engine) Close() error { return e.db.Close() }

func (e *Engine) Users() store.Users { return &userStore{db: e.db} }

func (e *Engine) Entities() store.Entities { return &entityStore{db: e.db} }

func (e *Engine) Session() (state.Session, error) {
	return &session{engine: e}, nil
}

type session struct {
	engine *Engine
}

func (s *session) Release()                 {}
func (s *session) Users() store.Users       { return s.engine.Users() }
func (s *session) Entities() store.Entities { return s.engine.Entities() }

var _ store.Engine = (*Engine)(nil)
var _ store.SessionHandle = (*session)(nil)

type userStore struct {
	db *sql.DB
}

func (u *userStore) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	row := u.db.QueryRowContext(ctx, `SELECT id, username, password_hash FROM users WHERE username = ?`, username)
	var out store.User
	if err := row.Scan(&out.ID, &out.Username, &out.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get user %q: %w", username, err)
	}
	return &out, nil
}

func (u *userStore) Create(ctx context.Context, username, passwordHash string) (*store.User, error) {
	res, err := u.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("sqlite: create user %q: %w", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: create user %q: %w", username, err)
	}
	return &store.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

type entityStore struct {
	db *sql.DB
}

func (e *entityStore) GetByUserID(ctx context.Context, userID int64) (*store.Entity, error) {
	row := e.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, x, y, image_idx FROM entities WHERE user_id = ?`, userID)
	var out store.Entity
	if err := row.Scan(&out.ID, &out.UserID, &out.Name, &out.X, &out.Y, &out.ImageIdx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get entity for user %d: %w", userID, err)
	}
	return &out, nil
}

func (e *entityStore) Create(ctx context.Context, userID int64, name string, x, y, imageIdx int) (*store.Entity, error) {
	res, err := e.db.ExecContext(ctx,
		`INSERT INTO entities (user_id, name, x, y, image_idx) VALUES (?, ?, ?, ?, ?)`,
		userID, name, x, y, imageIdx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: create entity for user %d: %w", userID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: create entity for user %d: %w", userID, err)
	}
	return &store.Entity{ID: id, UserID: userID, Name: name, X: x, Y: y, ImageIdx: imageIdx}, nil
}

func (e *entityStore) UpdatePosition(ctx context.Context, entityID int64, x, y int) error {
	_, err := e.db.ExecContext(ctx, `UPDATE entities SET x = ?, y = ? WHERE id = ?`, x, y, entityID)
	if err != nil {
		return fmt.Errorf("sqlite: update position for entity %d: %w", entityID, err)
	}
	return nil
}
