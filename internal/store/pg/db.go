// Package pg is the Postgres-backed store.Engine, adapted from goclaw's
// internal/store/pg (a pgx-backed store family) and narrowed to the two
// models the demo game in internal/demo/chat actually persists: accounts
// and their world-entity rows. Schema migrations live under
// /migrations and are driven by cmd/migrate.go via golang-migrate.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextlevelbuilder/tickforge/internal/state"
	"github.com/nextlevelbuilder/tickforge/internal/store"
)

// Engine is the Postgres-backed store.Engine.
type Engine struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and returns a ready Engine.
func Open(ctx context.Context, dsn string) (*Engine, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: open: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Engine{pool: pool}, nil
}

// Close releases the connection pool.
func (e *Engine) Close() error {
	e.pool.Close()
	return nil
}

// Users returns the Postgres-backed Users store.
func (e *Engine) Users() store.Users { return &userStore{pool: e.pool} }

// Entities returns the Postgres-backed Entities store.
func (e *Engine) Entities() store.Entities { return &entityStore{pool: e.pool} }

// Session returns a session handle bound to this engine. Postgres
// connection checkout happens per-query via pgxpool, so Release is a
// no-op here; the method exists to satisfy state.StoreFactory and to give
// handlers a scoped point to extend later (e.g. a real transaction) without
// changing the state package's interface.
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
