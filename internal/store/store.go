// Package store defines the persistent-store session factory handed to
// states (spec.md §3 "reference to ... the persistent-store session
// factory", §4.5 "_get_db_session"), plus the Engine abstraction the
// server's Config.Store picks a concrete backend for. Grounded on goclaw's
// internal/store (Stores interface, pg/file backend split), narrowed here
// to the one concern this framework's demo game actually needs: user
// accounts and their world-entity rows.
package store

import (
	"context"

	"github.com/nextlevelbuilder/tickforge/internal/state"
)

// User is a registered player account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

// Entity is a world-position row, one per logged-in player.
type Entity struct {
	ID       int64
	UserID   int64
	Name     string
	X, Y     int
	ImageIdx int
}

// Users is the account model's persistence surface.
type Users interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, username, passwordHash string) (*User, error)
}

// Entities is the world-entity model's persistence surface.
type Entities interface {
	GetByUserID(ctx context.Context, userID int64) (*Entity, error)
	Create(ctx context.Context, userID int64, name string, x, y, imageIdx int) (*Entity, error)
	UpdatePosition(ctx context.Context, entityID int64, x, y int) error
}

// Engine bundles the model stores a concrete backend provides plus the
// scoped-session factory used by states.
type Engine interface {
	state.StoreFactory
	Users() Users
	Entities() Entities
	Close() error
}

// SessionHandle is what Engine.Session() actually returns: a state.Session
// (so it satisfies the generic interface state code is written against)
// that also exposes the model stores, so a handler that knows its concrete
// backend can reach Users()/Entities() off the session it already
// acquired and released.
type SessionHandle interface {
	state.Session
	Users() Users
	Entities() Entities
}
