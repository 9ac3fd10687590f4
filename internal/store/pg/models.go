package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextlevelbuilder/tickforge/internal/store"
)

type userStore struct {
	pool *pgxpool.Pool
}

func (u *userStore) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	row := u.pool.QueryRow(ctx, `SELECT id, username, password_hash FROM users WHERE username = $1`, username)
	var out store.User
	if err := row.Scan(&out.ID, &out.Username, &out.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pg: get user %q: %w", username, err)
	}
	return &out, nil
}

func (u *userStore) Create(ctx context.Context, username, passwordHash string) (*store.User, error) {
	row := u.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash)
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("pg: create user %q: %w", username, err)
	}
	return &store.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

type entityStore struct {
	pool *pgxpool.Pool
}

func (e *entityStore) GetByUserID(ctx context.Context, userID int64) (*store.Entity, error) {
	row := e.pool.QueryRow(ctx,
		`SELECT id, user_id, name, x, y, image_idx FROM entities WHERE user_id = $1`, userID)
	var out store.Entity
	if err := row.Scan(&out.ID, &out.UserID, &out.Name, &out.X, &out.Y, &out.ImageIdx); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("pg: get entity for user %d: %w", userID, err)
	}
	return &out, nil
}

func (e *entityStore) Create(ctx context.Context, userID int64, name string, x, y, imageIdx int) (*store.Entity, error) {
	row := e.pool.QueryRow(ctx,
		`INSERT INTO entities (user_id, name, x, y, image_idx) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		userID, name, x, y, imageIdx)
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("pg: create entity for user %d: %w", userID, err)
	}
	return &store.Entity{ID: id, UserID: userID, Name: name, X: x, Y: y, ImageIdx: imageIdx}, nil
}

func (e *entityStore) UpdatePosition(ctx context.Context, entityID int64, x, y int) error {
	_, err := e.pool.Exec(ctx, `UPDATE entities SET x = $1, y = $2 WHERE id = $3`, x, y, entityID)
	if err != nil {
		return fmt.Errorf("pg: update position for entity %d: %w", entityID, err)
	}
	return nil
}
