// Package db provides PostgreSQL access to the identity store.
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const userColumns = `id, github_id, username, name, email, avatar_url, created_at, last_login`

// FindUser looks up an identity record by username. Returns nil without
// error when no record exists; enrichment callers treat that as absent.
func (db *DB) FindUser(ctx context.Context, username string) (*User, error) {
	var u User
	err := db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.GitHubID, &u.Username, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user %s: %w", username, err)
	}
	return &u, nil
}

// FindUserByGitHubID looks up an identity record by its external id.
func (db *DB) FindUserByGitHubID(ctx context.Context, githubID int64) (*User, error) {
	var u User
	err := db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = $1`,
		githubID,
	).Scan(&u.ID, &u.GitHubID, &u.Username, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by github id %d: %w", githubID, err)
	}
	return &u, nil
}

// UpsertUser records a successful identity verification: it creates the
// record on first sight of the external id and refreshes username, profile
// fields and last_login on every subsequent one.
func (db *DB) UpsertUser(ctx context.Context, githubID int64, username, name, email, avatarURL string) (*User, error) {
	var u User
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (github_id, username, name, email, avatar_url, created_at, last_login)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (github_id) DO UPDATE
		 SET username = $2, name = $3, email = $4, avatar_url = $5, last_login = NOW()
		 RETURNING `+userColumns,
		githubID, username, name, email, avatarURL,
	).Scan(&u.ID, &u.GitHubID, &u.Username, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.LastLogin)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %s: %w", username, err)
	}
	return &u, nil
}
