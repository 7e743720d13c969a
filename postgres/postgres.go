package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements diagram.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// nullable maps an unset endpoint to SQL NULL.
func nullable(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func deref(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}
