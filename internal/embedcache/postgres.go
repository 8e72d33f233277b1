package embedcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// Postgres stores embeddings in a pgvector column.
type Postgres struct {
	db *sql.DB
}

// NewPostgres prepares the face_embeddings table on db. The server needs
// the pgvector extension available.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS face_embeddings (
			content_hash CHAR(64) PRIMARY KEY,
			embedding vector NOT NULL,
			dim INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("prepare embedding cache: %w", err)
		}
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, hash string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := p.db.QueryRowContext(ctx,
		`SELECT embedding FROM face_embeddings WHERE content_hash = $1`, hash,
	).Scan(&vec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached embedding: %w", err)
	}
	return vec.Slice(), true, nil
}

func (p *Postgres) Put(ctx context.Context, hash string, embedding []float32) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO face_embeddings (content_hash, embedding, dim, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (content_hash)
		DO UPDATE SET embedding = $2, dim = $3, created_at = NOW()
	`, hash, pgvector.NewVector(embedding), len(embedding))
	if err != nil {
		return fmt.Errorf("put cached embedding: %w", err)
	}
	return nil
}

// Count returns the total number of cached embeddings.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	var count int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM face_embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cached embeddings: %w", err)
	}
	return count, nil
}
