package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/user/recipe-importer/internal/domain"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS recipe_embeddings (
  recipe_id  TEXT PRIMARY KEY,
  content    TEXT NOT NULL,
  embedding  vector NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore keeps recipe embeddings in PostgreSQL using pgvector.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	// The vector type has to exist before connections can register it.
	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	_, err = conn.Exec(ctx, schemaSQL)
	conn.Close(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// Missing returns the ids, in input order, that have no stored embedding.
func (s *PostgresStore) Missing(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT recipe_id FROM recipe_embeddings WHERE recipe_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	have := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		have[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// SaveEmbeddings upserts a batch of embeddings within a single transaction.
func (s *PostgresStore) SaveEmbeddings(ctx context.Context, records []domain.EmbeddedRecipe) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO recipe_embeddings (recipe_id, content, embedding)
			VALUES ($1, $2, $3)
			ON CONFLICT (recipe_id) DO UPDATE SET
				content = EXCLUDED.content, embedding = EXCLUDED.embedding, updated_at = NOW()
		`, rec.RecipeID, rec.Text, pgvector.NewVector(rec.Embedding))
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
