package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MemoryEmbedding is one embedded evidence snippet from an attempt,
// searchable by vector similarity.
type MemoryEmbedding struct {
	ID        uuid.UUID
	OrgID     string
	UserID    string
	SourceID  uuid.UUID
	Kind      string
	Content   string
	CreatedAt time.Time
}

// HasEmbeddingsForSource reports whether the source attempt already has
// embedded segments. Used to keep the embed pipeline idempotent.
func (s *Store) HasEmbeddingsForSource(ctx context.Context, sourceID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM memory_embeddings WHERE source_id = $1)`, sourceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check embeddings: %w", err)
	}
	return exists, nil
}

// InsertEmbedding stores one embedded snippet.
func (s *Store) InsertEmbedding(ctx context.Context, e MemoryEmbedding, embedding []float64) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO memory_embeddings (id, org_id, user_id, source_id, kind, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, e.OrgID, e.UserID, e.SourceID, e.Kind, e.Content, pgVector(embedding),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert embedding: %w", err)
	}
	return id, nil
}

// SearchEmbeddings returns the user's closest snippets to the query vector.
func (s *Store) SearchEmbeddings(ctx context.Context, orgID, userID string, query []float64, limit int) ([]MemoryEmbedding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, org_id, user_id, source_id, kind, content, created_at
		FROM memory_embeddings
		WHERE org_id = $1 AND user_id = $2
		ORDER BY embedding <=> $3
		LIMIT $4`, orgID, userID, pgVector(query), limit)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	defer rows.Close()

	var out []MemoryEmbedding
	for rows.Next() {
		var e MemoryEmbedding
		if err := rows.Scan(&e.ID, &e.OrgID, &e.UserID, &e.SourceID, &e.Kind, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
