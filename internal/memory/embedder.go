package memory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/verbalize-ai/coachd/internal/openai"
	"github.com/verbalize-ai/coachd/internal/store"
)

// Embedder turns an attempt's significant segments into stored vectors.
type Embedder struct {
	store    *store.Store
	embedder *openai.Embedder
	logger   *slog.Logger
}

func NewEmbedder(st *store.Store, emb *openai.Embedder, logger *slog.Logger) *Embedder {
	return &Embedder{store: st, embedder: emb, logger: logger}
}

// EmbedAttempt extracts and stores evidence snippets for one scored
// attempt. Runs at most once per attempt: any existing embedding for the
// source short-circuits the whole call. A single failed embed skips that
// snippet and moves on; the pipeline never aborts mid-attempt. The
// existence check is a best-effort guard, not a transactional one, so two
// racing runs can still double-write; that window is accepted.
func (e *Embedder) EmbedAttempt(ctx context.Context, attempt *store.Attempt) (int, error) {
	exists, err := e.store.HasEmbeddingsForSource(ctx, attempt.ID)
	if err != nil {
		return 0, fmt.Errorf("check existing embeddings: %w", err)
	}
	if exists {
		e.logger.Info("attempt already embedded, skipping",
			"attempt_id", attempt.ID,
		)
		return 0, nil
	}

	candidates := ExtractSignificantSegments(attempt.Transcript, attempt.FeedbackText)
	stored := 0
	for _, c := range candidates {
		vector, err := e.embedder.Embed(ctx, c.Content)
		if err != nil {
			e.logger.Warn("embed failed, skipping snippet",
				"attempt_id", attempt.ID,
				"kind", c.Kind,
				"error", err,
			)
			continue
		}

		_, err = e.store.InsertEmbedding(ctx, store.MemoryEmbedding{
			OrgID:    attempt.OrgID,
			UserID:   attempt.UserID,
			SourceID: attempt.ID,
			Kind:     c.Kind,
			Content:  c.Content,
		}, vector)
		if err != nil {
			e.logger.Warn("store embedding failed, skipping snippet",
				"attempt_id", attempt.ID,
				"kind", c.Kind,
				"error", err,
			)
			continue
		}
		stored++
	}

	e.logger.Info("attempt memory embedded",
		"attempt_id", attempt.ID,
		"candidates", len(candidates),
		"stored", stored,
	)
	return stored, nil
}
