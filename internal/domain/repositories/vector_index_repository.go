package repositories

import (
	"context"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
)

// CaseSearcher retrieves the k indexed case documents most similar to a query.
type CaseSearcher interface {
	Search(ctx context.Context, query string, k int) (entities.RetrievalResult, error)
}

// CaseIndexRepository builds, persists and reopens the case similarity index.
type CaseIndexRepository interface {
	// Rebuild replaces the persisted index with one over docs.
	Rebuild(ctx context.Context, docs []entities.EmbeddableDocument) (CaseSearcher, error)

	// Open loads the persisted index.
	Open(ctx context.Context) (CaseSearcher, error)
}
