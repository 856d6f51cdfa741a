package vectorindex

import (
	"context"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
)

// Store keeps one index at a fixed location.
type Store struct {
	gateway  *Gateway
	location string
}

// NewStore creates a store persisting under location.
func NewStore(gateway *Gateway, location string) *Store {
	return &Store{gateway: gateway, location: location}
}

// Rebuild builds an index over docs and persists it before returning its searcher.
func (s *Store) Rebuild(ctx context.Context, docs []entities.EmbeddableDocument) (repositories.CaseSearcher, error) {
	index, err := s.gateway.Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.Persist(ctx, index, s.location); err != nil {
		return nil, err
	}
	return s.gateway.Searcher(index), nil
}

// Open loads the persisted index.
func (s *Store) Open(ctx context.Context) (repositories.CaseSearcher, error) {
	index, err := s.gateway.Load(ctx, s.location)
	if err != nil {
		return nil, err
	}
	return s.gateway.Searcher(index), nil
}

var _ repositories.CaseIndexRepository = (*Store)(nil)
