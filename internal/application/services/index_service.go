package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
)

// IndexService turns the persisted case records into the similarity index.
type IndexService struct {
	records repositories.CaseRecordRepository
	index   repositories.CaseIndexRepository
	events  providers.EventBus
}

// NewIndexService creates a new index service.
func NewIndexService(records repositories.CaseRecordRepository, index repositories.CaseIndexRepository) *IndexService {
	return &IndexService{records: records, index: index}
}

// WithEvents makes BuildIndex announce each rebuild on bus.
func (s *IndexService) WithEvents(bus providers.EventBus) *IndexService {
	s.events = bus
	return s
}

// Documents flattens every persisted case record. Records with no content are
// skipped since they carry nothing to embed.
func (s *IndexService) Documents(ctx context.Context) ([]entities.EmbeddableDocument, error) {
	records, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load case records: %w", err)
	}

	docs := make([]entities.EmbeddableDocument, 0, len(records))
	for _, record := range records {
		doc := entities.NewEmbeddableDocument(record)
		if doc.Text == "" {
			log.Warn().Str("case_id", record.CaseID).Msg("Skipping case with no extracted entities")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// BuildIndex rebuilds and persists the index and returns a searcher over it.
func (s *IndexService) BuildIndex(ctx context.Context) (repositories.CaseSearcher, int, error) {
	docs, err := s.Documents(ctx)
	if err != nil {
		return nil, 0, err
	}

	searcher, err := s.index.Rebuild(ctx, docs)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build case index: %w", err)
	}

	log.Info().Int("documents", len(docs)).Msg("Case index ready")

	if s.events != nil {
		event := entities.NewIndexRebuiltEvent(len(docs))
		if err := s.events.Publish(ctx, providers.EventChannelIndexUpdates, event); err != nil {
			log.Warn().Err(err).Msg("Failed to announce index rebuild")
		}
	}
	return searcher, len(docs), nil
}

// OpenIndex loads the persisted index.
func (s *IndexService) OpenIndex(ctx context.Context) (repositories.CaseSearcher, error) {
	return s.index.Open(ctx)
}
