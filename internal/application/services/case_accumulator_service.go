package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// Page outcomes reported to metrics.
const (
	pageOutcomeMerged    = "merged"
	pageOutcomeEmpty     = "empty"
	pageOutcomeMalformed = "malformed"
	pageOutcomeFailed    = "failed"
)

// CaseAccumulatorService folds the per-page extractions of each source
// document into one persisted CaseRecord.
type CaseAccumulatorService struct {
	extractor providers.EntityExtractor
	sources   repositories.SourceDocumentRepository
	records   repositories.CaseRecordRepository
	pacer     *Pacer
}

// NewCaseAccumulatorService creates a new case accumulator service.
func NewCaseAccumulatorService(
	extractor providers.EntityExtractor,
	sources repositories.SourceDocumentRepository,
	records repositories.CaseRecordRepository,
	pacer *Pacer,
) *CaseAccumulatorService {
	return &CaseAccumulatorService{
		extractor: extractor,
		sources:   sources,
		records:   records,
		pacer:     pacer,
	}
}

// AccumulateCase extracts every non-blank page of source in order and merges
// the results into a record keyed by the document name. Malformed responses
// and failed calls skip their page. The record is saved even when every page
// was skipped. Only cancellation and save failures are returned.
func (s *CaseAccumulatorService) AccumulateCase(ctx context.Context, source entities.SourceDocument) (entities.CaseRecord, error) {
	ctx, span := observability.StartSpan(ctx, "CaseAccumulatorService.AccumulateCase",
		attribute.String("case_id", source.PDFName),
		attribute.Int("pages", len(source.Pages)),
	)
	defer span.End()

	record := entities.NewCaseRecord(source.PDFName)

	for _, page := range source.Pages {
		if !page.HasText() {
			observability.RecordPageExtraction(ctx, pageOutcomeEmpty)
			continue
		}

		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				observability.RecordError(span, err)
				return record, err
			}
		}

		log.Debug().Str("case_id", source.PDFName).Int("page", page.PageNumber).Msg("Extracting entities")

		extracted, err := s.extractor.Extract(ctx, page.Text)
		if err != nil {
			if ctx.Err() != nil {
				return record, ctx.Err()
			}
			if apperrors.IsMalformedExtraction(err) {
				observability.RecordPageExtraction(ctx, pageOutcomeMalformed)
				log.Warn().Err(err).Str("case_id", source.PDFName).Int("page", page.PageNumber).Msg("Skipping page with malformed extraction")
			} else {
				observability.RecordPageExtraction(ctx, pageOutcomeFailed)
				log.Error().Err(err).Str("case_id", source.PDFName).Int("page", page.PageNumber).Msg("Skipping page after extraction failure")
			}
			continue
		}
		if extracted == nil {
			observability.RecordPageExtraction(ctx, pageOutcomeEmpty)
			continue
		}

		record = entities.MergePage(record, *extracted)
		observability.RecordPageExtraction(ctx, pageOutcomeMerged)
	}

	if err := s.records.Save(ctx, record); err != nil {
		observability.RecordError(span, err)
		return record, fmt.Errorf("failed to save case %s: %w", record.CaseID, err)
	}

	log.Info().
		Str("case_id", record.CaseID).
		Int("diseases", len(record.Diseases)).
		Int("symptoms", len(record.Symptoms)).
		Msg("Saved case record")
	return record, nil
}

// ProcessAll accumulates every extracted source document, sorted by name.
// A case that cannot be saved is logged and left out of the result.
func (s *CaseAccumulatorService) ProcessAll(ctx context.Context) ([]entities.CaseRecord, error) {
	sources, err := s.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load extracted documents: %w", err)
	}

	records := make([]entities.CaseRecord, 0, len(sources))
	failed := 0
	for i, source := range sources {
		log.Info().
			Str("case_id", source.PDFName).
			Int("case", i+1).
			Int("total", len(sources)).
			Msg("Processing case")

		record, err := s.AccumulateCase(ctx, source)
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			failed++
			log.Error().Err(err).Str("case_id", source.PDFName).Msg("Case accumulation failed")
			continue
		}
		records = append(records, record)
	}

	log.Info().Int("cases", len(records)).Int("failed", failed).Msg("Finished case accumulation")
	return records, nil
}
