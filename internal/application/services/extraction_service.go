package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// ExtractionService converts a directory of case-report PDFs into stored
// source documents.
type ExtractionService struct {
	extractor providers.SourceExtractor
	sources   repositories.SourceDocumentRepository
}

// NewExtractionService creates a new extraction service.
func NewExtractionService(extractor providers.SourceExtractor, sources repositories.SourceDocumentRepository) *ExtractionService {
	return &ExtractionService{extractor: extractor, sources: sources}
}

// ExtractDirectory extracts every .pdf file in dir in name order. A file that
// fails is logged and skipped.
func (s *ExtractionService) ExtractDirectory(ctx context.Context, dir string) ([]entities.SourceDocument, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.EqualFold(filepath.Ext(m), ".pdf") {
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no pdf files found in %s", dir))
	}
	sort.Strings(paths)

	docs := make([]entities.SourceDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return docs, err
		}

		doc, err := s.extractor.ExtractFile(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Skipping pdf that could not be extracted")
			continue
		}
		if err := s.sources.Save(ctx, doc); err != nil {
			log.Error().Err(err).Str("pdf", doc.PDFName).Msg("Failed to save extracted document")
			continue
		}

		log.Info().Str("pdf", doc.PDFName).Int("pages", len(doc.Pages)).Msg("Extracted case report")
		docs = append(docs, *doc)
	}

	log.Info().Int("documents", len(docs)).Int("files", len(paths)).Msg("Finished pdf extraction")
	return docs, nil
}
