package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// DiagnosisService answers a free-text clinical question from the most
// similar indexed cases.
type DiagnosisService struct {
	searcher  repositories.CaseSearcher
	generator providers.TextGenerator
	assembler *PromptAssembler
	topK      int
	opts      providers.GenerationOptions
}

// NewDiagnosisService creates a new diagnosis service.
func NewDiagnosisService(
	searcher repositories.CaseSearcher,
	generator providers.TextGenerator,
	assembler *PromptAssembler,
	topK int,
	opts providers.GenerationOptions,
) *DiagnosisService {
	return &DiagnosisService{
		searcher:  searcher,
		generator: generator,
		assembler: assembler,
		topK:      topK,
		opts:      opts,
	}
}

// Diagnose retrieves the top-K cases for question and makes one generation
// call over them. The result's sources are exactly the retrieved documents.
// Any failure is returned as a single error with no partial result.
func (s *DiagnosisService) Diagnose(ctx context.Context, question string) (*entities.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewValidationError("question is required")
	}
	if s.searcher == nil {
		return nil, apperrors.NewNotFoundError("case index is not loaded")
	}

	ctx, span := observability.StartSpan(ctx, "DiagnosisService.Diagnose", attribute.Int("top_k", s.topK))
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	retrieved, err := s.searcher.Search(ctx, question, s.topK)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to retrieve similar cases: %w", err)
	}
	if len(retrieved) == 0 {
		logger.Warn().Msg("No similar cases retrieved; answering without case context")
	}

	docs := retrieved.Documents()
	prompt := s.assembler.Assemble(question, docs)

	answer, err := s.generator.Generate(ctx, prompt, s.opts)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("failed to generate diagnosis: %w", err)
	}

	logger.Info().
		Strs("sources", retrieved.CaseIDs()).
		Str("model", s.generator.Model()).
		Msg("Diagnosis generated")

	return &entities.QueryResult{
		Answer:  strings.TrimSpace(answer),
		Sources: docs,
	}, nil
}
