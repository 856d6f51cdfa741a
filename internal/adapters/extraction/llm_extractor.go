package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// LLMEntityExtractor turns one page of clinical text into a PageExtraction
// by prompting a text generation service for a JSON object.
type LLMEntityExtractor struct {
	generator providers.TextGenerator
	opts      providers.GenerationOptions
}

// NewLLMEntityExtractor creates an extractor over generator.
func NewLLMEntityExtractor(generator providers.TextGenerator, temperature float64, maxTokens int) providers.EntityExtractor {
	return &LLMEntityExtractor{
		generator: generator,
		opts: providers.GenerationOptions{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
			JSONOutput:      true,
		},
	}
}

// Extract analyses pageText. Blank text yields (nil, nil) without calling the
// generator. A response that is not the expected object yields a
// *MalformedExtractionError carrying the raw text; generator failures are
// returned as they are.
func (e *LLMEntityExtractor) Extract(ctx context.Context, pageText string) (*entities.PageExtraction, error) {
	if strings.TrimSpace(pageText) == "" {
		return nil, nil
	}

	ctx, span := observability.StartSpan(ctx, "extraction.Extract",
		attribute.String("ai.model", e.generator.Model()),
		attribute.Int("page.chars", len(pageText)),
	)
	defer span.End()

	raw, err := e.generator.Generate(ctx, BuildEntityExtractionPrompt(pageText), e.opts)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	page, err := ParseExtraction(raw)
	if err != nil {
		observability.RecordError(span, err)
		log.Warn().Err(err).Str("response", truncate(raw, 200)).Msg("Discarding malformed extraction response")
		return nil, err
	}
	return page, nil
}

// StripCodeFences removes a leading ```json or ``` fence and a trailing ```
// fence from a trimmed response.
func StripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// ParseExtraction validates a generation response against the extraction
// schema. List keys must hold arrays of strings or null and patient_history
// must be a string or null; absent keys are allowed and unknown keys ignored.
// List values are lowercased and trimmed, and empty values dropped.
func ParseExtraction(raw string) (*entities.PageExtraction, error) {
	cleaned := StripCodeFences(raw)

	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := dec.Decode(&fields); err != nil {
		return nil, apperrors.NewMalformedExtractionError(raw, err)
	}
	if fields == nil {
		return nil, apperrors.NewMalformedExtractionError(raw, errors.New("response is not a JSON object"))
	}
	if dec.More() {
		return nil, apperrors.NewMalformedExtractionError(raw, errors.New("unexpected data after JSON object"))
	}

	page := &entities.PageExtraction{}
	lists := []struct {
		key string
		dst *[]string
	}{
		{"diseases", &page.Diseases},
		{"symptoms", &page.Symptoms},
		{"vital_signs", &page.VitalSigns},
		{"anatomical_terms", &page.AnatomicalTerms},
		{"laboratory_findings", &page.LaboratoryFindings},
		{"treatments", &page.Treatments},
		{"pathogens", &page.Pathogens},
		{"procedures", &page.Procedures},
		{"misc_medical_terms", &page.MiscMedicalTerms},
		{"risk_factors", &page.RiskFactors},
	}
	for _, l := range lists {
		value, ok := fields[l.key]
		if !ok {
			continue
		}
		values, err := decodeStringList(value)
		if err != nil {
			return nil, apperrors.NewMalformedExtractionError(raw, fmt.Errorf("field %s: %w", l.key, err))
		}
		*l.dst = values
	}

	if value, ok := fields["patient_history"]; ok && !isNull(value) {
		var history string
		if err := json.Unmarshal(value, &history); err != nil {
			return nil, apperrors.NewMalformedExtractionError(raw, fmt.Errorf("field patient_history: %w", err))
		}
		page.PatientHistory = strings.TrimSpace(history)
	}

	return page, nil
}

func decodeStringList(value json.RawMessage) ([]string, error) {
	if isNull(value) {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal(value, &items); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
