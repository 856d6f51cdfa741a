package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// Diagnoser answers one diagnosis question.
type Diagnoser interface {
	Diagnose(ctx context.Context, question string) (*entities.QueryResult, error)
}

// RunnerConfig names the models being evaluated and the Precision@K cutoff.
type RunnerConfig struct {
	K              int
	Model          string
	EmbeddingModel string
}

// Runner runs evaluation across a set of ground-truth cases.
type Runner struct {
	diagnoser Diagnoser
	records   repositories.CaseRecordRepository
	config    RunnerConfig
	now       func() time.Time
}

func NewRunner(diagnoser Diagnoser, records repositories.CaseRecordRepository, config RunnerConfig) *Runner {
	if config.K <= 0 {
		config.K = 5
	}
	return &Runner{
		diagnoser: diagnoser,
		records:   records,
		config:    config,
		now:       time.Now,
	}
}

func (r *Runner) Run(ctx context.Context, cases []GroundTruthCase) (*Report, error) {
	if len(cases) == 0 {
		return nil, apperrors.NewValidationError("no ground truth cases to evaluate")
	}

	report := &Report{
		RunID:          uuid.New().String(),
		K:              r.config.K,
		TotalCases:     len(cases),
		Model:          r.config.Model,
		EmbeddingModel: r.config.EmbeddingModel,
		Results:        make([]EvalResult, 0, len(cases)),
	}
	texts := make(map[string]*string)

	for i, gt := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Info().Int("index", i).Str("case_id", gt.ID).Msg("Evaluating query")

		start := r.now()
		qr, err := r.diagnoser.Diagnose(ctx, gt.Query)
		result := EvalResult{
			CaseID:            gt.ID,
			Query:             gt.Query,
			ExpectedDiagnosis: gt.ExpectedDiagnosis,
			Latency:           r.now().Sub(start),
		}

		if err != nil {
			log.Error().Err(err).Str("case_id", gt.ID).Msg("Diagnosis failed, scoring as a miss")
			result.Error = err.Error()
			report.Failed++
			report.Results = append(report.Results, result)
			continue
		}

		result.Answer = strings.ToLower(qr.Answer)
		result.Retrieved = qr.SourceCaseIDs()
		result.DiagnosisCorrect = DiagnosisMatch(gt.ExpectedDiagnosis, result.Answer)
		result.KeywordMatch = KeywordMatchRate(gt.ExpectedKeywords, result.Answer)
		result.PrecisionAtK = PrecisionAtK(result.Retrieved, r.config.K, func(caseID string) bool {
			text := r.searchableText(ctx, texts, caseID)
			return text != nil && IsRelevant(*text, gt.ExpectedDiagnosis, gt.ExpectedKeywords)
		})

		if result.DiagnosisCorrect {
			report.CorrectDiagnoses++
		}
		report.Results = append(report.Results, result)
	}

	r.finalize(report)
	return report, nil
}

// searchableText loads a persisted case once per run. A missing case yields nil.
func (r *Runner) searchableText(ctx context.Context, cache map[string]*string, caseID string) *string {
	if text, ok := cache[caseID]; ok {
		return text
	}

	record, err := r.records.Get(ctx, caseID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			log.Warn().Str("case_id", caseID).Msg("Retrieved case not found on disk")
		} else {
			log.Error().Err(err).Str("case_id", caseID).Msg("Failed to load retrieved case")
		}
		cache[caseID] = nil
		return nil
	}

	text := record.SearchableText()
	cache[caseID] = &text
	return &text
}

func (r *Runner) finalize(report *Report) {
	keyword := make([]float64, len(report.Results))
	precision := make([]float64, len(report.Results))
	for i, res := range report.Results {
		keyword[i] = res.KeywordMatch
		precision[i] = res.PrecisionAtK
	}

	report.DiagnosisAccuracy = round4(float64(report.CorrectDiagnoses) / float64(report.TotalCases))
	report.KeywordMatch = round4(mean(keyword))
	report.PrecisionAtK = round4(mean(precision))
	report.Timestamp = r.now()
}

// WriteReport writes the report as indented JSON.
func WriteReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
