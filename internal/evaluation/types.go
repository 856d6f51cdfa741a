package evaluation

import "time"

// GroundTruthCase is a labeled test query with its expected outcome.
type GroundTruthCase struct {
	ID                string   `json:"id"`
	Query             string   `json:"query"`
	ExpectedDiagnosis string   `json:"expected_diagnosis"`
	ExpectedKeywords  []string `json:"expected_keywords"`
}

// EvalResult holds the evaluation outcome for a single query.
type EvalResult struct {
	CaseID            string        `json:"case_id"`
	Query             string        `json:"query"`
	ExpectedDiagnosis string        `json:"expected_diagnosis"`
	Answer            string        `json:"answer"`
	Retrieved         []string      `json:"retrieved"`
	DiagnosisCorrect  bool          `json:"diagnosis_correct"`
	KeywordMatch      float64       `json:"keyword_match"`
	PrecisionAtK      float64       `json:"precision_at_k"`
	Latency           time.Duration `json:"latency"`
	Error             string        `json:"error,omitempty"`
}

// Report is the aggregate written to the metrics file.
type Report struct {
	RunID             string    `json:"run_id"`
	DiagnosisAccuracy float64   `json:"diagnosis_accuracy"`
	KeywordMatch      float64   `json:"keyword_match"`
	PrecisionAtK      float64   `json:"precision_at_k"`
	K                 int       `json:"k"`
	CorrectDiagnoses  int       `json:"correct_diagnoses"`
	TotalCases        int       `json:"total_cases"`
	Failed            int       `json:"failed"`
	Timestamp         time.Time `json:"timestamp"`
	Model             string    `json:"model"`
	EmbeddingModel    string    `json:"embedding_model"`

	Results []EvalResult `json:"-"`
}
