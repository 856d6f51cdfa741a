package evaluation

import (
	"math"
	"strings"
)

// DiagnosisMatch reports whether the expected diagnosis appears in the answer,
// ignoring case.
func DiagnosisMatch(expected, answer string) bool {
	return strings.Contains(strings.ToLower(answer), strings.ToLower(expected))
}

// KeywordMatchRate is the fraction of expected keywords found in the answer.
// Returns 0.0 if keywords is empty.
func KeywordMatchRate(keywords []string, answer string) float64 {
	if len(keywords) == 0 {
		return 0.0
	}

	lower := strings.ToLower(answer)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched++
		}
	}

	return float64(matched) / float64(len(keywords))
}

// PrecisionAtK computes the fraction of the first K retrieved ids that are
// relevant. Returns 0.0 when nothing was retrieved.
func PrecisionAtK(retrieved []string, k int, relevant func(caseID string) bool) float64 {
	topK := retrieved
	if k < len(topK) {
		topK = topK[:k]
	}
	if len(topK) == 0 {
		return 0.0
	}

	found := 0
	for _, id := range topK {
		if relevant(id) {
			found++
		}
	}

	return float64(found) / float64(len(topK))
}

// IsRelevant reports whether a case's searchable text mentions the expected
// diagnosis or any expected keyword.
func IsRelevant(searchableText, expectedDiagnosis string, keywords []string) bool {
	text := strings.ToLower(searchableText)
	if strings.Contains(text, strings.ToLower(expectedDiagnosis)) {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
