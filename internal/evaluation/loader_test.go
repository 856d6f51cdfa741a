package evaluation

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGroundTruth_ValidFile(t *testing.T) {
	content := `[
		{"id": "q1", "query": "fever after safari", "expected_diagnosis": "malaria", "expected_keywords": ["malaria", "plasmodium"]},
		{"id": "q2", "query": "cough and hemoptysis", "expected_diagnosis": "tuberculosis", "expected_keywords": ["tuberculosis"]}
	]`
	path := writeTempFile(t, content)

	cases, err := LoadGroundTruth(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].ID != "q1" {
		t.Errorf("expected id q1, got %s", cases[0].ID)
	}
	if cases[0].ExpectedDiagnosis != "malaria" {
		t.Errorf("expected diagnosis malaria, got %s", cases[0].ExpectedDiagnosis)
	}
	if len(cases[0].ExpectedKeywords) != 2 {
		t.Errorf("expected 2 keywords, got %d", len(cases[0].ExpectedKeywords))
	}
}

func TestLoadGroundTruth_InvalidFile(t *testing.T) {
	_, err := LoadGroundTruth("/nonexistent/path.json")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadGroundTruth_InvalidJSON(t *testing.T) {
	path := writeTempFile(t, `not valid json`)
	_, err := LoadGroundTruth(path)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoadGroundTruthOrDefault_EmptyPath(t *testing.T) {
	cases, err := LoadGroundTruthOrDefault("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 15 {
		t.Errorf("expected 15 default cases, got %d", len(cases))
	}
}

func TestDefaultGroundTruth_IsValid(t *testing.T) {
	cases := DefaultGroundTruth()
	if err := ValidateGroundTruth(cases); err != nil {
		t.Fatalf("default ground truth invalid: %v", err)
	}
	if cases[4].ExpectedDiagnosis != "malaria" {
		t.Errorf("expected fifth case to be malaria, got %s", cases[4].ExpectedDiagnosis)
	}
}

func TestValidateGroundTruth(t *testing.T) {
	valid := GroundTruthCase{ID: "q1", Query: "fever", ExpectedDiagnosis: "malaria", ExpectedKeywords: []string{"malaria"}}

	tests := []struct {
		name    string
		cases   []GroundTruthCase
		wantErr bool
	}{
		{"valid", []GroundTruthCase{valid}, false},
		{"empty set", nil, true},
		{"missing id", []GroundTruthCase{{Query: "fever", ExpectedDiagnosis: "malaria", ExpectedKeywords: []string{"x"}}}, true},
		{"duplicate id", []GroundTruthCase{valid, valid}, true},
		{"missing query", []GroundTruthCase{{ID: "q1", ExpectedDiagnosis: "malaria", ExpectedKeywords: []string{"x"}}}, true},
		{"missing diagnosis", []GroundTruthCase{{ID: "q1", Query: "fever", ExpectedKeywords: []string{"x"}}}, true},
		{"no keywords", []GroundTruthCase{{ID: "q1", Query: "fever", ExpectedDiagnosis: "malaria"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGroundTruth(tt.cases)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGroundTruth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
