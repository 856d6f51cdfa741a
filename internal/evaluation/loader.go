package evaluation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed ground_truth.json
var defaultGroundTruth []byte

// DefaultGroundTruth returns the built-in set of tropical-disease cases.
func DefaultGroundTruth() []GroundTruthCase {
	var cases []GroundTruthCase
	if err := json.Unmarshal(defaultGroundTruth, &cases); err != nil {
		panic(fmt.Sprintf("embedded ground truth is invalid: %v", err))
	}
	return cases
}

// LoadGroundTruth reads and parses a ground-truth set from a JSON file.
func LoadGroundTruth(path string) ([]GroundTruthCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth file: %w", err)
	}

	var cases []GroundTruthCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse ground truth: %w", err)
	}

	return cases, nil
}

// LoadGroundTruthOrDefault loads path when set and falls back to the built-in set.
func LoadGroundTruthOrDefault(path string) ([]GroundTruthCase, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultGroundTruth(), nil
	}
	return LoadGroundTruth(path)
}

// ValidateGroundTruth checks that all cases have required fields.
func ValidateGroundTruth(cases []GroundTruthCase) error {
	if len(cases) == 0 {
		return fmt.Errorf("ground truth is empty")
	}

	seen := make(map[string]struct{}, len(cases))
	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if strings.TrimSpace(c.Query) == "" {
			return fmt.Errorf("case %q: missing query text", c.ID)
		}
		if strings.TrimSpace(c.ExpectedDiagnosis) == "" {
			return fmt.Errorf("case %q: missing expected diagnosis", c.ID)
		}
		if len(c.ExpectedKeywords) == 0 {
			return fmt.Errorf("case %q: no expected keywords", c.ID)
		}
	}

	return nil
}
