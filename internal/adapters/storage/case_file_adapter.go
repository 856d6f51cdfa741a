package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

const caseFileSuffix = "_filtered.json"

// CaseFileAdapter stores each case record as <case_id>_filtered.json in one directory.
type CaseFileAdapter struct {
	dir string
}

// NewCaseFileAdapter creates a case record repository rooted at dir.
func NewCaseFileAdapter(dir string) repositories.CaseRecordRepository {
	return &CaseFileAdapter{dir: dir}
}

// CaseFileName returns the file name used for a case id.
func CaseFileName(caseID string) string {
	return caseID + caseFileSuffix
}

// Save writes the record atomically.
func (a *CaseFileAdapter) Save(ctx context.Context, record entities.CaseRecord) error {
	if err := validateCaseID(record.CaseID); err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create case directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode case %s: %w", record.CaseID, err)
	}

	path := filepath.Join(a.dir, CaseFileName(record.CaseID))
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write case %s: %w", record.CaseID, err)
	}

	log.Debug().Str("case_id", record.CaseID).Str("path", path).Msg("Saved case record")
	return nil
}

// Get reads the record for caseID.
func (a *CaseFileAdapter) Get(ctx context.Context, caseID string) (*entities.CaseRecord, error) {
	if err := validateCaseID(caseID); err != nil {
		return nil, err
	}
	path := filepath.Join(a.dir, CaseFileName(caseID))
	record, err := readCaseFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundErrorWrap(fmt.Sprintf("case file not found: %s", path), err)
		}
		return nil, err
	}
	return record, nil
}

// List reads every .json file in the directory. Files that cannot be read or
// parsed are logged and skipped.
func (a *CaseFileAdapter) List(ctx context.Context) ([]entities.CaseRecord, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundErrorWrap(fmt.Sprintf("case directory not found: %s", a.dir), err)
		}
		return nil, fmt.Errorf("failed to list case directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	records := make([]entities.CaseRecord, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(a.dir, name)
		record, err := readCaseFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable case file")
			continue
		}
		records = append(records, *record)
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].CaseID < records[j].CaseID })
	return records, nil
}

func readCaseFile(path string) (*entities.CaseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record entities.CaseRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse case file %s: %w", path, err)
	}
	if record.CaseID == "" {
		record.CaseID = strings.TrimSuffix(filepath.Base(path), caseFileSuffix)
	}
	return &record, nil
}

func validateCaseID(caseID string) error {
	if strings.TrimSpace(caseID) == "" {
		return apperrors.NewValidationError("case id is required")
	}
	if strings.ContainsAny(caseID, `/\`) || caseID == "." || caseID == ".." {
		return apperrors.NewValidationError(fmt.Sprintf("invalid case id %q", caseID))
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
