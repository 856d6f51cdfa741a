package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

const metadataFileName = "metadata.json"

// SourceFileAdapter stores extracted documents as <dir>/<pdf_name>/metadata.json.
type SourceFileAdapter struct {
	dir string
}

// NewSourceFileAdapter creates a source document repository rooted at dir.
func NewSourceFileAdapter(dir string) repositories.SourceDocumentRepository {
	return &SourceFileAdapter{dir: dir}
}

// Save writes the document's metadata file.
func (a *SourceFileAdapter) Save(ctx context.Context, doc *entities.SourceDocument) error {
	if doc == nil {
		return apperrors.NewValidationError("source document is required")
	}
	if err := validateCaseID(doc.PDFName); err != nil {
		return err
	}

	caseDir := filepath.Join(a.dir, doc.PDFName)
	if err := os.MkdirAll(caseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", doc.PDFName, err)
	}
	return writeFileAtomic(filepath.Join(caseDir, metadataFileName), data)
}

// List loads every case directory that contains a metadata file. Directories
// without a readable, valid one are skipped with a warning.
func (a *SourceFileAdapter) List(ctx context.Context) ([]entities.SourceDocument, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundErrorWrap(fmt.Sprintf("extraction directory not found: %s", a.dir), err)
		}
		return nil, fmt.Errorf("failed to list extraction directory: %w", err)
	}

	docs := make([]entities.SourceDocument, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(a.dir, e.Name(), metadataFileName)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn().Str("dir", e.Name()).Msg("Skipping extraction directory without metadata.json")
				continue
			}
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable metadata.json")
			continue
		}

		var doc entities.SourceDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unparseable metadata.json")
			continue
		}
		if doc.PDFName == "" {
			doc.PDFName = e.Name()
		}
		docs = append(docs, doc)
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].PDFName < docs[j].PDFName })
	return docs, nil
}
