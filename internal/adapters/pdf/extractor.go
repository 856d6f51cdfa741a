package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// Extractor reads the text of each PDF page. Embedded images are not
// extracted, so every page's image list is empty.
type Extractor struct{}

// NewExtractor creates a new PDF extractor.
func NewExtractor() providers.SourceExtractor {
	return &Extractor{}
}

// ExtractFile returns the page-ordered text of the PDF at path. The document
// is named after the file without its extension.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*entities.SourceDocument, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundErrorWrap(fmt.Sprintf("pdf not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf: %w", err)
	}

	reader, err := newReader(file, info.Size())
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("failed to read pdf %s: %v", path, err))
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	doc := &entities.SourceDocument{
		PDFName: name,
		PDFPath: path,
		Pages:   make([]entities.SourcePage, 0, reader.NumPage()),
	}

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := entities.SourcePage{PageNumber: i, Images: []entities.ImageRef{}}
		text, err := guardedText(func() (string, error) {
			p := reader.Page(i)
			if p.V.IsNull() {
				return "", nil
			}
			return p.GetPlainText(nil)
		})
		if err != nil {
			log.Warn().Err(err).Str("pdf", name).Int("page", i).Msg("Failed to extract page text")
		} else {
			page.Text = strings.TrimSpace(text)
		}
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

// newReader guards against panics raised by the parser on malformed input.
func newReader(file *os.File, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	return pdf.NewReader(file, size)
}

// guardedText runs extract, turning a parser panic on a malformed page into
// an error.
func guardedText(extract func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()
	return extract()
}
