package providers

import (
	"context"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
)

// SourceExtractor turns one PDF case report into page-ordered text.
type SourceExtractor interface {
	ExtractFile(ctx context.Context, path string) (*entities.SourceDocument, error)
}
