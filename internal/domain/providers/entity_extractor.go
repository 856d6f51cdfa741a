package providers

import (
	"context"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
)

// EntityExtractor distills clinical entities from the raw text of one page.
// It returns (nil, nil) for blank text without calling any external service,
// and an *errors.MalformedExtractionError when the response cannot be parsed.
type EntityExtractor interface {
	Extract(ctx context.Context, pageText string) (*entities.PageExtraction, error)
}
