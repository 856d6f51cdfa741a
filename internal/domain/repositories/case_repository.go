package repositories

import (
	"context"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
)

// CaseRecordRepository persists finalised case records, one per case id.
type CaseRecordRepository interface {
	// Save writes the record, replacing any previous record for the same case.
	Save(ctx context.Context, record entities.CaseRecord) error
	// Get returns a not-found error when no record exists for caseID.
	Get(ctx context.Context, caseID string) (*entities.CaseRecord, error)
	// List returns every persisted record ordered by case id.
	List(ctx context.Context) ([]entities.CaseRecord, error)
}

// SourceDocumentRepository persists the output of PDF extraction.
type SourceDocumentRepository interface {
	Save(ctx context.Context, doc *entities.SourceDocument) error
	// List returns every extracted document ordered by pdf name.
	List(ctx context.Context) ([]entities.SourceDocument, error)
}
