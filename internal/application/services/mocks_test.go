package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
)

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, pageText string) (*entities.PageExtraction, error) {
	args := m.Called(ctx, pageText)
	page, _ := args.Get(0).(*entities.PageExtraction)
	return page, args.Error(1)
}

type mockCaseRepository struct {
	mock.Mock
}

func (m *mockCaseRepository) Save(ctx context.Context, record entities.CaseRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockCaseRepository) Get(ctx context.Context, caseID string) (*entities.CaseRecord, error) {
	args := m.Called(ctx, caseID)
	record, _ := args.Get(0).(*entities.CaseRecord)
	return record, args.Error(1)
}

func (m *mockCaseRepository) List(ctx context.Context) ([]entities.CaseRecord, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]entities.CaseRecord)
	return records, args.Error(1)
}

type mockSourceRepository struct {
	mock.Mock
}

func (m *mockSourceRepository) Save(ctx context.Context, doc *entities.SourceDocument) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *mockSourceRepository) List(ctx context.Context) ([]entities.SourceDocument, error) {
	args := m.Called(ctx)
	docs, _ := args.Get(0).([]entities.SourceDocument)
	return docs, args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, opts providers.GenerationOptions) (string, error) {
	args := m.Called(ctx, prompt, opts)
	return args.String(0), args.Error(1)
}

func (m *mockGenerator) Model() string {
	return "mock-generator"
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string, k int) (entities.RetrievalResult, error) {
	args := m.Called(ctx, query, k)
	result, _ := args.Get(0).(entities.RetrievalResult)
	return result, args.Error(1)
}

func noSleepPacer() *Pacer {
	return NewPacer(0, 0, 0)
}
