package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

const (
	collectionName   = "clinical_cases"
	exportFileName   = "index.gob.gz"
	manifestFileName = "manifest.json"
)

// Manifest describes a persisted index. The embedding model is pinned so a
// query is never embedded by a different model than the documents were.
type Manifest struct {
	EmbeddingModel string    `json:"embedding_model"`
	DocumentCount  int       `json:"document_count"`
	BuildID        string    `json:"build_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Index is a built similarity index over case documents.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	manifest   Manifest
}

// Count returns the number of indexed documents.
func (i *Index) Count() int {
	return i.collection.Count()
}

// Manifest returns the identity of the index.
func (i *Index) Manifest() Manifest {
	return i.manifest
}

// Gateway builds, persists, loads and searches case indexes.
type Gateway struct {
	embedder    providers.Embedder
	concurrency int
}

// NewGateway creates a gateway that embeds with embedder, running up to
// concurrency embedding calls at once while building.
func NewGateway(embedder providers.Embedder, concurrency int) *Gateway {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Gateway{embedder: embedder, concurrency: concurrency}
}

func (g *Gateway) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return g.embedder.Embed(ctx, text)
	}
}

// Build embeds docs into a new in-memory index. An empty set or a repeated
// case id is rejected.
func (g *Gateway) Build(ctx context.Context, docs []entities.EmbeddableDocument) (*Index, error) {
	if len(docs) == 0 {
		return nil, apperrors.NewValidationError("cannot build an index from zero documents")
	}

	ctx, span := observability.StartSpan(ctx, "vectorindex.Build",
		attribute.Int("documents", len(docs)),
		attribute.String("embedding.model", g.embedder.Model()),
	)
	defer span.End()

	seen := make(map[string]struct{}, len(docs))
	chromemDocs := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.CaseID == "" {
			return nil, apperrors.NewValidationError("document without case id")
		}
		if _, dup := seen[doc.CaseID]; dup {
			return nil, apperrors.NewValidationError(fmt.Sprintf("duplicate case id %q", doc.CaseID))
		}
		seen[doc.CaseID] = struct{}{}
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:       doc.CaseID,
			Metadata: doc.Metadata(),
			Content:  doc.Text,
		})
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, nil, g.embeddingFunc())
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create collection", err)
	}

	start := time.Now()
	if err := collection.AddDocuments(ctx, chromemDocs, g.concurrency); err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("failed to embed documents", err)
	}

	index := &Index{
		db:         db,
		collection: collection,
		manifest: Manifest{
			EmbeddingModel: g.embedder.Model(),
			DocumentCount:  collection.Count(),
			BuildID:        uuid.New().String(),
			CreatedAt:      time.Now().UTC(),
		},
	}

	log.Info().
		Int("documents", index.Count()).
		Str("build_id", index.manifest.BuildID).
		Dur("duration", time.Since(start)).
		Msg("Built case index")
	return index, nil
}

// Persist writes the index export and its manifest under location. Each file
// is written to a temporary name and renamed into place.
func (g *Gateway) Persist(ctx context.Context, index *Index, location string) error {
	if index == nil {
		return apperrors.NewValidationError("index is required")
	}
	if err := os.MkdirAll(location, 0o755); err != nil {
		return fmt.Errorf("failed to create index location: %w", err)
	}

	tmpExport := filepath.Join(location, "."+uuid.New().String()+".tmp."+exportFileName)
	if err := index.db.ExportToFile(tmpExport, true, "", collectionName); err != nil {
		os.Remove(tmpExport)
		return fmt.Errorf("failed to export index: %w", err)
	}
	if err := os.Rename(tmpExport, filepath.Join(location, exportFileName)); err != nil {
		os.Remove(tmpExport)
		return fmt.Errorf("failed to move index export into place: %w", err)
	}

	data, err := json.MarshalIndent(index.manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	tmpManifest := filepath.Join(location, "."+uuid.New().String()+".tmp."+manifestFileName)
	if err := os.WriteFile(tmpManifest, data, 0o644); err != nil {
		os.Remove(tmpManifest)
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmpManifest, filepath.Join(location, manifestFileName)); err != nil {
		os.Remove(tmpManifest)
		return fmt.Errorf("failed to move manifest into place: %w", err)
	}

	log.Info().Str("location", location).Str("build_id", index.manifest.BuildID).Msg("Persisted case index")
	return nil
}

// Load reads an index persisted by Persist. A missing location or file is a
// not-found error; an index built with another embedding model is rejected.
func (g *Gateway) Load(ctx context.Context, location string) (*Index, error) {
	manifestPath := filepath.Join(location, manifestFileName)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundErrorWrap(fmt.Sprintf("no index found at %s", location), err)
		}
		return nil, fmt.Errorf("failed to read index manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse index manifest: %w", err)
	}
	if manifest.EmbeddingModel != g.embedder.Model() {
		return nil, apperrors.NewValidationError(fmt.Sprintf(
			"index at %s was built with embedding model %q but %q is configured",
			location, manifest.EmbeddingModel, g.embedder.Model()))
	}

	exportPath := filepath.Join(location, exportFileName)
	if _, err := os.Stat(exportPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundErrorWrap(fmt.Sprintf("index export missing at %s", exportPath), err)
		}
		return nil, fmt.Errorf("failed to stat index export: %w", err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(exportPath, ""); err != nil {
		return nil, fmt.Errorf("failed to import index: %w", err)
	}
	collection := db.GetCollection(collectionName, g.embeddingFunc())
	if collection == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("index at %s has no %s collection", location, collectionName))
	}

	log.Info().
		Str("location", location).
		Int("documents", collection.Count()).
		Str("build_id", manifest.BuildID).
		Msg("Loaded case index")
	return &Index{db: db, collection: collection, manifest: manifest}, nil
}

// Search embeds query and returns up to k documents by descending cosine
// similarity, ranked from 1. Equal similarities are ordered by case id. k is
// clamped to the number of documents.
func (g *Gateway) Search(ctx context.Context, index *Index, query string, k int) (entities.RetrievalResult, error) {
	if index == nil {
		return nil, apperrors.NewNotFoundError("index not loaded")
	}
	if k <= 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("k must be positive, got %d", k))
	}
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewValidationError("query is required")
	}

	ctx, span := observability.StartSpan(ctx, "vectorindex.Search", attribute.Int("k", k))
	defer span.End()

	count := index.Count()
	if count == 0 {
		return entities.RetrievalResult{}, nil
	}

	// Every document is scored so that ties at the k-th similarity are
	// broken by case id rather than by chromem's concurrent ordering.
	start := time.Now()
	results, err := index.collection.Query(ctx, query, count, nil, nil)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewExternalError("similarity search failed", err)
	}

	out := make(entities.RetrievalResult, 0, len(results))
	for _, r := range results {
		caseID := r.Metadata[entities.MetadataCaseID]
		if caseID == "" {
			caseID = r.ID
		}
		out = append(out, entities.ScoredDocument{
			Document:   entities.EmbeddableDocument{CaseID: caseID, Text: r.Content},
			Similarity: float64(r.Similarity),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Document.CaseID < out[j].Document.CaseID
	})
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	observability.RecordRetrieval(ctx, time.Since(start), len(out))
	return out, nil
}

// Searcher binds an index to the gateway for use by the query path.
func (g *Gateway) Searcher(index *Index) repositories.CaseSearcher {
	return &indexSearcher{gateway: g, index: index}
}

type indexSearcher struct {
	gateway *Gateway
	index   *Index
}

func (s *indexSearcher) Search(ctx context.Context, query string, k int) (entities.RetrievalResult, error) {
	return s.gateway.Search(ctx, s.index, query, k)
}
