package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// IndexHandle is a CaseSearcher whose underlying index can be replaced while
// queries are in flight. An in-flight search keeps the index it started with.
type IndexHandle struct {
	mu      sync.RWMutex
	current repositories.CaseSearcher
}

// NewIndexHandle creates a handle over searcher, which may be nil.
func NewIndexHandle(searcher repositories.CaseSearcher) *IndexHandle {
	return &IndexHandle{current: searcher}
}

// Search queries the current index. Without one it fails with a not-found error.
func (h *IndexHandle) Search(ctx context.Context, query string, k int) (entities.RetrievalResult, error) {
	h.mu.RLock()
	searcher := h.current
	h.mu.RUnlock()

	if searcher == nil {
		return nil, apperrors.NewNotFoundError("case index is not loaded")
	}
	return searcher.Search(ctx, query, k)
}

// Swap replaces the current index.
func (h *IndexHandle) Swap(searcher repositories.CaseSearcher) {
	h.mu.Lock()
	h.current = searcher
	h.mu.Unlock()
}

// Loaded reports whether an index is available.
func (h *IndexHandle) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current != nil
}

// WatchIndexUpdates reloads the persisted index into handle whenever a rebuild
// is announced on bus. A failed reload keeps the previous index. It returns
// when ctx is done or the subscription ends.
func WatchIndexUpdates(ctx context.Context, bus providers.EventBus, index *IndexService, handle *IndexHandle) error {
	events, err := bus.Subscribe(ctx, providers.EventChannelIndexUpdates)
	if err != nil {
		return err
	}

	for event := range events {
		if event.EventType != entities.IndexEventTypeRebuilt {
			continue
		}

		searcher, err := index.OpenIndex(ctx)
		if err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to reload case index, keeping previous index")
			continue
		}
		handle.Swap(searcher)
		log.Info().Str("event_id", event.ID).Int("documents", event.DocumentCount).Msg("Case index reloaded")
	}

	return ctx.Err()
}
