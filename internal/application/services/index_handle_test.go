package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicalrag/internal/adapters/storage"
	"github.com/zatekoja/clinicalrag/internal/adapters/vectorindex"
	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// memoryBus is an in-process EventBus.
type memoryBus struct {
	mu     sync.Mutex
	subs   []chan *entities.IndexEvent
	closed bool
}

func (b *memoryBus) Publish(ctx context.Context, channel string, event *entities.IndexEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		sub <- event
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.IndexEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("closed")
	}
	ch := make(chan *entities.IndexEvent, 8)
	b.subs = append(b.subs, ch)
	return ch, nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		for _, sub := range b.subs {
			close(sub)
		}
	}
	return nil
}

func (b *memoryBus) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func TestIndexHandle_EmptyIsNotFound(t *testing.T) {
	handle := NewIndexHandle(nil)

	_, err := handle.Search(context.Background(), "fever", 3)

	assert.False(t, handle.Loaded())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestIndexHandle_Swap(t *testing.T) {
	first := new(mockSearcher)
	first.On("Search", mock.Anything, "fever", 2).Return(entities.RetrievalResult{
		{Document: entities.EmbeddableDocument{CaseID: "old"}, Rank: 1},
	}, nil)
	second := new(mockSearcher)
	second.On("Search", mock.Anything, "fever", 2).Return(entities.RetrievalResult{
		{Document: entities.EmbeddableDocument{CaseID: "new"}, Rank: 1},
	}, nil)

	handle := NewIndexHandle(first)
	result, err := handle.Search(context.Background(), "fever", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, result.CaseIDs())

	handle.Swap(second)
	result, err = handle.Search(context.Background(), "fever", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, result.CaseIDs())
}

func TestWatchIndexUpdates_ReloadsAfterRebuild(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	records := storage.NewCaseFileAdapter(filepath.Join(dir, "filtered"))
	saveRecords(t, records, tropicalRecords()...)
	store := vectorindex.NewStore(vectorindex.NewGateway(bagOfWordsEmbedder{}, 1), filepath.Join(dir, "index"))

	bus := &memoryBus{}
	indexSvc := NewIndexService(records, store).WithEvents(bus)
	handle := NewIndexHandle(nil)

	done := make(chan error, 1)
	go func() { done <- WatchIndexUpdates(ctx, bus, indexSvc, handle) }()
	require.Eventually(t, func() bool { return bus.subscribers() == 1 }, time.Second, 5*time.Millisecond)

	_, count, err := indexSvc.BuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.Eventually(t, handle.Loaded, 2*time.Second, 5*time.Millisecond)
	result, err := handle.Search(ctx, "fever chills safari tanzania", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"case_malaria"}, result.CaseIDs())

	require.NoError(t, bus.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after the bus closed")
	}
}
