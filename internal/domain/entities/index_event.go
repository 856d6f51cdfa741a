package entities

import (
	"time"

	"github.com/google/uuid"
)

// IndexEventType represents the type of index event
type IndexEventType string

const (
	IndexEventTypeRebuilt IndexEventType = "index_rebuilt"
)

// IndexEvent announces a change to the persisted case index.
type IndexEvent struct {
	ID            string         `json:"id"`
	EventType     IndexEventType `json:"event_type"`
	DocumentCount int            `json:"document_count"`
	Timestamp     time.Time      `json:"timestamp"`
}

// NewIndexRebuiltEvent creates the event published after a rebuild.
func NewIndexRebuiltEvent(documentCount int) *IndexEvent {
	return &IndexEvent{
		ID:            uuid.New().String(),
		EventType:     IndexEventTypeRebuilt,
		DocumentCount: documentCount,
		Timestamp:     time.Now().UTC(),
	}
}
