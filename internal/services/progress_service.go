// internal/services/progress_service.go
package services

import (
	"sync"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
)

// SceneEvent is one live update pushed to the UI: a scene changed state, or
// the run as a whole moved.
type SceneEvent struct {
	RunID    uint64        `json:"run_id"`
	Type     string        `json:"type"` // scene_update, run_state, notice
	Scene    *models.Scene `json:"scene,omitempty"`
	RunState string        `json:"run_state,omitempty"`
	Notice   string        `json:"notice,omitempty"`
}

// ProgressService fans scene events out to subscribers. Sends are
// non-blocking: a slow subscriber drops events rather than stalling the
// pipeline.
type ProgressService struct {
	mu          sync.Mutex
	subscribers map[chan SceneEvent]bool
}

// NewProgressService creates the progress hub.
func NewProgressService() *ProgressService {
	return &ProgressService{
		subscribers: make(map[chan SceneEvent]bool),
	}
}

// Subscribe registers a new event channel. The channel is buffered so bursts
// of per-scene updates do not block publication.
func (s *ProgressService) Subscribe() chan SceneEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	subscriber := make(chan SceneEvent, 32)
	s.subscribers[subscriber] = true
	return subscriber
}

// Unsubscribe removes and closes a subscriber channel.
func (s *ProgressService) Unsubscribe(subscriber chan SceneEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[subscriber]; ok {
		delete(s.subscribers, subscriber)
		close(subscriber)
	}
}

// Publish delivers event to every subscriber without blocking.
func (s *ProgressService) Publish(event SceneEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for subscriber := range s.subscribers {
		select {
		case subscriber <- event:
		default:
		}
	}
}
