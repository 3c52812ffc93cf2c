// internal/services/progress_service_test.go
package services

import (
	"testing"

	"github.com/asimrafique2000-rgb/bulk-generations/internal/models"
)

func TestProgressFanOut(t *testing.T) {
	hub := NewProgressService()

	a := hub.Subscribe()
	b := hub.Subscribe()
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	hub.Publish(SceneEvent{RunID: 1, Type: "run_state", RunState: "decomposing_script"})

	for name, ch := range map[string]chan SceneEvent{"a": a, "b": b} {
		select {
		case event := <-ch:
			if event.RunState != "decomposing_script" {
				t.Errorf("subscriber %s got %+v", name, event)
			}
		default:
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

func TestProgressDropsWhenSubscriberFull(t *testing.T) {
	hub := NewProgressService()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Fill the buffer and keep publishing; Publish must never block.
	for i := 0; i < 100; i++ {
		hub.Publish(SceneEvent{RunID: 1, Type: "scene_update", Scene: &models.Scene{ID: i}})
	}

	if len(ch) != cap(ch) {
		t.Errorf("buffer should be full, len=%d cap=%d", len(ch), cap(ch))
	}
}

func TestProgressUnsubscribeClosesChannel(t *testing.T) {
	hub := NewProgressService()
	ch := hub.Subscribe()

	hub.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	hub.Publish(SceneEvent{RunID: 1, Type: "notice", Notice: "x"})

	// Unsubscribing twice is safe.
	hub.Unsubscribe(ch)
}
