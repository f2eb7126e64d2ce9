// Package websocket implements the realtime core: per-connection sessions
// and the hub that routes room-scoped events to their audience.
package websocket

import (
	"context"
	"sync"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/internal/registry"
	"roomchat/pkg/logger"
)

// Hub routes events to the sessions currently registered in a room.
// Delivery is fire-and-forget: a session whose send buffer is full or
// that has already disconnected simply misses the event.
type Hub struct {
	// mu serializes every registry mutation together with the presence
	// broadcast it triggers, so no member observes a half-updated roster.
	mu           sync.Mutex
	registry     *registry.Registry
	store        database.Gateway
	historyLimit int
}

func NewHub(reg *registry.Registry, store database.Gateway, historyLimit int) *Hub {
	return &Hub{
		registry:     reg,
		store:        store,
		historyLimit: historyLimit,
	}
}

// Join registers the session in its room, announces it to the others,
// pushes the refreshed roster to everyone, then delivers the stored
// history to the joiner only.
func (h *Hub) Join(s *Session) {
	h.mu.Lock()
	h.registry.Register(s.room, s.id, s.username, s)
	h.deliverOthersLocked(s.room, s.id, models.EventUserJoined, models.UserNotice{
		Username: s.username,
		Message:  s.username + " joined the chat",
	})
	h.deliverRoomLocked(s.room, models.EventUsersList, h.registry.DisplayNames(s.room))
	h.mu.Unlock()

	logger.Info("User %s joined room %s", s.username, s.room)

	// Room upsert is idempotent and off the delivery path.
	go func(roomID string) {
		if err := h.store.EnsureRoom(context.Background(), roomID); err != nil {
			logger.Error("Error ensuring room %s: %v", roomID, err)
		}
	}(s.room)

	messages, err := h.store.RecentMessages(context.Background(), s.room, h.historyLimit)
	if err != nil {
		logger.Error("Error loading history for room %s: %v", s.room, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	s.deliverEvent(models.EventMessageHistory, messages)
}

// Leave unregisters the session and refreshes presence for whoever is
// left. Safe to call for a session that never joined.
func (h *Hub) Leave(s *Session) {
	if s.room == "" {
		return
	}

	h.mu.Lock()
	h.registry.Unregister(s.room, s.id)
	h.deliverRoomLocked(s.room, models.EventUserLeft, models.UserNotice{
		Username: s.username,
		Message:  s.username + " left the chat",
	})
	h.deliverRoomLocked(s.room, models.EventUsersList, h.registry.DisplayNames(s.room))
	h.mu.Unlock()

	logger.Info("User %s left room %s", s.username, s.room)
}

// BroadcastRoom delivers the event to every member of the room,
// sender included.
func (h *Hub) BroadcastRoom(roomID, event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverRoomLocked(roomID, event, data)
}

// BroadcastOthers delivers the event to every member except connID.
func (h *Hub) BroadcastOthers(roomID, connID, event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverOthersLocked(roomID, connID, event, data)
}

func (h *Hub) deliverRoomLocked(roomID, event string, data interface{}) {
	h.deliverOthersLocked(roomID, "", event, data)
}

func (h *Hub) deliverOthersLocked(roomID, exceptConnID, event string, data interface{}) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("Error marshaling %q event: %v", event, err)
		return
	}

	for _, entry := range h.registry.Snapshot(roomID) {
		if entry.ConnID == exceptConnID {
			continue
		}
		entry.Recv.Deliver(payload)
	}
}
