package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/pkg/logger"
)

// restHistoryLimit caps the REST fallback; the websocket join path uses
// its own, smaller limit.
const restHistoryLimit = 100

type HistoryHandlers struct {
	store database.Gateway
}

func NewHistoryHandlers(store database.Gateway) *HistoryHandlers {
	return &HistoryHandlers{store: store}
}

// RoomRoutes serves GET /api/room/{roomId} (room record) and
// GET /api/room/{roomId}/messages (the history fallback for clients
// without a live websocket).
func (h *HistoryHandlers) RoomRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 4 && parts[3] != "":
		h.roomInfo(w, r, parts[3])
	case len(parts) == 5 && parts[3] != "" && parts[4] == "messages":
		h.roomMessages(w, r, parts[3])
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *HistoryHandlers) roomInfo(w http.ResponseWriter, r *http.Request, roomID string) {
	room, err := h.store.Room(r.Context(), roomID)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("Error fetching room %s: %v", roomID, err)
		http.Error(w, "Failed to fetch room", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(room)
}

func (h *HistoryHandlers) roomMessages(w http.ResponseWriter, r *http.Request, roomID string) {
	messages, err := h.store.RecentMessages(r.Context(), roomID, restHistoryLimit)
	if err != nil {
		logger.Error("Error fetching messages for room %s: %v", roomID, err)
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
