package websocket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/internal/registry"
)

// fakeGateway is an in-memory database.Gateway. The inserted channel
// lets tests wait out the fire-and-forget persistence goroutine.
type fakeGateway struct {
	mu       sync.Mutex
	rooms    map[string]bool
	messages []*models.Message
	inserted chan *models.Message
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		rooms:    make(map[string]bool),
		inserted: make(chan *models.Message, 64),
	}
}

func (f *fakeGateway) EnsureRoom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[roomID] = true
	return nil
}

func (f *fakeGateway) Room(ctx context.Context, roomID string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.rooms[roomID] {
		return nil, database.ErrNotFound
	}
	return &models.Room{ID: roomID}, nil
}

func (f *fakeGateway) InsertMessage(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
	f.inserted <- msg
	return nil
}

func (f *fakeGateway) RecentMessages(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Message
	for _, m := range f.messages {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	// same contract as the real gateways: oldest first by id
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeGateway) MessageAuthor(ctx context.Context, messageID, roomID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == messageID && m.RoomID == roomID {
			return m.Username, nil
		}
	}
	return "", database.ErrNotFound
}

func (f *fakeGateway) DeleteMessage(ctx context.Context, messageID, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.ID != messageID || m.RoomID != roomID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) awaitInsert(t *testing.T) *models.Message {
	t.Helper()
	select {
	case msg := <-f.inserted:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message insert")
		return nil
	}
}

func (f *fakeGateway) storedMessages(roomID string) []*models.Message {
	msgs, _ := f.RecentMessages(context.Background(), roomID, 1000)
	return msgs
}

func newTestHub(store database.Gateway) *Hub {
	return NewHub(registry.New(), store, 50)
}

func mustFrame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	frame, err := json.Marshal(models.Envelope{Event: event, Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return frame
}

// joinedSession dispatches a join and discards the events it produced,
// so tests start from a clean outbox.
func joinedSession(t *testing.T, hub *Hub, room, name string) *Session {
	t.Helper()
	s := NewSession(hub, nil)
	s.dispatch(mustFrame(t, models.EventJoinRoom, models.JoinRoomPayload{RoomID: room, Username: name}))
	drainEvents(t, s)
	return s
}

// drainEvents decodes everything currently queued for the session.
func drainEvents(t *testing.T, s *Session) []models.Envelope {
	t.Helper()
	var out []models.Envelope
	for {
		select {
		case raw := <-s.send:
			var env models.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("bad frame on session: %v", err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventNames(envs []models.Envelope) []string {
	names := make([]string, len(envs))
	for i, e := range envs {
		names[i] = e.Event
	}
	return names
}

func findEvent(envs []models.Envelope, event string) (models.Envelope, bool) {
	for _, e := range envs {
		if e.Event == event {
			return e, true
		}
	}
	return models.Envelope{}, false
}

func countEvents(envs []models.Envelope, event string) int {
	n := 0
	for _, e := range envs {
		if e.Event == event {
			n++
		}
	}
	return n
}

func decodeData(t *testing.T, env models.Envelope, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode %q payload: %v", env.Event, err)
	}
}
