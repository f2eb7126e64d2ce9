package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"roomchat/internal/database"
	"roomchat/internal/models"
	"roomchat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	sendBufferSize = 256
)

// Session binds one live websocket connection to at most one
// (room, display name) pair. It starts unjoined; room-scoped events
// arriving before a join are dropped without a response.
type Session struct {
	hub  *Hub
	conn *websocket.Conn

	id       string
	room     string
	username string

	send chan []byte
	done chan struct{}
}

func NewSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{
		hub:  hub,
		conn: conn,
		id:   uuid.NewString(),
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Start launches the read and write pumps.
func (s *Session) Start() {
	go s.writePump()
	go s.readPump()
}

// ConnID implements registry.Receiver.
func (s *Session) ConnID() string { return s.id }

// Deliver implements registry.Receiver. It never blocks; events for a
// full buffer or a finished session are dropped.
func (s *Session) Deliver(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) joined() bool { return s.room != "" }

func (s *Session) deliverEvent(event string, data interface{}) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("Error marshaling %q event: %v", event, err)
		return
	}
	s.Deliver(payload)
}

func (s *Session) readPump() {
	defer s.teardown()

	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}
		s.dispatch(data)
	}
}

// teardown runs once when the transport is gone. Disconnect is the
// implicit leave: it is the only way out of the joined state.
func (s *Session) teardown() {
	s.hub.Leave(s)
	if s.conn != nil {
		s.conn.Close()
	}
	close(s.done)
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// dispatch routes one inbound frame. Malformed frames and events that
// need a room binding the session does not have are dropped silently.
func (s *Session) dispatch(raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.Event {
	case models.EventJoinRoom:
		var p models.JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.handleJoin(p)

	case models.EventChatMessage:
		if !s.joined() {
			return
		}
		var p models.ChatMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.handleChat(p)

	case models.EventTyping:
		if !s.joined() {
			return
		}
		var p models.TypingPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.hub.BroadcastOthers(s.room, s.id, models.EventTyping, models.TypingNotice{
			Username: s.username,
			IsTyping: p.IsTyping,
		})

	case models.EventDeleteMessage:
		if !s.joined() {
			return
		}
		var p models.DeleteMessagePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return
		}
		s.handleDelete(p)
	}
}

func (s *Session) handleJoin(p models.JoinRoomPayload) {
	if p.RoomID == "" || p.Username == "" {
		return
	}

	// A second join on a live connection is an implicit room switch.
	if s.joined() {
		s.hub.Leave(s)
	}

	s.room = p.RoomID
	s.username = p.Username
	s.hub.Join(s)
}

func (s *Session) handleChat(p models.ChatMessagePayload) {
	msg := &models.Message{
		ID:        newMessageID(),
		RoomID:    s.room,
		Username:  s.username,
		Body:      p.Message,
		Kind:      p.Type.Normalize(),
		FileURL:   p.FileURL,
		FileName:  p.FileName,
		Timestamp: time.Now().UTC(),
	}
	if !msg.HasContent() {
		return
	}

	// Persist off the delivery path; peers may see a message the store
	// never accepted. Failures surface in the log only.
	go func() {
		if err := s.hub.store.InsertMessage(context.Background(), msg); err != nil {
			logger.Error("Error saving message %s: %v", msg.ID, err)
		}
	}()

	s.hub.BroadcastRoom(s.room, models.EventChatMessage, msg)
}

func (s *Session) handleDelete(p models.DeleteMessagePayload) {
	if p.MessageID == "" {
		return
	}

	ctx := context.Background()
	author, err := s.hub.store.MessageAuthor(ctx, p.MessageID, s.room)
	if err != nil {
		// Unknown id in this room: silent no-op either way.
		if !errors.Is(err, database.ErrNotFound) {
			logger.Error("Error checking message ownership: %v", err)
		}
		return
	}
	if !s.canDelete(author) {
		return
	}

	if err := s.hub.store.DeleteMessage(ctx, p.MessageID, s.room); err != nil {
		logger.Error("Error deleting message %s: %v", p.MessageID, err)
		return
	}

	s.hub.BroadcastRoom(s.room, models.EventMessageDeleted, models.MessageDeletedNotice{
		MessageID: p.MessageID,
		DeletedBy: s.username,
	})
}

// canDelete is the ownership policy in one place. Today a mismatch is a
// silent drop; making it an explicit denial means changing only this
// call site.
func (s *Session) canDelete(author string) bool {
	return author == s.username
}
