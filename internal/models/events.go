package models

import "encoding/json"

// Event names shared by client and server. One JSON envelope per
// websocket text frame.
const (
	EventJoinRoom      = "join room"
	EventChatMessage   = "chat message"
	EventTyping        = "typing"
	EventDeleteMessage = "delete message"

	EventMessageHistory = "message history"
	EventUserJoined     = "user joined"
	EventUserLeft       = "user left"
	EventUsersList      = "users list"
	EventMessageDeleted = "message deleted"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client -> server payloads.

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type ChatMessagePayload struct {
	Message  string      `json:"message"`
	Type     MessageKind `json:"type"`
	FileURL  string      `json:"fileUrl,omitempty"`
	FileName string      `json:"fileName,omitempty"`
}

type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

// Server -> client payloads.

// UserNotice announces a join or leave to the rest of the room.
type UserNotice struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type TypingNotice struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type MessageDeletedNotice struct {
	MessageID string `json:"messageId"`
	DeletedBy string `json:"deletedBy"`
}
