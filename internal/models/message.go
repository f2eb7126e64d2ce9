package models

import "time"

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
	KindAudio MessageKind = "audio"
	KindVoice MessageKind = "voice"
	KindFile  MessageKind = "file"
)

// Normalize maps unknown or empty kinds to text, matching the stored
// column default.
func (k MessageKind) Normalize() MessageKind {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio, KindVoice, KindFile:
		return k
	default:
		return KindText
	}
}

type Message struct {
	ID        string      `json:"id"`
	RoomID    string      `json:"room_id"`
	Username  string      `json:"username"`
	Body      string      `json:"message"`
	Kind      MessageKind `json:"message_type"`
	FileURL   string      `json:"file_url,omitempty"`
	FileName  string      `json:"file_name,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// HasContent reports whether the message carries anything worth storing:
// messages with neither body text nor an attachment are dropped.
func (m *Message) HasContent() bool {
	return m.Body != "" || m.FileURL != ""
}
