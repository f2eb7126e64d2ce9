package database

import (
	"context"
	"errors"

	"roomchat/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

type RoomRepository interface {
	// EnsureRoom creates the room record if it does not exist yet.
	// Idempotent; rooms are never deleted.
	EnsureRoom(ctx context.Context, roomID string) error
	// Room looks up a room record, or ErrNotFound if nobody has
	// joined it yet.
	Room(ctx context.Context, roomID string) (*models.Room, error)
}

type MessageRepository interface {
	// InsertMessage persists a message whose ID and timestamp were
	// already assigned by the caller.
	InsertMessage(ctx context.Context, msg *models.Message) error
	// RecentMessages returns up to limit messages for the room,
	// ordered oldest first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]*models.Message, error)
	// MessageAuthor returns the stored author of a message, scoped to
	// the given room so identifiers cannot be guessed across rooms.
	MessageAuthor(ctx context.Context, messageID, roomID string) (string, error)
	DeleteMessage(ctx context.Context, messageID, roomID string) error
}

// Gateway is the persistence collaborator consumed by the realtime core.
type Gateway interface {
	RoomRepository
	MessageRepository
	Close() error
}

// roomDisplayName derives the stored default name from the room token.
func roomDisplayName(roomID string) string {
	if len(roomID) > 8 {
		roomID = roomID[:8]
	}
	return "Room " + roomID
}
