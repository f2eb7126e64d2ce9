package models

import "time"

// Room is an opaque URL token with a stored history. Rooms are created
// lazily on first join and never deleted.
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
