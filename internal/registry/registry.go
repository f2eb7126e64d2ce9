// Package registry holds the live, in-memory view of who is connected to
// which room. It is the only authority for "present right now"; nothing in
// it is ever persisted.
package registry

import "sync"

// Receiver is the delivery end of a registered connection. Deliver must
// not block; it reports false when the payload was dropped.
type Receiver interface {
	ConnID() string
	Deliver(data []byte) bool
}

type Entry struct {
	ConnID string
	Name   string
	Recv   Receiver
}

// Registry maps room id to its members in insertion order. A connection
// holds at most one entry across all rooms. Instances are independent;
// construct one per server (or per test) and inject it.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string][]Entry
}

func New() *Registry {
	return &Registry{rooms: make(map[string][]Entry)}
}

// Register adds the connection to the room, replacing any entry it holds
// anywhere else. Total function: it cannot fail.
func (r *Registry) Register(roomID, connID, name string, recv Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(connID)
	r.rooms[roomID] = append(r.rooms[roomID], Entry{ConnID: connID, Name: name, Recv: recv})
}

// Unregister removes the connection from the room. Removing an absent
// entry is a no-op.
func (r *Registry) Unregister(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.rooms[roomID]
	for i, e := range entries {
		if e.ConnID == connID {
			r.rooms[roomID] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(r.rooms[roomID]) == 0 {
		delete(r.rooms, roomID)
	}
}

// DisplayNames returns the roster in insertion order. Duplicate names are
// kept: two connections may share a display name.
func (r *Registry) DisplayNames(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.rooms[roomID]
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// Snapshot returns a copy of the room's entries for broadcast fan-out.
func (r *Registry) Snapshot(roomID string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.rooms[roomID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Len reports the number of live members in the room.
func (r *Registry) Len(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

func (r *Registry) removeLocked(connID string) {
	for roomID, entries := range r.rooms {
		for i, e := range entries {
			if e.ConnID == connID {
				r.rooms[roomID] = append(entries[:i], entries[i+1:]...)
				if len(r.rooms[roomID]) == 0 {
					delete(r.rooms, roomID)
				}
				return
			}
		}
	}
}
