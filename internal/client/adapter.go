// Package client implements the protocol adapter a chat client needs to
// stay consistent with the server: it applies server events to a local
// transcript and roster, and owns the two pieces of state the server
// refuses to track, the typing-send debounce and peer typing expiry.
// There is no local echo; the transcript changes only on server events.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"roomchat/internal/models"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by operations on a closed adapter.
var ErrClosed = errors.New("client: connection closed")

const (
	defaultTypingIdle    = 3 * time.Second
	defaultPeerTypingTTL = 5 * time.Second

	sendBufferSize = 256
)

type Adapter struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	closeOnce sync.Once

	mu          sync.RWMutex
	room        string
	username    string
	roster      []string
	transcript  []*models.Message
	typingPeers map[string]*time.Timer

	typingMu     sync.Mutex
	typingActive bool
	typingTimer  *time.Timer

	// TypingIdle is how long after the last Typing call the adapter
	// reports "stopped typing" on the caller's behalf.
	TypingIdle time.Duration
	// PeerTypingTTL is how long a peer stays "typing" without a fresh
	// notice. The server never expires typing state; that is our job.
	PeerTypingTTL time.Duration

	// Callbacks for a UI layer. All optional; invoked from the read
	// loop (or a timer goroutine for typing expiry).
	OnMessage func(msg *models.Message)
	OnHistory func(msgs []*models.Message)
	OnDeleted func(messageID, deletedBy string)
	OnRoster  func(names []string)
	OnTyping  func(username string, isTyping bool)
	OnNotice  func(event string, notice models.UserNotice)
}

func newAdapter() *Adapter {
	return &Adapter{
		send:          make(chan []byte, sendBufferSize),
		done:          make(chan struct{}),
		typingPeers:   make(map[string]*time.Timer),
		TypingIdle:    defaultTypingIdle,
		PeerTypingTTL: defaultPeerTypingTTL,
	}
}

// Dial connects to the server's websocket endpoint and starts the event
// loops. The adapter starts unjoined; call Join next.
func Dial(ctx context.Context, url string) (*Adapter, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	a := newAdapter()
	a.conn = conn
	go a.readLoop()
	go a.writeLoop()
	return a, nil
}

// Join binds the connection to a room. Joining again while connected is
// a room switch; local state is reset and rebuilt from server events.
func (a *Adapter) Join(roomID, username string) error {
	a.mu.Lock()
	a.room = roomID
	a.username = username
	a.roster = nil
	a.transcript = nil
	for name, t := range a.typingPeers {
		t.Stop()
		delete(a.typingPeers, name)
	}
	a.mu.Unlock()

	return a.enqueue(models.EventJoinRoom, models.JoinRoomPayload{RoomID: roomID, Username: username})
}

func (a *Adapter) SendText(text string) error {
	a.StopTyping()
	return a.enqueue(models.EventChatMessage, models.ChatMessagePayload{
		Message: text,
		Type:    models.KindText,
	})
}

// SendFile announces an already-uploaded attachment, optionally with a
// caption. The upload itself goes through the HTTP endpoint first.
func (a *Adapter) SendFile(fileURL, fileName string, kind models.MessageKind, caption string) error {
	return a.enqueue(models.EventChatMessage, models.ChatMessagePayload{
		Message:  caption,
		Type:     kind,
		FileURL:  fileURL,
		FileName: fileName,
	})
}

func (a *Adapter) DeleteMessage(messageID string) error {
	return a.enqueue(models.EventDeleteMessage, models.DeleteMessagePayload{MessageID: messageID})
}

// Typing is called on every local keystroke. Only the first call sends
// isTyping=true; the rest just push the idle deadline out, so the wire
// sees one notice per burst.
func (a *Adapter) Typing() error {
	a.typingMu.Lock()
	defer a.typingMu.Unlock()

	var err error
	if !a.typingActive {
		a.typingActive = true
		err = a.enqueue(models.EventTyping, models.TypingPayload{IsTyping: true})
	}
	if a.typingTimer != nil {
		a.typingTimer.Stop()
	}
	a.typingTimer = time.AfterFunc(a.TypingIdle, func() { a.StopTyping() })
	return err
}

// StopTyping clears the local typing state and notifies the room. A
// no-op when not typing.
func (a *Adapter) StopTyping() error {
	a.typingMu.Lock()
	defer a.typingMu.Unlock()

	if !a.typingActive {
		return nil
	}
	a.typingActive = false
	if a.typingTimer != nil {
		a.typingTimer.Stop()
		a.typingTimer = nil
	}
	return a.enqueue(models.EventTyping, models.TypingPayload{IsTyping: false})
}

// Roster returns the latest server-delivered member list.
func (a *Adapter) Roster() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.roster))
	copy(out, a.roster)
	return out
}

// Transcript returns the messages as the server has shown them to us.
func (a *Adapter) Transcript() []*models.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*models.Message, len(a.transcript))
	copy(out, a.transcript)
	return out
}

// TypingPeers lists peers currently considered typing.
func (a *Adapter) TypingPeers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.typingPeers))
	for name := range a.typingPeers {
		names = append(names, name)
	}
	return names
}

func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		if a.conn != nil {
			a.conn.Close()
		}
	})
	return nil
}

func (a *Adapter) enqueue(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(models.Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}

	select {
	case <-a.done:
		return ErrClosed
	case a.send <- payload:
		return nil
	}
}

func (a *Adapter) readLoop() {
	defer a.Close()
	for {
		_, data, err := a.conn.ReadMessage()
		if err != nil {
			return
		}
		a.handleEvent(data)
	}
}

func (a *Adapter) writeLoop() {
	for {
		select {
		case msg := <-a.send:
			if err := a.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				a.Close()
				return
			}
		case <-a.done:
			return
		}
	}
}

func (a *Adapter) handleEvent(raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.Event {
	case models.EventMessageHistory:
		var msgs []*models.Message
		if err := json.Unmarshal(env.Data, &msgs); err != nil {
			return
		}
		a.mu.Lock()
		a.transcript = msgs
		a.mu.Unlock()
		if a.OnHistory != nil {
			a.OnHistory(msgs)
		}

	case models.EventChatMessage:
		var msg models.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return
		}
		a.mu.Lock()
		a.transcript = append(a.transcript, &msg)
		a.mu.Unlock()
		if a.OnMessage != nil {
			a.OnMessage(&msg)
		}

	case models.EventMessageDeleted:
		var n models.MessageDeletedNotice
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return
		}
		a.mu.Lock()
		kept := a.transcript[:0]
		for _, m := range a.transcript {
			if m.ID != n.MessageID {
				kept = append(kept, m)
			}
		}
		a.transcript = kept
		a.mu.Unlock()
		if a.OnDeleted != nil {
			a.OnDeleted(n.MessageID, n.DeletedBy)
		}

	case models.EventUsersList:
		var names []string
		if err := json.Unmarshal(env.Data, &names); err != nil {
			return
		}
		a.mu.Lock()
		a.roster = names
		a.mu.Unlock()
		if a.OnRoster != nil {
			a.OnRoster(names)
		}

	case models.EventUserJoined, models.EventUserLeft:
		var n models.UserNotice
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return
		}
		if a.OnNotice != nil {
			a.OnNotice(env.Event, n)
		}

	case models.EventTyping:
		var n models.TypingNotice
		if err := json.Unmarshal(env.Data, &n); err != nil {
			return
		}
		a.applyPeerTyping(n)
	}
}

func (a *Adapter) applyPeerTyping(n models.TypingNotice) {
	a.mu.Lock()
	if t, ok := a.typingPeers[n.Username]; ok {
		t.Stop()
		delete(a.typingPeers, n.Username)
	}
	if n.IsTyping {
		name := n.Username
		a.typingPeers[name] = time.AfterFunc(a.PeerTypingTTL, func() {
			a.expirePeerTyping(name)
		})
	}
	a.mu.Unlock()

	if a.OnTyping != nil {
		a.OnTyping(n.Username, n.IsTyping)
	}
}

func (a *Adapter) expirePeerTyping(name string) {
	a.mu.Lock()
	_, ok := a.typingPeers[name]
	if ok {
		delete(a.typingPeers, name)
	}
	a.mu.Unlock()

	if ok && a.OnTyping != nil {
		a.OnTyping(name, false)
	}
}
