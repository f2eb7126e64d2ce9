package websocket

import (
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"roomchat/internal/models"

	"github.com/oklog/ulid/v2"
)

// encodeEvent wraps a payload in the wire envelope.
func encodeEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{Event: event, Data: raw})
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newMessageID mints a ULID. Ids are unique and lexicographically ordered
// by creation time, so they double as the per-room sort key; wall-clock
// ids collide under concurrent sends, these do not.
func newMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
