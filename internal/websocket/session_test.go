package websocket

import (
	"sort"
	"testing"

	"roomchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinDeliversRosterAndHistoryToJoiner(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	s := NewSession(hub, nil)
	s.dispatch(mustFrame(t, models.EventJoinRoom, models.JoinRoomPayload{RoomID: "r1", Username: "alice"}))

	events := drainEvents(t, s)
	assert.Equal(t, []string{models.EventUsersList, models.EventMessageHistory}, eventNames(events))

	var roster []string
	decodeData(t, events[0], &roster)
	assert.Equal(t, []string{"alice"}, roster)

	var history []*models.Message
	decodeData(t, events[1], &history)
	assert.Empty(t, history)
}

func TestJoinNotifiesOthersButNotJoiner(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	bob := NewSession(hub, nil)
	bob.dispatch(mustFrame(t, models.EventJoinRoom, models.JoinRoomPayload{RoomID: "r1", Username: "bob"}))

	aliceEvents := drainEvents(t, alice)
	joined, ok := findEvent(aliceEvents, models.EventUserJoined)
	require.True(t, ok, "alice should see bob join")
	var notice models.UserNotice
	decodeData(t, joined, &notice)
	assert.Equal(t, "bob", notice.Username)
	assert.Equal(t, "bob joined the chat", notice.Message)

	roster, ok := findEvent(aliceEvents, models.EventUsersList)
	require.True(t, ok)
	var names []string
	decodeData(t, roster, &names)
	assert.Equal(t, []string{"alice", "bob"}, names)

	bobEvents := drainEvents(t, bob)
	_, sawOwnJoin := findEvent(bobEvents, models.EventUserJoined)
	assert.False(t, sawOwnJoin, "joiner must not receive its own join notice")
}

func TestEventsBeforeJoinAreIgnored(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	s := NewSession(hub, nil)
	s.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Message: "hi"}))
	s.dispatch(mustFrame(t, models.EventTyping, models.TypingPayload{IsTyping: true}))
	s.dispatch(mustFrame(t, models.EventDeleteMessage, models.DeleteMessagePayload{MessageID: "x"}))

	assert.Empty(t, drainEvents(t, s))
	assert.Empty(t, store.storedMessages("r1"))
}

func TestJoinWithoutRoomOrNameIgnored(t *testing.T) {
	hub := newTestHub(newFakeGateway())

	s := NewSession(hub, nil)
	s.dispatch(mustFrame(t, models.EventJoinRoom, models.JoinRoomPayload{RoomID: "r1"}))
	s.dispatch(mustFrame(t, models.EventJoinRoom, models.JoinRoomPayload{Username: "alice"}))

	assert.Empty(t, drainEvents(t, s))
	assert.False(t, s.joined())
}

func TestChatMessageReachesWholeRoomOnce(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	bob := joinedSession(t, hub, "r1", "bob")
	drainEvents(t, alice) // bob's join notifications
	outsider := joinedSession(t, hub, "r2", "carol")

	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Message: "hi", Type: models.KindText}))
	store.awaitInsert(t)

	for _, s := range []*Session{alice, bob} {
		events := drainEvents(t, s)
		assert.Equal(t, 1, countEvents(events, models.EventChatMessage))
		env, _ := findEvent(events, models.EventChatMessage)
		var msg models.Message
		decodeData(t, env, &msg)
		assert.Equal(t, "alice", msg.Username)
		assert.Equal(t, "hi", msg.Body)
		assert.Equal(t, models.KindText, msg.Kind)
		assert.NotEmpty(t, msg.ID)
	}

	assert.Empty(t, drainEvents(t, outsider), "other rooms must not hear the message")
	assert.Len(t, store.storedMessages("r1"), 1)
}

func TestChatMessageWithoutContentDropped(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Type: models.KindText}))

	assert.Empty(t, drainEvents(t, alice))
	assert.Empty(t, store.storedMessages("r1"))
}

func TestMediaMessageWithoutBodyAccepted(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{
		Type:     models.KindImage,
		FileURL:  "/uploads/x.png",
		FileName: "x.png",
	}))
	stored := store.awaitInsert(t)

	assert.Equal(t, models.KindImage, stored.Kind)
	assert.Equal(t, "/uploads/x.png", stored.FileURL)

	events := drainEvents(t, alice)
	assert.Equal(t, 1, countEvents(events, models.EventChatMessage))
}

func TestUnknownKindNormalizedToText(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Message: "hi", Type: "sticker"}))
	stored := store.awaitInsert(t)

	assert.Equal(t, models.KindText, stored.Kind)
}

func TestTypingRelayExcludesSender(t *testing.T) {
	hub := newTestHub(newFakeGateway())

	alice := joinedSession(t, hub, "r1", "alice")
	bob := joinedSession(t, hub, "r1", "bob")
	drainEvents(t, alice)

	alice.dispatch(mustFrame(t, models.EventTyping, models.TypingPayload{IsTyping: true}))

	assert.Empty(t, drainEvents(t, alice), "typing must never echo to the sender")

	bobEvents := drainEvents(t, bob)
	env, ok := findEvent(bobEvents, models.EventTyping)
	require.True(t, ok)
	var notice models.TypingNotice
	decodeData(t, env, &notice)
	assert.Equal(t, "alice", notice.Username)
	assert.True(t, notice.IsTyping)
}

func TestDeleteByAuthorRemovesAndBroadcasts(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	bob := joinedSession(t, hub, "r1", "bob")
	drainEvents(t, alice)

	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Message: "hi"}))
	stored := store.awaitInsert(t)
	drainEvents(t, alice)
	drainEvents(t, bob)

	alice.dispatch(mustFrame(t, models.EventDeleteMessage, models.DeleteMessagePayload{MessageID: stored.ID}))

	for _, s := range []*Session{alice, bob} {
		events := drainEvents(t, s)
		env, ok := findEvent(events, models.EventMessageDeleted)
		require.True(t, ok)
		var notice models.MessageDeletedNotice
		decodeData(t, env, &notice)
		assert.Equal(t, stored.ID, notice.MessageID)
		assert.Equal(t, "alice", notice.DeletedBy)
	}
	assert.Empty(t, store.storedMessages("r1"))
}

func TestDeleteByNonAuthorIsSilentNoop(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	bob := joinedSession(t, hub, "r1", "bob")
	drainEvents(t, alice)

	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Message: "hi"}))
	stored := store.awaitInsert(t)
	drainEvents(t, alice)
	drainEvents(t, bob)

	bob.dispatch(mustFrame(t, models.EventDeleteMessage, models.DeleteMessagePayload{MessageID: stored.ID}))

	assert.Empty(t, drainEvents(t, alice))
	assert.Empty(t, drainEvents(t, bob))
	assert.Len(t, store.storedMessages("r1"), 1)
}

func TestDeleteIsScopedToCurrentRoom(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Message: "hi"}))
	stored := store.awaitInsert(t)
	drainEvents(t, alice)

	// Same display name, different room: the id must not resolve there.
	intruder := joinedSession(t, hub, "r2", "alice")
	intruder.dispatch(mustFrame(t, models.EventDeleteMessage, models.DeleteMessagePayload{MessageID: stored.ID}))

	assert.Empty(t, drainEvents(t, intruder))
	assert.Len(t, store.storedMessages("r1"), 1)
}

func TestDeleteUnknownIDIsNoop(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	alice.dispatch(mustFrame(t, models.EventDeleteMessage, models.DeleteMessagePayload{MessageID: "missing"}))

	assert.Empty(t, drainEvents(t, alice))
}

func TestSecondJoinSwitchesRooms(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	bob := joinedSession(t, hub, "r1", "bob")
	drainEvents(t, alice)

	bob.dispatch(mustFrame(t, models.EventJoinRoom, models.JoinRoomPayload{RoomID: "r2", Username: "bob"}))

	aliceEvents := drainEvents(t, alice)
	left, ok := findEvent(aliceEvents, models.EventUserLeft)
	require.True(t, ok, "old room must see the implicit leave")
	var notice models.UserNotice
	decodeData(t, left, &notice)
	assert.Equal(t, "bob", notice.Username)

	roster, ok := findEvent(aliceEvents, models.EventUsersList)
	require.True(t, ok)
	var names []string
	decodeData(t, roster, &names)
	assert.Equal(t, []string{"alice"}, names)

	assert.Equal(t, "r2", bob.room)
	bobEvents := drainEvents(t, bob)
	newRoster, ok := findEvent(bobEvents, models.EventUsersList)
	require.True(t, ok)
	decodeData(t, newRoster, &names)
	assert.Equal(t, []string{"bob"}, names)
}

func TestDisconnectLeavesRoomExactlyOnce(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	bob := joinedSession(t, hub, "r1", "bob")
	drainEvents(t, alice)

	bob.teardown()

	aliceEvents := drainEvents(t, alice)
	assert.Equal(t, 1, countEvents(aliceEvents, models.EventUserLeft))
	assert.Equal(t, 1, countEvents(aliceEvents, models.EventUsersList))

	var names []string
	roster, _ := findEvent(aliceEvents, models.EventUsersList)
	decodeData(t, roster, &names)
	assert.Equal(t, []string{"alice"}, names)
}

func TestDisconnectedSessionMissesBroadcasts(t *testing.T) {
	store := newFakeGateway()
	hub := newTestHub(store)

	alice := joinedSession(t, hub, "r1", "alice")
	bob := joinedSession(t, hub, "r1", "bob")
	drainEvents(t, alice)
	bob.teardown()
	drainEvents(t, alice)
	drainEvents(t, bob)

	alice.dispatch(mustFrame(t, models.EventChatMessage, models.ChatMessagePayload{Message: "hi"}))
	store.awaitInsert(t)

	assert.Equal(t, 1, countEvents(drainEvents(t, alice), models.EventChatMessage))
	assert.Empty(t, drainEvents(t, bob))
}

func TestMessageIDsUniqueAndOrdered(t *testing.T) {
	ids := make([]string, 100)
	seen := make(map[string]bool, len(ids))
	for i := range ids {
		ids[i] = newMessageID()
		assert.False(t, seen[ids[i]], "duplicate message id %s", ids[i])
		seen[ids[i]] = true
	}
	assert.True(t, sort.StringsAreSorted(ids), "ids must sort in mint order")
}
