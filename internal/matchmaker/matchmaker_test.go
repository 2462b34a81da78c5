package matchmaker

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"PairLink/internal/room"
	ws "PairLink/internal/websocket"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// MockHub records every message per connection id, in emit order.
type MockHub struct {
	mu   sync.Mutex
	msgs map[string][]ws.OutgoingMessage
}

func NewMockHub() *MockHub {
	return &MockHub{msgs: make(map[string][]ws.OutgoingMessage)}
}

func (m *MockHub) SendToClient(id string, msg ws.OutgoingMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs[id] = append(m.msgs[id], msg)
}

func (m *MockHub) BroadcastToClients(ids []string, msg ws.OutgoingMessage) {
	for _, id := range ids {
		m.SendToClient(id, msg)
	}
}

func (m *MockHub) Msgs(id string) []ws.OutgoingMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ws.OutgoingMessage, len(m.msgs[id]))
	copy(out, m.msgs[id])
	return out
}

func (m *MockHub) LastEvent(id string) string {
	msgs := m.Msgs(id)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Event
}

// roomIDFor digs the roomId out of the latest begin-negotiation sent to id.
func (m *MockHub) roomIDFor(id string) string {
	var roomID string
	for _, msg := range m.Msgs(id) {
		if msg.Event == ws.EventBeginNegotiation {
			if p, ok := msg.Data.(ws.BeginNegotiationPayload); ok {
				roomID = p.RoomID
			}
		}
	}
	return roomID
}

func newTestService(q Queue) (*Service, *MockHub) {
	hub := NewMockHub()
	rooms := room.NewRegistry(hub)
	return NewService(q, rooms, hub, nil), hub
}

func Test_ConnectPairsOldestTwo(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())

	svc.Connect(ctx, "A", "alice")
	assert.Equal(t, ws.EventLobby, hub.LastEvent("A"))
	assert.Equal(t, int64(1), svc.QueueLen(ctx))

	svc.Connect(ctx, "B", "bob")

	// both members got the same begin-negotiation
	assert.Equal(t, ws.EventBeginNegotiation, hub.LastEvent("A"))
	assert.Equal(t, ws.EventBeginNegotiation, hub.LastEvent("B"))
	assert.NotEmpty(t, hub.roomIDFor("A"))
	assert.Equal(t, hub.roomIDFor("A"), hub.roomIDFor("B"))
	assert.Equal(t, int64(0), svc.QueueLen(ctx))
	assert.Equal(t, 1, svc.RoomCount())

	// a third participant stays in the lobby
	svc.Connect(ctx, "C", "carol")
	assert.Equal(t, ws.EventLobby, hub.LastEvent("C"))
	assert.Equal(t, int64(1), svc.QueueLen(ctx))
	assert.Equal(t, 1, svc.RoomCount())
}

func Test_PairingDrainsQueue(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(NewMemoryQueue())

	ids := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	for _, id := range ids {
		svc.Connect(ctx, id, "user-"+id)
	}

	// 7 connects settle into 3 rooms plus one leftover
	assert.Equal(t, 3, svc.RoomCount())
	assert.Equal(t, int64(1), svc.QueueLen(ctx))
}

func Test_DisconnectRequeuesPartner(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")
	firstRoom := hub.roomIDFor("B")

	svc.Disconnect(ctx, "A")
	assert.Equal(t, ws.EventReturnToLobby, hub.LastEvent("B"))
	assert.Equal(t, 0, svc.RoomCount())
	assert.Equal(t, int64(1), svc.QueueLen(ctx))

	// the next connect pairs the survivor into a fresh room
	svc.Connect(ctx, "C", "carol")
	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, ws.EventBeginNegotiation, hub.LastEvent("C"))
	assert.NotEqual(t, firstRoom, hub.roomIDFor("C"))
}

func Test_DisconnectIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(NewMemoryQueue())

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")

	svc.Disconnect(ctx, "A")
	queueAfterFirst := svc.QueueLen(ctx)
	roomsAfterFirst := svc.RoomCount()

	// racing double-disconnect must not change the end state
	svc.Disconnect(ctx, "A")
	assert.Equal(t, queueAfterFirst, svc.QueueLen(ctx))
	assert.Equal(t, roomsAfterFirst, svc.RoomCount())

	// an id that never connected is a no-op too
	svc.Disconnect(ctx, "ghost")
	assert.Equal(t, queueAfterFirst, svc.QueueLen(ctx))
}

func Test_SkipRequeuesBothInOrder(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")
	firstRoom := hub.roomIDFor("A")

	// with only these two waiting, skip re-pairs them into a fresh room
	svc.Skip(ctx, "B")
	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, int64(0), svc.QueueLen(ctx))
	assert.Equal(t, ws.EventBeginNegotiation, hub.LastEvent("A"))
	assert.NotEqual(t, firstRoom, hub.roomIDFor("A"))

	// skip outside a room only re-runs the pairing pass
	svc.Connect(ctx, "C", "carol")
	svc.Skip(ctx, "C")
	assert.Equal(t, int64(1), svc.QueueLen(ctx))
}

func Test_VanishedIDVoidsPair(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	svc, _ := newTestService(q)

	// a queue entry whose participant never registered simulates the
	// disconnect-between-queue-and-dequeue race
	_ = q.Enqueue(ctx, "ghost")
	svc.Connect(ctx, "A", "alice")

	// the pair is dropped whole; the survivor is not re-inserted here
	assert.Equal(t, 0, svc.RoomCount())
	assert.Equal(t, int64(0), svc.QueueLen(ctx))
}

func Test_RoomIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())

	seen := make(map[string]bool)
	prev := 0
	for i := 0; i < 5; i++ {
		svc.Connect(ctx, "A", "alice")
		svc.Connect(ctx, "B", "bob")
		id := hub.roomIDFor("A")
		assert.False(t, seen[id], "room id %s reused", id)
		seen[id] = true
		n, err := strconv.Atoi(id)
		assert.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n

		svc.Disconnect(ctx, "A")
		svc.Disconnect(ctx, "B")
		hub.mu.Lock()
		hub.msgs = make(map[string][]ws.OutgoingMessage)
		hub.mu.Unlock()
	}
}

func Test_RelayReachesOnlyPartner(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")
	roomID := hub.roomIDFor("A")

	svc.RelayOffer(roomID, "A", "sdp-offer-x")
	msgs := hub.Msgs("B")
	last := msgs[len(msgs)-1]
	assert.Equal(t, ws.EventOffer, last.Event)
	assert.Equal(t, ws.SignalPayload{RoomID: roomID, SDP: "sdp-offer-x"}, last.Data)

	svc.RelayCandidate(roomID, "B", json.RawMessage(`{"candidate":"c1"}`), "sender")
	msgs = hub.Msgs("A")
	last = msgs[len(msgs)-1]
	assert.Equal(t, ws.EventIceCandidate, last.Event)
	cand := last.Data.(ws.CandidatePayload)
	assert.Equal(t, "sender", cand.Role)
	assert.JSONEq(t, `{"candidate":"c1"}`, string(cand.Candidate))

	// relays into a dissolved room disappear without a trace
	svc.Skip(ctx, "A")
	before := len(hub.Msgs("B"))
	svc.RelayOffer(roomID, "A", "stale")
	assert.Len(t, hub.Msgs("B"), before)
}

func Test_ChatReachesOnlyPartner(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")
	roomID := hub.roomIDFor("A")

	aBefore := len(hub.Msgs("A"))
	svc.SendChat(roomID, "A", "hi there")

	msgs := hub.Msgs("B")
	last := msgs[len(msgs)-1]
	assert.Equal(t, ws.EventChatMessage, last.Event)
	assert.Equal(t, ws.ChatRelayPayload{RoomID: roomID, Sender: "alice", Content: "hi there"}, last.Data)
	// no echo back to the sender
	assert.Len(t, hub.Msgs("A"), aBefore)
}

// ---------- assistant ----------

// stubAssistant records gateway traffic and answers with markdown so the
// formatting step is visible in the relayed payload.
type stubAssistant struct {
	mu        sync.Mutex
	asked     []string
	forgotten []string
}

func (s *stubAssistant) Ask(ctx context.Context, userID, question string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = append(s.asked, userID+":"+question)
	return "## Tip\nUse **STUN** first, *then* TURN."
}

func (s *stubAssistant) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, userID)
}

func Test_AssistantAnswersOnlyAsker(t *testing.T) {
	ctx := context.Background()
	gw := &stubAssistant{}
	hub := NewMockHub()
	svc := NewService(NewMemoryQueue(), room.NewRegistry(hub), hub, gw)

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")
	roomID := hub.roomIDFor("A")
	bBefore := len(hub.Msgs("B"))

	svc.AskAssistant(roomID, "A", "how do I connect?")

	// the answer arrives async on the gateway goroutine
	assert.Eventually(t, func() bool {
		return hub.LastEvent("A") == ws.EventAssistantAnswer
	}, time.Second, 5*time.Millisecond)

	msgs := hub.Msgs("A")
	last := msgs[len(msgs)-1]
	assert.Equal(t, ws.AssistantAnswerPayload{
		Question: "how do I connect?",
		Answer:   "Tip\nUse STUN first, then TURN.",
	}, last.Data)
	// the partner never sees the exchange
	assert.Len(t, hub.Msgs("B"), bBefore)

	// non-members and wrong rooms never reach the gateway
	svc.AskAssistant(roomID, "ghost", "let me in")
	svc.AskAssistant("999", "A", "wrong room")
	gw.mu.Lock()
	assert.Equal(t, []string{"A:how do I connect?"}, gw.asked)
	gw.mu.Unlock()

	// disconnect drops the per-connection conversation history
	svc.Disconnect(ctx, "A")
	gw.mu.Lock()
	assert.Equal(t, []string{"A"}, gw.forgotten)
	gw.mu.Unlock()
}

// ---------- redis-backed queue (miniredis) ----------

func newRedisTestQueue(t *testing.T) Queue {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisQueue(rdb)
}

func Test_RedisQueue_MatchFlow(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(newRedisTestQueue(t))

	svc.Connect(ctx, "A", "alice")
	assert.Equal(t, int64(1), svc.QueueLen(ctx))

	svc.Connect(ctx, "B", "bob")
	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, int64(0), svc.QueueLen(ctx))
	assert.Equal(t, hub.roomIDFor("A"), hub.roomIDFor("B"))

	svc.Disconnect(ctx, "A")
	assert.Equal(t, 0, svc.RoomCount())
	assert.Equal(t, int64(1), svc.QueueLen(ctx))

	svc.Connect(ctx, "C", "carol")
	assert.Equal(t, 1, svc.RoomCount())
	assert.Equal(t, int64(0), svc.QueueLen(ctx))
}

func Test_RedisQueue_FIFOOrder(t *testing.T) {
	ctx := context.Background()
	q := newRedisTestQueue(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		assert.NoError(t, q.Enqueue(ctx, id))
	}
	assert.NoError(t, q.Remove(ctx, "b"))

	ids, ok, err := q.PopPair(ctx)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, ids)

	// only one left
	_, ok, err = q.PopPair(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
	n, err := q.Count(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// ---------- dispatcher ----------

func Test_HandlerRejectsMalformedPayloads(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())
	h := NewEventHandler(svc)

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")
	bBefore := len(hub.Msgs("B"))

	// not JSON at all
	h.Handle(ws.IncomingMessage{From: "A", Event: ws.EventOffer, Data: json.RawMessage(`{broken`)})
	// missing required fields
	h.Handle(ws.IncomingMessage{From: "A", Event: ws.EventOffer, Data: json.RawMessage(`{"roomId":"1"}`)})
	// bad role tag
	h.Handle(ws.IncomingMessage{From: "A", Event: ws.EventIceCandidate,
		Data: json.RawMessage(`{"roomId":"1","candidate":"c","role":"pilot"}`)})
	// unknown event name
	h.Handle(ws.IncomingMessage{From: "A", Event: "teleport", Data: json.RawMessage(`{}`)})

	assert.Len(t, hub.Msgs("B"), bBefore)
	assert.Equal(t, 1, svc.RoomCount())
}

func Test_HandlerDispatchesSkip(t *testing.T) {
	ctx := context.Background()
	svc, hub := newTestService(NewMemoryQueue())
	h := NewEventHandler(svc)

	svc.Connect(ctx, "A", "alice")
	svc.Connect(ctx, "B", "bob")
	roomID := hub.roomIDFor("A")

	h.Handle(ws.IncomingMessage{From: "A", Event: ws.EventSkip})
	assert.NotEqual(t, roomID, hub.roomIDFor("A"))

	sdp := `{"roomId":"` + hub.roomIDFor("A") + `","sdp":"x"}`
	h.Handle(ws.IncomingMessage{From: "A", Event: ws.EventOffer, Data: json.RawMessage(sdp)})
	assert.Equal(t, ws.EventOffer, hub.LastEvent("B"))
}
