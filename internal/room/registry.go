package room

import (
	"encoding/json"
	"strconv"
	"time"

	ws "PairLink/internal/websocket"
)

type Broadcaster interface {
	SendToClient(id string, msg ws.OutgoingMessage)
	BroadcastToClients(ids []string, msg ws.OutgoingMessage)
}

// Registry owns all active rooms and the room-id counter. It does no locking
// of its own: every call happens under the matchmaker's serialization lock,
// which is the single mutation point for pairing state.
type Registry struct {
	rooms  map[string]*Room
	nextID int64
	hub    Broadcaster
}

func NewRegistry(hub Broadcaster) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		hub:   hub,
	}
}

// Create allocates the next room id and tells both members to begin
// negotiation. Both sides receive the same signal; whichever produces an
// offer first becomes the effective offerer, the relay does not break the tie.
// Ids come from a counter that only grows, so a dissolved room's id is never
// seen again.
func (r *Registry) Create(a, b Member) string {
	r.nextID++
	id := strconv.FormatInt(r.nextID, 10)
	r.rooms[id] = &Room{ID: id, A: a, B: b, CreatedAt: time.Now()}

	r.hub.BroadcastToClients([]string{a.ID, b.ID}, ws.OutgoingMessage{
		Event: ws.EventBeginNegotiation,
		Data:  ws.BeginNegotiationPayload{RoomID: id},
	})
	return id
}

// RelaySDP forwards an opaque offer or answer to the other member.
// An unknown room or a sender that is not a member is a disconnect race,
// dropped silently.
func (r *Registry) RelaySDP(roomID, senderID, event, sdp string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	other, ok := rm.Other(senderID)
	if !ok {
		return
	}
	r.hub.SendToClient(other.ID, ws.OutgoingMessage{
		Event: event,
		Data:  ws.SignalPayload{RoomID: roomID, SDP: sdp},
	})
}

// RelayCandidate forwards an opaque ICE candidate with its role tag.
func (r *Registry) RelayCandidate(roomID, senderID string, candidate json.RawMessage, role string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	other, ok := rm.Other(senderID)
	if !ok {
		return
	}
	r.hub.SendToClient(other.ID, ws.OutgoingMessage{
		Event: ws.EventIceCandidate,
		Data:  ws.CandidatePayload{RoomID: roomID, Candidate: candidate, Role: role},
	})
}

// SendChat appends to the room's message log and emits to the other member
// only; the sender's own UI echoes locally.
func (r *Registry) SendChat(roomID, senderID, content string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	sender, ok := rm.member(senderID)
	if !ok {
		return
	}
	other, _ := rm.Other(senderID)

	rm.Log = append(rm.Log, ChatMessage{Sender: sender.Name, Content: content})
	r.hub.SendToClient(other.ID, ws.OutgoingMessage{
		Event: ws.EventChatMessage,
		Data:  ws.ChatRelayPayload{RoomID: roomID, Sender: sender.Name, Content: content},
	})
}

// NotifyPresence emits a screen-share start/stop notification to the other
// member. Stateless, never logged.
func (r *Registry) NotifyPresence(roomID, senderID, kind string) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	other, ok := rm.Other(senderID)
	if !ok {
		return
	}
	r.hub.SendToClient(other.ID, ws.OutgoingMessage{
		Event: ws.EventPresence,
		Data:  ws.PresenceRelayPayload{Kind: kind},
	})
}

// Dissolve removes the room, sends both members back to the lobby state and
// returns them for re-queueing. Safe to call twice for the same id; the
// second call reports absent.
func (r *Registry) Dissolve(roomID string) (Member, Member, bool) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return Member{}, Member{}, false
	}
	delete(r.rooms, roomID)

	r.hub.BroadcastToClients([]string{rm.A.ID, rm.B.ID}, ws.OutgoingMessage{
		Event: ws.EventReturnToLobby,
	})
	return rm.A, rm.B, true
}

// FindByMember reports the room holding id, if any. Linear scan; a
// participant is in at most one room.
func (r *Registry) FindByMember(id string) (string, bool) {
	for roomID, rm := range r.rooms {
		if rm.A.ID == id || rm.B.ID == id {
			return roomID, true
		}
	}
	return "", false
}

// HasMember reports whether id is a member of roomID.
func (r *Registry) HasMember(roomID, id string) bool {
	rm, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = rm.member(id)
	return ok
}

// Count returns the number of active rooms.
func (r *Registry) Count() int {
	return len(r.rooms)
}

// MessageLog returns a copy of the room's chat log, for inspection.
func (r *Registry) MessageLog(roomID string) []ChatMessage {
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]ChatMessage, len(rm.Log))
	copy(out, rm.Log)
	return out
}
