package matchmaker

import (
	"context"
	"encoding/json"
	"sync"

	"PairLink/internal/assistant"
	"PairLink/internal/room"
	"PairLink/internal/utils"
	ws "PairLink/internal/websocket"
)

type HubBroadcaster interface {
	SendToClient(id string, msg ws.OutgoingMessage)
}

// AnswerProvider is the external question-answering service. Ask never fails;
// on any gateway problem it returns a fallback answer.
type AnswerProvider interface {
	Ask(ctx context.Context, userID, question string) string
	Forget(userID string)
}

// Service owns the participant registry and the wait queue, and is the single
// serialization point for all pairing state. Every mutation of participants,
// queue and rooms happens under mu; the room registry itself does not lock.
//
// Invariant after every exported call: a connection id sits in exactly one of
// the wait queue, one room's membership, or nowhere.
type Service struct {
	mu        sync.Mutex
	users     map[string]Participant
	queue     Queue
	rooms     *room.Registry
	hub       HubBroadcaster
	assistant AnswerProvider
}

func NewService(queue Queue, rooms *room.Registry, hub HubBroadcaster, gw AnswerProvider) *Service {
	return &Service{
		users:     make(map[string]Participant),
		queue:     queue,
		rooms:     rooms,
		hub:       hub,
		assistant: gw,
	}
}

// Connect registers a fresh participant, parks it in the lobby and runs the
// pairing pass. It cannot fail from the participant's point of view.
func (s *Service) Connect(ctx context.Context, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[id] = Participant{ID: id, Name: name}
	if err := s.queue.Enqueue(ctx, id); err != nil {
		utils.Error.Printf("enqueue %s: %v", id, err)
	}
	s.hub.SendToClient(id, ws.OutgoingMessage{Event: ws.EventLobby})
	s.clearQueue(ctx)
}

// Disconnect is idempotent. If id was in a room, the room dissolves and the
// other member goes back to the tail of the queue; id itself is removed
// everywhere. Unknown ids are a no-op.
func (s *Service) Disconnect(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return
	}

	if roomID, ok := s.rooms.FindByMember(id); ok {
		if a, b, ok := s.rooms.Dissolve(roomID); ok {
			other := a
			if a.ID == id {
				other = b
			}
			if err := s.queue.Enqueue(ctx, other.ID); err != nil {
				utils.Error.Printf("requeue %s: %v", other.ID, err)
			}
		}
	}

	delete(s.users, id)
	// Defensive: id should not be queued while in a room, but a racing event
	// may have left it there.
	if err := s.queue.Remove(ctx, id); err != nil {
		utils.Error.Printf("dequeue %s: %v", id, err)
	}
	if s.assistant != nil {
		s.assistant.Forget(id)
	}
	s.clearQueue(ctx)
}

// Skip dissolves id's room and puts both former members back on the queue
// tail, former member A first. Outside a room it only re-runs the pairing
// pass.
func (s *Service) Skip(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomID, ok := s.rooms.FindByMember(id); ok {
		if a, b, ok := s.rooms.Dissolve(roomID); ok {
			if err := s.queue.Enqueue(ctx, a.ID); err != nil {
				utils.Error.Printf("requeue %s: %v", a.ID, err)
			}
			if err := s.queue.Enqueue(ctx, b.ID); err != nil {
				utils.Error.Printf("requeue %s: %v", b.ID, err)
			}
		}
	}
	s.clearQueue(ctx)
}

// clearQueue is the pairing pass: drain to fewer than two entries before the
// triggering event is considered settled. A dequeued id whose participant is
// gone voids the whole pair; the survivor is never re-inserted here, its own
// disconnect or skip flow owns that.
func (s *Service) clearQueue(ctx context.Context) {
	for {
		n, err := s.queue.Count(ctx)
		if err != nil {
			utils.Error.Printf("queue count: %v", err)
			return
		}
		if n < 2 {
			return
		}
		ids, ok, err := s.queue.PopPair(ctx)
		if err != nil {
			utils.Error.Printf("queue pop: %v", err)
			return
		}
		if !ok {
			return
		}
		p1, ok1 := s.users[ids[0]]
		p2, ok2 := s.users[ids[1]]
		if !ok1 || !ok2 {
			continue
		}
		roomID := s.rooms.Create(
			room.Member{ID: p1.ID, Name: p1.Name},
			room.Member{ID: p2.ID, Name: p2.Name},
		)
		utils.Info.Printf("paired %s + %s into room %s", p1.ID, p2.ID, roomID)
	}
}

// RelayOffer forwards an opaque SDP offer to the sender's partner.
func (s *Service) RelayOffer(roomID, senderID, sdp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms.RelaySDP(roomID, senderID, ws.EventOffer, sdp)
}

// RelayAnswer forwards an opaque SDP answer to the sender's partner.
func (s *Service) RelayAnswer(roomID, senderID, sdp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms.RelaySDP(roomID, senderID, ws.EventAnswer, sdp)
}

// RelayCandidate forwards an opaque ICE candidate, keeping its role tag.
func (s *Service) RelayCandidate(roomID, senderID string, candidate json.RawMessage, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms.RelayCandidate(roomID, senderID, candidate, role)
}

// SendChat relays a chat line to the sender's partner.
func (s *Service) SendChat(roomID, senderID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms.SendChat(roomID, senderID, content)
}

// SharePresence relays a screen-share start/stop notification.
func (s *Service) SharePresence(roomID, senderID, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms.NotifyPresence(roomID, senderID, kind)
}

// AskAssistant forwards a question to the assistant gateway on behalf of
// senderID and routes the answer back to that participant only. The gateway
// call runs off the lock so a slow answer never delays pairing or relaying.
func (s *Service) AskAssistant(roomID, senderID, question string) {
	s.mu.Lock()
	ok := s.rooms.HasMember(roomID, senderID)
	s.mu.Unlock()
	if !ok || s.assistant == nil {
		return
	}

	go func() {
		answer := s.assistant.Ask(context.Background(), senderID, question)
		s.hub.SendToClient(senderID, ws.OutgoingMessage{
			Event: ws.EventAssistantAnswer,
			Data: ws.AssistantAnswerPayload{
				Question: question,
				Answer:   assistant.FormatAnswer(answer),
			},
		})
	}()
}

// snapshot helpers for tests and diagnostics.

func (s *Service) QueueLen(ctx context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _ := s.queue.Count(ctx)
	return n
}

func (s *Service) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.Count()
}
