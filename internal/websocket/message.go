package websocket

import "encoding/json"

// Wire protocol. Every frame is an envelope {event, data}; data is decoded
// per event into one of the typed payloads below before dispatch.
const (
	// inbound
	EventDisconnect       = "disconnect"
	EventSkip             = "skip"
	EventOffer            = "offer"
	EventAnswer           = "answer"
	EventIceCandidate     = "ice-candidate"
	EventChatMessage      = "chat-message"
	EventAssistantQuery   = "assistant-query"
	EventScreenShareStart = "screen-share-start"
	EventScreenShareStop  = "screen-share-stop"

	// outbound
	EventLobby            = "lobby"
	EventBeginNegotiation = "begin-negotiation"
	EventAssistantAnswer  = "assistant-answer"
	EventPresence         = "presence-event"
	EventReturnToLobby    = "return-to-lobby"
)

type OutgoingMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type IncomingMessage struct {
	From  string          `json:"-"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SignalPayload carries an opaque SDP for offer and answer events.
type SignalPayload struct {
	RoomID string `json:"roomId" validate:"required"`
	SDP    string `json:"sdp" validate:"required"`
}

// CandidatePayload carries an opaque ICE candidate. Role tells the receiving
// side which local peer-connection leg the candidate belongs to; the relay
// forwards it untouched.
type CandidatePayload struct {
	RoomID    string          `json:"roomId" validate:"required"`
	Candidate json.RawMessage `json:"candidate" validate:"required"`
	Role      string          `json:"role" validate:"required,oneof=sender receiver"`
}

type ChatPayload struct {
	RoomID  string `json:"roomId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type AssistantQueryPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	Question string `json:"question" validate:"required"`
}

type PresencePayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type BeginNegotiationPayload struct {
	RoomID string `json:"roomId"`
}

type ChatRelayPayload struct {
	RoomID  string `json:"roomId"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type AssistantAnswerPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type PresenceRelayPayload struct {
	Kind string `json:"kind"`
}
