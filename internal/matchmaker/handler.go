package matchmaker

import (
	"context"
	"encoding/json"

	"PairLink/internal/utils"
	ws "PairLink/internal/websocket"

	"github.com/go-playground/validator/v10"
)

// EventHandler decodes inbound envelopes into their typed payloads, validates
// the shape at the boundary and dispatches to the Service. A malformed frame
// is logged and discarded; nothing here may take the relay down.
type EventHandler struct {
	svc      *Service
	validate *validator.Validate
}

func NewEventHandler(svc *Service) *EventHandler {
	return &EventHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *EventHandler) Handle(msg ws.IncomingMessage) {
	ctx := context.Background()

	switch msg.Event {
	case ws.EventDisconnect:
		h.svc.Disconnect(ctx, msg.From)

	case ws.EventSkip:
		h.svc.Skip(ctx, msg.From)

	case ws.EventOffer:
		var p ws.SignalPayload
		if !h.decode(msg, &p) {
			return
		}
		h.svc.RelayOffer(p.RoomID, msg.From, p.SDP)

	case ws.EventAnswer:
		var p ws.SignalPayload
		if !h.decode(msg, &p) {
			return
		}
		h.svc.RelayAnswer(p.RoomID, msg.From, p.SDP)

	case ws.EventIceCandidate:
		var p ws.CandidatePayload
		if !h.decode(msg, &p) {
			return
		}
		h.svc.RelayCandidate(p.RoomID, msg.From, p.Candidate, p.Role)

	case ws.EventChatMessage:
		var p ws.ChatPayload
		if !h.decode(msg, &p) {
			return
		}
		h.svc.SendChat(p.RoomID, msg.From, p.Content)

	case ws.EventAssistantQuery:
		var p ws.AssistantQueryPayload
		if !h.decode(msg, &p) {
			return
		}
		h.svc.AskAssistant(p.RoomID, msg.From, p.Question)

	case ws.EventScreenShareStart, ws.EventScreenShareStop:
		var p ws.PresencePayload
		if !h.decode(msg, &p) {
			return
		}
		h.svc.SharePresence(p.RoomID, msg.From, msg.Event)

	default:
		utils.Error.Printf("unknown event %q from %s", msg.Event, msg.From)
	}
}

func (h *EventHandler) decode(msg ws.IncomingMessage, out any) bool {
	if err := json.Unmarshal(msg.Data, out); err != nil {
		utils.Error.Printf("drop %s from %s: bad payload: %v", msg.Event, msg.From, err)
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		utils.Error.Printf("drop %s from %s: %v", msg.Event, msg.From, err)
		return false
	}
	return true
}
