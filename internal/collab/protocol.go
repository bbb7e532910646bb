package collab

import (
	"encoding/json"

	"github.com/inkboard/inkboard/internal/presence"
	"github.com/inkboard/inkboard/internal/shape"
)

type Message struct {
	Type     string          `json:"type"`
	BoardID  string          `json:"boardId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Origin   string          `json:"origin,omitempty"` // server instance that relayed it
	Payload  json.RawMessage `json:"payload"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Document sync
	TypeDocSync     = "doc.sync"
	TypeShapeSet    = "shape.set"
	TypeShapeDelete = "shape.delete"

	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceLeave  = "presence.leave"

	TypeAgentRequest  = "agent.request"
	TypeAgentResponse = "agent.response"
)

type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	BoardID     string `json:"boardId"`
}

type DocSyncPayload struct {
	Shapes []shape.Record `json:"shapes"`
}

// ShapeSetPayload carries whole records. The receiver overwrites what it has.
type ShapeSetPayload struct {
	Shapes []shape.Record `json:"shapes"`
}

type ShapeDeletePayload struct {
	IDs []string `json:"ids"`
}

// PresenceStatePayload maps connection ids to their last published record.
type PresenceStatePayload struct {
	Presences map[string]presence.Record `json:"presences"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

const (
	CodeBadMessage   = "bad_message"
	CodeUnknownType  = "unknown_type"
	CodeAgentBusy    = "agent_busy"
	CodeRateLimited  = "rate_limited"
	CodeAgentOffline = "agent_unavailable"
)

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
