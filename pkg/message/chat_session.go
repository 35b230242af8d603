package message

import (
	"github.com/google/uuid"

	"github.com/irctrakz/vwproto/pkg/sdata"
)

// ChatSessionRequestTag covers the three-shape chat-session family: request,
// reply and error all share the tag and are told apart purely by key
// presence ("method", "success" and "error" respectively).
const ChatSessionRequestTag = "ChatSessionRequest"

// ChatSessionRequest asks for membership changes on an existing session.
type ChatSessionRequest struct {
	Method    string
	SessionID uuid.UUID
	AgentID   uuid.UUID
}

// Serialize implements Message.
func (m *ChatSessionRequest) Serialize() sdata.Map {
	return sdata.Map{
		"method":     m.Method,
		"session-id": m.SessionID,
		"agent_id":   m.AgentID,
	}
}

// Deserialize implements Message.
func (m *ChatSessionRequest) Deserialize(env sdata.Map) error {
	const shape = "request"
	method, ok := env.String("method")
	if !ok {
		return missingKey(ChatSessionRequestTag, shape, "method")
	}
	sessionID, ok := env.UUID("session-id")
	if !ok {
		return missingKey(ChatSessionRequestTag, shape, "session-id")
	}
	agentID, ok := env.UUID("agent_id")
	if !ok {
		return missingKey(ChatSessionRequestTag, shape, "agent_id")
	}
	m.Method = method
	m.SessionID = sessionID
	m.AgentID = agentID
	return nil
}

// ChatSessionReply acknowledges a session request.
type ChatSessionReply struct {
	Success   bool
	SessionID uuid.UUID
}

// Serialize implements Message.
func (m *ChatSessionReply) Serialize() sdata.Map {
	return sdata.Map{
		"success":    m.Success,
		"session-id": m.SessionID,
	}
}

// Deserialize implements Message.
func (m *ChatSessionReply) Deserialize(env sdata.Map) error {
	const shape = "reply"
	success, ok := env.Bool("success")
	if !ok {
		return missingKey(ChatSessionRequestTag, shape, "success")
	}
	sessionID, ok := env.UUID("session-id")
	if !ok {
		return missingKey(ChatSessionRequestTag, shape, "session-id")
	}
	m.Success = success
	m.SessionID = sessionID
	return nil
}

// ChatSessionError reports a failed session request.
type ChatSessionError struct {
	Error     string
	SessionID uuid.UUID
}

// Serialize implements Message.
func (m *ChatSessionError) Serialize() sdata.Map {
	return sdata.Map{
		"error":      m.Error,
		"session-id": m.SessionID,
	}
}

// Deserialize implements Message.
func (m *ChatSessionError) Deserialize(env sdata.Map) error {
	const shape = "error"
	reason, ok := env.String("error")
	if !ok {
		return missingKey(ChatSessionRequestTag, shape, "error")
	}
	m.Error = reason
	m.SessionID = uuid.Nil
	if id, ok := env.UUID("session-id"); ok {
		m.SessionID = id
	}
	return nil
}

// chatSessionShapes lists the family's shapes in wire precedence order. The
// error shape is first so an envelope carrying both "error" and "success"
// resolves to the error, matching observed server behavior.
func chatSessionShapes() []Shape {
	return []Shape{
		{
			Name:    "error",
			Keys:    []string{"error"},
			Factory: func() Message { return &ChatSessionError{} },
		},
		{
			Name:    "reply",
			Keys:    []string{"success"},
			Absent:  []string{"error"},
			Factory: func() Message { return &ChatSessionReply{} },
		},
		{
			Name:    "request",
			Keys:    []string{"method"},
			Factory: func() Message { return &ChatSessionRequest{} },
		},
	}
}
