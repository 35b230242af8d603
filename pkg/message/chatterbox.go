package message

import (
	"github.com/google/uuid"

	"github.com/irctrakz/vwproto/pkg/sdata"
)

// ChatterBoxSessionStartTag is the wire type-tag shared by the request and
// reply variants of the chatterbox session-start exchange. The two shapes
// carry no variant discriminator on the wire; the reply is recognized by the
// presence of the "success" key, the request by "method".
const ChatterBoxSessionStartTag = "ChatterBoxSessionStart"

// ChatterBoxSessionStartRequest asks the simulator to open a group or
// conference chat session.
type ChatterBoxSessionStartRequest struct {
	Method    string
	SessionID uuid.UUID
	AgentIDs  []uuid.UUID
}

// Serialize implements Message.
func (m *ChatterBoxSessionStartRequest) Serialize() sdata.Map {
	agents := make(sdata.Array, len(m.AgentIDs))
	for i, id := range m.AgentIDs {
		agents[i] = id
	}
	return sdata.Map{
		"method":     m.Method,
		"session-id": m.SessionID,
		"params":     agents,
	}
}

// Deserialize implements Message.
func (m *ChatterBoxSessionStartRequest) Deserialize(env sdata.Map) error {
	const shape = "request"
	method, ok := env.String("method")
	if !ok {
		return missingKey(ChatterBoxSessionStartTag, shape, "method")
	}
	sessionID, ok := env.UUID("session-id")
	if !ok {
		return missingKey(ChatterBoxSessionStartTag, shape, "session-id")
	}
	m.Method = method
	m.SessionID = sessionID
	m.AgentIDs = nil
	if params, ok := env.Array("params"); ok {
		for _, v := range params {
			id, ok := uuidValue(v)
			if !ok {
				return missingKey(ChatterBoxSessionStartTag, shape, "params")
			}
			m.AgentIDs = append(m.AgentIDs, id)
		}
	}
	return nil
}

// ChatterBoxSessionStartReply reports whether a session opened, carrying the
// definitive session id the client should use from here on.
type ChatterBoxSessionStartReply struct {
	Success       bool
	SessionID     uuid.UUID
	TempSessionID uuid.UUID
	VoiceEnabled  bool
}

// Serialize implements Message.
func (m *ChatterBoxSessionStartReply) Serialize() sdata.Map {
	env := sdata.Map{
		"success":       m.Success,
		"session_id":    m.SessionID,
		"voice_enabled": m.VoiceEnabled,
	}
	if m.TempSessionID != uuid.Nil {
		env["temp_session_id"] = m.TempSessionID
	}
	return env
}

// Deserialize implements Message.
func (m *ChatterBoxSessionStartReply) Deserialize(env sdata.Map) error {
	const shape = "reply"
	success, ok := env.Bool("success")
	if !ok {
		return missingKey(ChatterBoxSessionStartTag, shape, "success")
	}
	sessionID, ok := env.UUID("session_id")
	if !ok {
		return missingKey(ChatterBoxSessionStartTag, shape, "session_id")
	}
	m.Success = success
	m.SessionID = sessionID
	m.TempSessionID = uuid.Nil
	if temp, ok := env.UUID("temp_session_id"); ok {
		m.TempSessionID = temp
	}
	m.VoiceEnabled = false
	if voice, ok := env.Bool("voice_enabled"); ok {
		m.VoiceEnabled = voice
	}
	return nil
}

// chatterBoxSessionStartShapes is the family's discrimination table. The
// reply is listed first: "success" is its defining key and takes precedence
// when an envelope somehow carries both key sets (first match wins).
func chatterBoxSessionStartShapes() []Shape {
	return []Shape{
		{
			Name:    "reply",
			Keys:    []string{"success"},
			Factory: func() Message { return &ChatterBoxSessionStartReply{} },
		},
		{
			Name:    "request",
			Keys:    []string{"method"},
			Factory: func() Message { return &ChatterBoxSessionStartRequest{} },
		},
	}
}
