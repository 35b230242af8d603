package message

import (
	"github.com/google/uuid"
)

// RegisterBuiltins installs the message families this client understands.
// New families are added here and in their own file; existing entries are
// never edited to accommodate a new shape.
func RegisterBuiltins(r *Registry) error {
	type entry struct {
		tag    string
		shapes []Shape
	}
	builtins := []entry{
		{ChatterBoxSessionStartTag, chatterBoxSessionStartShapes()},
		{ChatSessionRequestTag, chatSessionShapes()},
		{TeleportFinishTag, teleportFinishShapes()},
		{EnableSimulatorTag, enableSimulatorShapes()},
		{EstablishAgentCommunicationTag, establishAgentCommunicationShapes()},
	}
	for _, e := range builtins {
		if err := r.Register(e.tag, e.shapes...); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a registry with all built-in families
// installed. The built-in table is static, so a registration failure is a
// programming error.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}

// uuidValue coerces an envelope array element into a UUID, accepting the
// native and string representations like Map.UUID does.
func uuidValue(v any) (uuid.UUID, bool) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, true
	case string:
		id, err := uuid.Parse(t)
		if err == nil {
			return id, true
		}
	}
	return uuid.Nil, false
}
