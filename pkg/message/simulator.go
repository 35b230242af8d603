package message

import (
	"github.com/google/uuid"

	"github.com/irctrakz/vwproto/pkg/sdata"
)

// EnableSimulatorTag announces a neighbor simulator the client should open a
// circuit to.
const EnableSimulatorTag = "EnableSimulator"

// EnableSimulator carries a neighbor simulator's UDP endpoint.
type EnableSimulator struct {
	IP     sdata.Binary
	Port   int
	Handle sdata.Binary
}

// Serialize implements Message.
func (m *EnableSimulator) Serialize() sdata.Map {
	return sdata.Map{
		"sim_ip":   m.IP,
		"sim_port": m.Port,
		"handle":   m.Handle,
	}
}

// Deserialize implements Message.
func (m *EnableSimulator) Deserialize(env sdata.Map) error {
	const shape = "enable"
	ip, ok := env.Bytes("sim_ip")
	if !ok {
		return missingKey(EnableSimulatorTag, shape, "sim_ip")
	}
	port, ok := env.Int("sim_port")
	if !ok {
		return missingKey(EnableSimulatorTag, shape, "sim_port")
	}
	handle, ok := env.Bytes("handle")
	if !ok {
		return missingKey(EnableSimulatorTag, shape, "handle")
	}
	m.IP = ip
	m.Port = port
	m.Handle = handle
	return nil
}

func enableSimulatorShapes() []Shape {
	return []Shape{
		{
			Name:    "enable",
			Keys:    []string{"sim_ip", "sim_port"},
			Factory: func() Message { return &EnableSimulator{} },
		},
	}
}

// EstablishAgentCommunicationTag announces the event-queue/capability
// endpoint for an agent on a neighbor region.
const EstablishAgentCommunicationTag = "EstablishAgentCommunication"

// EstablishAgentCommunication carries the agent id, the simulator's address
// in "ip:port" form and the seed capability URI.
type EstablishAgentCommunication struct {
	AgentID        uuid.UUID
	Address        string
	SeedCapability sdata.URI
}

// Serialize implements Message.
func (m *EstablishAgentCommunication) Serialize() sdata.Map {
	return sdata.Map{
		"agent-id":        m.AgentID,
		"sim-ip-and-port": m.Address,
		"seed-capability": m.SeedCapability,
	}
}

// Deserialize implements Message.
func (m *EstablishAgentCommunication) Deserialize(env sdata.Map) error {
	const shape = "establish"
	agentID, ok := env.UUID("agent-id")
	if !ok {
		return missingKey(EstablishAgentCommunicationTag, shape, "agent-id")
	}
	addr, ok := env.String("sim-ip-and-port")
	if !ok {
		return missingKey(EstablishAgentCommunicationTag, shape, "sim-ip-and-port")
	}
	seed, ok := env.URI("seed-capability")
	if !ok {
		return missingKey(EstablishAgentCommunicationTag, shape, "seed-capability")
	}
	m.AgentID = agentID
	m.Address = addr
	m.SeedCapability = seed
	return nil
}

func establishAgentCommunicationShapes() []Shape {
	return []Shape{
		{
			Name:    "establish",
			Keys:    []string{"agent-id", "sim-ip-and-port"},
			Factory: func() Message { return &EstablishAgentCommunication{} },
		},
	}
}
