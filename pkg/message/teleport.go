package message

import (
	"github.com/google/uuid"

	"github.com/irctrakz/vwproto/pkg/sdata"
)

// TeleportFinishTag is the single-shape family announcing a completed
// teleport and the destination simulator's coordinates.
const TeleportFinishTag = "TeleportFinish"

// TeleportFinish carries the destination simulator address and the seed
// capability the client uses to reach its HTTP services.
type TeleportFinish struct {
	AgentID        uuid.UUID
	LocationID     int
	SimIP          sdata.Binary
	SimPort        int
	RegionHandle   sdata.Binary
	SeedCapability sdata.URI
	SimAccess      int
	TeleportFlags  int
}

// Serialize implements Message.
func (m *TeleportFinish) Serialize() sdata.Map {
	return sdata.Map{
		"agent_id":        m.AgentID,
		"location_id":     m.LocationID,
		"sim_ip":          m.SimIP,
		"sim_port":        m.SimPort,
		"region_handle":   m.RegionHandle,
		"seed_capability": m.SeedCapability,
		"sim_access":      m.SimAccess,
		"teleport_flags":  m.TeleportFlags,
	}
}

// Deserialize implements Message.
func (m *TeleportFinish) Deserialize(env sdata.Map) error {
	const shape = "finish"
	agentID, ok := env.UUID("agent_id")
	if !ok {
		return missingKey(TeleportFinishTag, shape, "agent_id")
	}
	simIP, ok := env.Bytes("sim_ip")
	if !ok {
		return missingKey(TeleportFinishTag, shape, "sim_ip")
	}
	simPort, ok := env.Int("sim_port")
	if !ok {
		return missingKey(TeleportFinishTag, shape, "sim_port")
	}
	handle, ok := env.Bytes("region_handle")
	if !ok {
		return missingKey(TeleportFinishTag, shape, "region_handle")
	}
	seed, ok := env.URI("seed_capability")
	if !ok {
		return missingKey(TeleportFinishTag, shape, "seed_capability")
	}

	m.AgentID = agentID
	m.SimIP = simIP
	m.SimPort = simPort
	m.RegionHandle = handle
	m.SeedCapability = seed
	m.LocationID, _ = env.Int("location_id")
	m.SimAccess, _ = env.Int("sim_access")
	m.TeleportFlags, _ = env.Int("teleport_flags")
	return nil
}

func teleportFinishShapes() []Shape {
	return []Shape{
		{
			Name:    "finish",
			Keys:    []string{"agent_id", "region_handle"},
			Factory: func() Message { return &TeleportFinish{} },
		},
	}
}
