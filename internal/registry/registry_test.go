package registry

import (
	"testing"

	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/heap"
)

func newArena(t *testing.T) *heap.Arena {
	t.Helper()
	a, err := heap.New(64 * 1024)
	if err != nil {
		t.Fatalf("heap.New: %v", err)
	}
	return a
}

func TestInitTopologyBasic(t *testing.T) {
	a := newArena(t)
	reg, err := InitTopology(a, TopologyDescriptor{
		Agents: []AgentSpec{
			{ID: 1, Name: "source"},
			{ID: 2, Name: "sink"},
		},
		Sockets: []SocketDef{
			{SourceAgentID: 1, Kind: 7, DestAgentID: 2},
		},
	})
	if err != nil {
		t.Fatalf("InitTopology: %v", err)
	}
	if reg.Count() != 2 {
		t.Fatalf("expected 2 agents, got %d", reg.Count())
	}
	dest, ok := reg.Routing().Lookup(1, 7)
	if !ok || len(dest) != 1 || dest[0] != 2 {
		t.Fatalf("expected route 1,7 -> [2], got %v ok=%v", dest, ok)
	}
}

func TestInitTopologyMergesBroadcastSockets(t *testing.T) {
	a := newArena(t)
	reg, err := InitTopology(a, TopologyDescriptor{
		Agents: []AgentSpec{
			{ID: 1, Name: "source"},
			{ID: 2, Name: "a"},
			{ID: 3, Name: "b"},
		},
		Sockets: []SocketDef{
			{SourceAgentID: 1, Kind: 9, DestAgentID: 2},
			{SourceAgentID: 1, Kind: 9, DestAgentID: 3},
		},
	})
	if err != nil {
		t.Fatalf("InitTopology: %v", err)
	}
	dest, ok := reg.Routing().Lookup(1, 9)
	if !ok {
		t.Fatalf("expected merged route to exist")
	}
	if len(dest) != 2 {
		t.Fatalf("expected both destinations merged into one route, got %v", dest)
	}
}

func TestInitTopologyRejectsDuplicateAgentID(t *testing.T) {
	a := newArena(t)
	_, err := InitTopology(a, TopologyDescriptor{
		Agents: []AgentSpec{
			{ID: 1, Name: "a"},
			{ID: 1, Name: "b"},
		},
	})
	if err != api.ErrAgentExists {
		t.Fatalf("expected ErrAgentExists, got %v", err)
	}
}

func TestInitTopologyRejectsSocketToUnknownAgent(t *testing.T) {
	a := newArena(t)
	_, err := InitTopology(a, TopologyDescriptor{
		Agents: []AgentSpec{{ID: 1, Name: "a"}},
		Sockets: []SocketDef{
			{SourceAgentID: 1, Kind: 1, DestAgentID: 99},
		},
	})
	if err != api.ErrAgentNotFound {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestInitTopologyEmptyAgentsRejected(t *testing.T) {
	a := newArena(t)
	if _, err := InitTopology(a, TopologyDescriptor{}); err == nil {
		t.Fatalf("expected error for empty topology")
	}
}

func TestAgentLookupByIDAndName(t *testing.T) {
	a := newArena(t)
	reg, err := InitTopology(a, TopologyDescriptor{
		Agents: []AgentSpec{{ID: 5, Name: "worker"}},
	})
	if err != nil {
		t.Fatalf("InitTopology: %v", err)
	}
	got, ok := reg.Agent(5)
	if !ok || got.Name != "worker" {
		t.Fatalf("expected agent 5 named worker")
	}
	byName, ok := reg.AgentByName("worker")
	if !ok || byName.ID != 5 {
		t.Fatalf("expected lookup by name to find agent 5")
	}
	if _, ok := reg.AgentByName("missing"); ok {
		t.Fatalf("expected no agent found by unknown name")
	}
}

func TestAgentsWalkedInAscendingOrder(t *testing.T) {
	a := newArena(t)
	reg, err := InitTopology(a, TopologyDescriptor{
		Agents: []AgentSpec{
			{ID: 3, Name: "c"},
			{ID: 1, Name: "a"},
			{ID: 2, Name: "b"},
		},
	})
	if err != nil {
		t.Fatalf("InitTopology: %v", err)
	}
	ids := []uint32{}
	for _, a := range reg.Agents() {
		ids = append(ids, a.ID)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("expected ascending agent-id walk, got %v", ids)
	}
}

func TestShutdownTopologyIsIdempotentOnNil(t *testing.T) {
	ShutdownTopology(nil)
}

func TestFrequencyNameReflection(t *testing.T) {
	a := newArena(t)
	reg, err := InitTopology(a, TopologyDescriptor{
		Agents:      []AgentSpec{{ID: 1, Name: "a"}},
		Frequencies: []FrequencyInfo{{Kind: 7, Name: "data"}},
	})
	if err != nil {
		t.Fatalf("InitTopology: %v", err)
	}
	name, ok := reg.FrequencyName(7)
	if !ok || name != "data" {
		t.Fatalf("expected frequency 7 resolved to 'data', got %q ok=%v", name, ok)
	}
	if _, ok := reg.FrequencyName(99); ok {
		t.Fatalf("expected no name for undeclared frequency")
	}
}
