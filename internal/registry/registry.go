// File: internal/registry/registry.go
// Author: momentics <momentics@gmail.com>
//
// Registry is the static agent network: agents keyed by 1-based id plus
// the routing table wired between them. Topology construction
// (topology_init) is one-shot and rolls back every partial allocation on
// failure; nothing is left half-built.

package registry

import (
	"sort"

	"github.com/momentics/signalrt/api"
	"github.com/momentics/signalrt/internal/dispatch"
	"github.com/momentics/signalrt/internal/heap"
	"github.com/momentics/signalrt/internal/mailbox"
	"github.com/momentics/signalrt/internal/routing"
)

// Agent is a single live entry in the registry.
type Agent struct {
	ID       uint32
	Name     string
	State    any
	Mailbox  *mailbox.Mailbox
	Dispatch *dispatch.Table

	SignalCount uint64
}

// unsafeAgentSize is the conceptual footprint charged against the arena for
// one Agent record (id, name header, state interface, two owned pointers),
// matching the accounting approach internal/signal, internal/mailbox, and
// internal/dispatch use for Go-managed memory the arena cannot hold
// directly. See DESIGN.md.
const unsafeAgentSize = 64

// AgentSpec describes one agent in a topology descriptor.
type AgentSpec struct {
	ID               uint32
	Name             string
	State            any
	MailboxCapacity  uint32
	DispatchCapacity int
}

// SocketDef is a declared (source, kind, destination) routing triple.
type SocketDef struct {
	SourceAgentID uint32
	Kind          uint32
	DestAgentID   uint32
}

// FrequencyInfo is advisory metadata about a signal kind, used only for
// reflection in debug/trace output.
type FrequencyInfo struct {
	Kind        uint32
	Name        string
	PayloadHint uint32
}

// TopologyDescriptor is the static contract consumed by topology_init.
type TopologyDescriptor struct {
	Agents      []AgentSpec
	Sockets     []SocketDef
	Frequencies []FrequencyInfo
}

// Registry is the constructed, live agent network.
type Registry struct {
	arena   *heap.Arena
	agents  map[uint32]*Agent
	order   []uint32
	routing *routing.Table
	freqs   map[uint32]FrequencyInfo
}

// Mailbox implements routing.AgentLookup.
func (r *Registry) Mailbox(agentID uint32) (*mailbox.Mailbox, bool) {
	a, ok := r.agents[agentID]
	if !ok {
		return nil, false
	}
	return a.Mailbox, true
}

// Agent returns the registered agent by id.
func (r *Registry) Agent(agentID uint32) (*Agent, bool) {
	a, ok := r.agents[agentID]
	return a, ok
}

// AgentByName performs a linear scan for the agent with the given name.
func (r *Registry) AgentByName(name string) (*Agent, bool) {
	for _, id := range r.order {
		if a := r.agents[id]; a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Agents returns every registered agent in ascending id order, the order
// the scheduler walks for fair rotation.
func (r *Registry) Agents() []*Agent {
	out := make([]*Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Count returns the number of live agents.
func (r *Registry) Count() int { return len(r.agents) }

// Routing returns the topology's routing table.
func (r *Registry) Routing() *routing.Table { return r.routing }

// FrequencyName resolves kind to its advisory name, if one was declared.
func (r *Registry) FrequencyName(kind uint32) (string, bool) {
	f, ok := r.freqs[kind]
	if !ok {
		return "", false
	}
	return f.Name, true
}

// rollback tears down every agent registered so far; used when
// InitTopology fails partway through.
func (r *Registry) rollback() {
	for _, id := range r.order {
		a := r.agents[id]
		if a.Mailbox != nil {
			a.Mailbox.Destroy()
		}
		if a.Dispatch != nil {
			a.Dispatch.Destroy()
		}
		r.arena.ReleaseStruct(unsafeAgentSize)
	}
	if r.routing != nil {
		r.routing.Destroy()
	}
	r.agents = nil
	r.order = nil
}

// InitTopology is the one-shot topology constructor. On any sub-failure it
// rolls back every resource allocated so far and returns the error; there
// is no partially-built registry to observe.
func InitTopology(arena *heap.Arena, desc TopologyDescriptor) (*Registry, error) {
	if len(desc.Agents) == 0 {
		return nil, api.ErrNullPointer
	}

	reg := &Registry{
		arena:  arena,
		agents: make(map[uint32]*Agent, len(desc.Agents)),
		freqs:  make(map[uint32]FrequencyInfo, len(desc.Frequencies)),
	}

	for _, spec := range desc.Agents {
		if spec.ID == 0 {
			reg.rollback()
			return nil, api.ErrNullPointer
		}
		if _, exists := reg.agents[spec.ID]; exists {
			reg.rollback()
			return nil, api.ErrAgentExists
		}

		mb := mailbox.New(arena, spec.ID, spec.MailboxCapacity)
		dt := dispatch.New(arena, spec.ID, spec.DispatchCapacity)
		dt.SetState(spec.State)

		arena.AccountStruct(unsafeAgentSize)
		reg.agents[spec.ID] = &Agent{
			ID:       spec.ID,
			Name:     spec.Name,
			State:    spec.State,
			Mailbox:  mb,
			Dispatch: dt,
		}
		reg.order = append(reg.order, spec.ID)
	}

	for _, f := range desc.Frequencies {
		reg.freqs[f.Kind] = f
	}

	sort.Slice(reg.order, func(i, j int) bool { return reg.order[i] < reg.order[j] })

	if len(desc.Sockets) > 0 {
		reg.routing = routing.New(arena, uint32(len(desc.Sockets))*2)

		grouped := make(map[[2]uint32][]uint32)
		seenDest := make(map[[2]uint32]map[uint32]bool)
		var groupOrder [][2]uint32
		for _, sock := range desc.Sockets {
			if _, ok := reg.agents[sock.SourceAgentID]; !ok {
				reg.rollback()
				return nil, api.ErrAgentNotFound
			}
			if _, ok := reg.agents[sock.DestAgentID]; !ok {
				reg.rollback()
				return nil, api.ErrAgentNotFound
			}
			key := [2]uint32{sock.SourceAgentID, sock.Kind}
			if _, seen := grouped[key]; !seen {
				groupOrder = append(groupOrder, key)
				seenDest[key] = make(map[uint32]bool)
			}
			if seenDest[key][sock.DestAgentID] {
				continue
			}
			seenDest[key][sock.DestAgentID] = true
			grouped[key] = append(grouped[key], sock.DestAgentID)
		}

		for _, key := range groupOrder {
			if err := reg.routing.Add(key[0], key[1], grouped[key]); err != nil {
				reg.rollback()
				return nil, err
			}
		}
	}

	return reg, nil
}

// ShutdownTopology tears the registry down: each agent's mailbox is
// destroyed (releasing every held signal reference); the routing table and
// registry bookkeeping are discarded with it.
func ShutdownTopology(reg *Registry) {
	if reg == nil {
		return
	}
	reg.rollback()
}
