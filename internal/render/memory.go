package render

import (
	"cmp"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// NodeState is one node as seen by a Memory scene.
type NodeState struct {
	ID   NodeID       `msgpack:"id"`
	Kind Kind         `msgpack:"k"`
	Pose Pose         `msgpack:"pose"`
	Line []mgl64.Vec3 `msgpack:"line,omitempty"`
}

// Memory keeps the latest state of every node. The game loop writes, other
// goroutines (telemetry, viewers) read snapshots.
type Memory struct {
	mu      sync.RWMutex
	nodes   map[NodeID]*NodeState
	debug   []DebugShape
	added   uint64
	removed uint64
}

func NewMemory() *Memory {
	return &Memory{nodes: make(map[NodeID]*NodeState, 256)}
}

func (m *Memory) Add(id NodeID, kind Kind) {
	m.mu.Lock()
	m.nodes[id] = &NodeState{ID: id, Kind: kind, Pose: Pose{Scale: mgl64.Vec3{1, 1, 1}}}
	m.added++
	m.mu.Unlock()
}

func (m *Memory) SetPose(id NodeID, p Pose) {
	m.mu.Lock()
	if n, ok := m.nodes[id]; ok {
		n.Pose = p
	}
	m.mu.Unlock()
}

func (m *Memory) SetLine(id NodeID, points []mgl64.Vec3) {
	m.mu.Lock()
	if n, ok := m.nodes[id]; ok {
		n.Line = append(n.Line[:0], points...)
	}
	m.mu.Unlock()
}

func (m *Memory) Remove(id NodeID) {
	m.mu.Lock()
	if _, ok := m.nodes[id]; ok {
		delete(m.nodes, id)
		m.removed++
	}
	m.mu.Unlock()
}

func (m *Memory) DrawDebug(shapes []DebugShape) {
	m.mu.Lock()
	m.debug = append(m.debug[:0], shapes...)
	m.mu.Unlock()
}

// Len returns the number of live nodes.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Node returns a copy of one node.
func (m *Memory) Node(id NodeID) (NodeState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return NodeState{}, false
	}
	c := *n
	c.Line = slices.Clone(n.Line)
	return c, true
}

// Counts returns how many nodes were ever added and removed.
func (m *Memory) Counts() (added, removed uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.added, m.removed
}

// Nodes returns copies of all nodes ordered by ID.
func (m *Memory) Nodes() []NodeState {
	m.mu.RLock()
	out := make([]NodeState, 0, len(m.nodes))
	for _, n := range m.nodes {
		c := *n
		c.Line = slices.Clone(n.Line)
		out = append(out, c)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b NodeState) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Debug returns a copy of the last debug shape set.
func (m *Memory) Debug() []DebugShape {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.debug)
}
