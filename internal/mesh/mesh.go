package mesh

import (
	"fmt"
	"slices"

	"github.com/npratt/mindmesh/internal/geometry"
)

// Mesh stores nodes and edges keyed by id. Iteration order is insertion
// order for both, which makes hit testing and persistence deterministic.
//
// A Mesh is not safe for concurrent use; one editing session owns it.
type Mesh struct {
	rootID NodeID

	nodes     map[NodeID]Node
	nodeOrder []NodeID

	edges     map[EdgeID]Edge
	edgeOrder []EdgeID

	// parents is derived from edges and rebuilt on structural changes.
	parents map[NodeID]NodeID
	links   []Link

	revision uint64
	observer func(Change)
}

// New returns a mesh holding a single root node.
func New() *Mesh {
	m := empty()
	root := Node{ID: NewNodeID(), Text: RootText}
	m.rootID = root.ID
	m.insertNode(root)
	m.rebuild()
	return m
}

// Load builds a mesh from a snapshot after validating it. The snapshot's
// root id is trusted as given.
func Load(snap Snapshot) (*Mesh, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}

	m := empty()
	m.rootID = snap.RootID
	for _, n := range snap.Nodes {
		m.insertNode(n)
	}
	for _, e := range snap.Edges {
		m.insertEdge(e)
	}
	m.rebuild()
	return m, nil
}

func empty() *Mesh {
	return &Mesh{
		nodes:   make(map[NodeID]Node),
		edges:   make(map[EdgeID]Edge),
		parents: make(map[NodeID]NodeID),
	}
}

// SetObserver registers fn to be called after every applied mutation.
// Pass nil to remove it.
func (m *Mesh) SetObserver(fn func(Change)) {
	m.observer = fn
}

// Revision increments on every applied mutation.
func (m *Mesh) Revision() uint64 {
	return m.revision
}

// RootID returns the id of the root node.
func (m *Mesh) RootID() NodeID {
	return m.rootID
}

// Root returns the root node. A mesh without its root is corrupt and Root
// panics rather than continue with a broken document.
func (m *Mesh) Root() Node {
	root, ok := m.nodes[m.rootID]
	if !ok {
		panic("mesh: invalid mesh, root node " + m.rootID.String() + " missing")
	}
	return root
}

// Node returns the node with the given id.
func (m *Mesh) Node(id NodeID) (Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Nodes returns all nodes in iteration order.
func (m *Mesh) Nodes() []Node {
	out := make([]Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		out = append(out, m.nodes[id])
	}
	return out
}

// Edges returns all edges in iteration order.
func (m *Mesh) Edges() []Edge {
	out := make([]Edge, 0, len(m.edgeOrder))
	for _, id := range m.edgeOrder {
		out = append(out, m.edges[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (m *Mesh) NodeCount() int {
	return len(m.nodes)
}

// EdgeCount returns the number of edges.
func (m *Mesh) EdgeCount() int {
	return len(m.edges)
}

// Links returns the rendered edge projection for the current state.
func (m *Mesh) Links() []Link {
	return slices.Clone(m.links)
}

// Snapshot returns a copy of the mesh in its persisted form.
func (m *Mesh) Snapshot() Snapshot {
	return Snapshot{
		RootID: m.rootID,
		Nodes:  m.Nodes(),
		Edges:  m.Edges(),
	}
}

// AddChild adds a child of parent at the parent's position.
func (m *Mesh) AddChild(parent NodeID) (NodeID, error) {
	p, ok := m.nodes[parent]
	if !ok {
		return NodeID{}, fmt.Errorf("add child to %s: %w", parent, ErrNotFound)
	}
	return m.addChild(p, p.Position), nil
}

// AddChildAt adds a child of parent at the given position.
func (m *Mesh) AddChildAt(parent NodeID, at geometry.Point) (NodeID, error) {
	p, ok := m.nodes[parent]
	if !ok {
		return NodeID{}, fmt.Errorf("add child to %s: %w", parent, ErrNotFound)
	}
	return m.addChild(p, at), nil
}

func (m *Mesh) addChild(parent Node, at geometry.Point) NodeID {
	child := Node{ID: NewNodeID(), Position: at, Text: ChildText}
	m.insertNode(child)
	m.connect(parent.ID, child.ID)
	m.rebuild()
	m.changed(ChangeNodeAdded, child.ID)
	return child.ID
}

// AddSibling adds a new child of id's parent at the parent's position. It
// reports false for the root and for a node without a parent.
func (m *Mesh) AddSibling(id NodeID) (NodeID, bool) {
	parent, ok := m.siblingParent(id)
	if !ok {
		return NodeID{}, false
	}
	return m.addChild(parent, parent.Position), true
}

// AddSiblingAt is AddSibling with an explicit position.
func (m *Mesh) AddSiblingAt(id NodeID, at geometry.Point) (NodeID, bool) {
	parent, ok := m.siblingParent(id)
	if !ok {
		return NodeID{}, false
	}
	return m.addChild(parent, at), true
}

func (m *Mesh) siblingParent(id NodeID) (Node, bool) {
	if id == m.rootID {
		return Node{}, false
	}
	pid, ok := m.parents[id]
	if !ok {
		return Node{}, false
	}
	parent, ok := m.nodes[pid]
	return parent, ok
}

// DeleteNodes removes the listed nodes and every edge touching them. The
// root and unknown ids are skipped. Children of a removed node are left in
// place without a parent. It returns the number of nodes removed.
func (m *Mesh) DeleteNodes(ids ...NodeID) int {
	doomed := make(map[NodeID]bool, len(ids))
	var removed []NodeID
	for _, id := range ids {
		if id == m.rootID || doomed[id] {
			continue
		}
		if _, ok := m.nodes[id]; !ok {
			continue
		}
		doomed[id] = true
		removed = append(removed, id)
	}
	if len(removed) == 0 {
		return 0
	}

	for _, id := range removed {
		delete(m.nodes, id)
	}
	m.nodeOrder = slices.DeleteFunc(m.nodeOrder, func(id NodeID) bool { return doomed[id] })

	m.edgeOrder = slices.DeleteFunc(m.edgeOrder, func(eid EdgeID) bool {
		e := m.edges[eid]
		if doomed[e.Start] || doomed[e.End] {
			delete(m.edges, eid)
			return true
		}
		return false
	})

	m.rebuild()
	m.changed(ChangeNodesDeleted, removed...)
	return len(removed)
}

// UpdateText replaces the text of a node.
func (m *Mesh) UpdateText(id NodeID, text string) error {
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("update text of %s: %w", id, ErrNotFound)
	}
	n.Text = text
	m.nodes[id] = n
	m.changed(ChangeNodeText, id)
	return nil
}

// MoveNode replaces the position of a node.
func (m *Mesh) MoveNode(id NodeID, to geometry.Point) error {
	n, ok := m.nodes[id]
	if !ok {
		return fmt.Errorf("move %s: %w", id, ErrNotFound)
	}
	n.Position = to
	m.nodes[id] = n
	m.rebuildLinks()
	m.changed(ChangeNodeMoved, id)
	return nil
}

// ParentOf returns the parent of id.
func (m *Mesh) ParentOf(id NodeID) (NodeID, bool) {
	pid, ok := m.parents[id]
	return pid, ok
}

// Children returns the children of id in edge order.
func (m *Mesh) Children(id NodeID) []NodeID {
	var out []NodeID
	for _, eid := range m.edgeOrder {
		if e := m.edges[eid]; e.Start == id {
			out = append(out, e.End)
		}
	}
	return out
}

// Orphans returns the non-root nodes that have no parent, in iteration
// order. Deleting an inner node leaves its children orphaned.
func (m *Mesh) Orphans() []NodeID {
	var out []NodeID
	for _, id := range m.nodeOrder {
		if id == m.rootID {
			continue
		}
		if _, ok := m.parents[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// DepthFromRoot returns the number of edges between the root and id.
// The walk is bounded by the node count so a corrupt parent cycle yields
// ErrCorrupt instead of looping.
func (m *Mesh) DepthFromRoot(id NodeID) (int, error) {
	if _, ok := m.nodes[id]; !ok {
		return 0, fmt.Errorf("depth of %s: %w", id, ErrNotFound)
	}

	current := id
	for depth := 0; depth <= len(m.nodes); depth++ {
		if current == m.rootID {
			return depth, nil
		}
		parent, ok := m.parents[current]
		if !ok {
			return 0, fmt.Errorf("depth of %s: %w", id, ErrUnreachable)
		}
		current = parent
	}
	return 0, fmt.Errorf("depth of %s: walk exceeded %d nodes: %w", id, len(m.nodes), ErrCorrupt)
}

func (m *Mesh) insertNode(n Node) {
	m.nodes[n.ID] = n
	m.nodeOrder = append(m.nodeOrder, n.ID)
}

func (m *Mesh) insertEdge(e Edge) {
	m.edges[e.ID] = e
	m.edgeOrder = append(m.edgeOrder, e.ID)
}

// connect adds a parent to child edge unless the pair already exists.
func (m *Mesh) connect(parent, child NodeID) {
	for _, eid := range m.edgeOrder {
		if e := m.edges[eid]; e.Start == parent && e.End == child {
			return
		}
	}
	m.insertEdge(Edge{ID: NewEdgeID(), Start: parent, End: child})
}

// rebuild refreshes every derived structure after a structural change.
func (m *Mesh) rebuild() {
	m.parents = make(map[NodeID]NodeID, len(m.edges))
	for _, eid := range m.edgeOrder {
		e := m.edges[eid]
		m.parents[e.End] = e.Start
	}
	m.rebuildLinks()
}

func (m *Mesh) rebuildLinks() {
	links := make([]Link, 0, len(m.edgeOrder))
	for _, eid := range m.edgeOrder {
		e := m.edges[eid]
		start, sok := m.nodes[e.Start]
		end, eok := m.nodes[e.End]
		if sok && eok {
			links = append(links, Link{ID: e.ID, Start: start.Position, End: end.Position})
		}
	}
	m.links = links
}

func (m *Mesh) changed(kind ChangeKind, ids ...NodeID) {
	m.revision++
	if m.observer != nil {
		m.observer(Change{Kind: kind, IDs: ids})
	}
}
