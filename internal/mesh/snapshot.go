package mesh

import "fmt"

// Validate checks that a snapshot describes a well formed mesh:
//   - the root id is set and names a node
//   - node and edge ids are set and unique
//   - every edge joins two distinct nodes that exist
//   - no two edges share a (start, end) pair
//   - the root has no parent and no node has more than one
//   - following parents from any node never loops
//
// Non-root nodes without a parent are accepted, since deleting an inner
// node leaves its children that way.
func Validate(snap Snapshot) error {
	if snap.RootID.IsZero() {
		return fmt.Errorf("%w: root id not set", ErrInvalidSnapshot)
	}

	nodes := make(map[NodeID]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.ID.IsZero() {
			return fmt.Errorf("%w: node without id", ErrInvalidSnapshot)
		}
		if nodes[n.ID] {
			return fmt.Errorf("%w: duplicate node %s", ErrInvalidSnapshot, n.ID)
		}
		nodes[n.ID] = true
	}
	if !nodes[snap.RootID] {
		return fmt.Errorf("%w: root %s not in node set", ErrInvalidSnapshot, snap.RootID)
	}

	type pair struct{ start, end NodeID }
	edges := make(map[EdgeID]bool, len(snap.Edges))
	pairs := make(map[pair]bool, len(snap.Edges))
	parents := make(map[NodeID]NodeID, len(snap.Edges))
	for _, e := range snap.Edges {
		switch {
		case e.ID.IsZero():
			return fmt.Errorf("%w: edge without id", ErrInvalidSnapshot)
		case edges[e.ID]:
			return fmt.Errorf("%w: duplicate edge %s", ErrInvalidSnapshot, e.ID)
		case !nodes[e.Start]:
			return fmt.Errorf("%w: edge %s starts at unknown node %s", ErrInvalidSnapshot, e.ID, e.Start)
		case !nodes[e.End]:
			return fmt.Errorf("%w: edge %s ends at unknown node %s", ErrInvalidSnapshot, e.ID, e.End)
		case e.Start == e.End:
			return fmt.Errorf("%w: edge %s is a self loop", ErrInvalidSnapshot, e.ID)
		case pairs[pair{e.Start, e.End}]:
			return fmt.Errorf("%w: duplicate edge %s -> %s", ErrInvalidSnapshot, e.Start, e.End)
		case e.End == snap.RootID:
			return fmt.Errorf("%w: root %s has a parent", ErrInvalidSnapshot, snap.RootID)
		}
		if _, ok := parents[e.End]; ok {
			return fmt.Errorf("%w: node %s has more than one parent", ErrInvalidSnapshot, e.End)
		}
		edges[e.ID] = true
		pairs[pair{e.Start, e.End}] = true
		parents[e.End] = e.Start
	}

	for id := range nodes {
		current := id
		for steps := 0; ; steps++ {
			if steps > len(nodes) {
				return fmt.Errorf("%w: cycle through node %s", ErrInvalidSnapshot, id)
			}
			parent, ok := parents[current]
			if !ok {
				break
			}
			current = parent
		}
	}
	return nil
}
