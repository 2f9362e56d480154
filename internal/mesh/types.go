// Package mesh is the mind map graph store. It owns every node and edge of a
// document and keeps them a rooted tree.
package mesh

import (
	"errors"

	"github.com/npratt/mindmesh/internal/geometry"
)

// Default texts for new nodes.
const (
	RootText  = "root"
	ChildText = "child"
)

var (
	// ErrNotFound is returned when an operation names a node that is not in
	// the store. Nothing is changed.
	ErrNotFound = errors.New("node not found")
	// ErrUnreachable is returned when a node has no path to the root.
	ErrUnreachable = errors.New("node unreachable from root")
	// ErrCorrupt is returned when an ancestor walk exceeds the node count,
	// meaning the parent links contain a cycle.
	ErrCorrupt = errors.New("mesh corrupt")
	// ErrInvalidSnapshot wraps the first invariant violation found in a
	// snapshot handed to Load or Validate.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Node is a labeled point in the mind map.
type Node struct {
	ID       NodeID         `json:"id" yaml:"id" toml:"id"`
	Position geometry.Point `json:"position" yaml:"position" toml:"position"`
	Text     string         `json:"text" yaml:"text" toml:"text"`
}

// Edge is a directed parent to child relation.
type Edge struct {
	ID    EdgeID `json:"id" yaml:"id" toml:"id"`
	Start NodeID `json:"start" yaml:"start" toml:"start"`
	End   NodeID `json:"end" yaml:"end" toml:"end"`
}

// Link is an edge projected onto the current positions of its endpoints.
type Link struct {
	ID    EdgeID
	Start geometry.Point
	End   geometry.Point
}

// Snapshot is the persisted form of a mesh.
type Snapshot struct {
	RootID NodeID `json:"root_id" yaml:"root_id" toml:"root_id"`
	Nodes  []Node `json:"nodes" yaml:"nodes" toml:"nodes"`
	Edges  []Edge `json:"edges" yaml:"edges" toml:"edges"`
}

// ChangeKind names the kind of mutation reported to an observer.
type ChangeKind string

const (
	ChangeNodeAdded    ChangeKind = "node.added"
	ChangeNodeMoved    ChangeKind = "node.moved"
	ChangeNodeText     ChangeKind = "node.text"
	ChangeNodesDeleted ChangeKind = "nodes.deleted"
)

// Change describes one applied mutation.
type Change struct {
	Kind ChangeKind
	IDs  []NodeID
}
