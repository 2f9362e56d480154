package mesh

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeID identifies a node for its whole lifetime. The zero value means
// "no node".
type NodeID uuid.UUID

// EdgeID identifies an edge.
type EdgeID uuid.UUID

// NewNodeID returns a fresh random node id.
func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

// NewEdgeID returns a fresh random edge id.
func NewEdgeID() EdgeID {
	return EdgeID(uuid.New())
}

// ParseNodeID parses the canonical string form of a node id.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("parse node id %q: %w", s, err)
	}
	return NodeID(u), nil
}

// ParseEdgeID parses the canonical string form of an edge id.
func ParseEdgeID(s string) (EdgeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EdgeID{}, fmt.Errorf("parse edge id %q: %w", s, err)
	}
	return EdgeID(u), nil
}

func (id NodeID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the zero value.
func (id NodeID) IsZero() bool { return id == NodeID{} }

// MarshalText implements encoding.TextMarshaler.
func (id NodeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *NodeID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return fmt.Errorf("node id: %w", err)
	}
	*id = NodeID(u)
	return nil
}

func (id EdgeID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the zero value.
func (id EdgeID) IsZero() bool { return id == EdgeID{} }

// MarshalText implements encoding.TextMarshaler.
func (id EdgeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EdgeID) UnmarshalText(b []byte) error {
	var u uuid.UUID
	if err := u.UnmarshalText(b); err != nil {
		return fmt.Errorf("edge id: %w", err)
	}
	*id = EdgeID(u)
	return nil
}
