package testutil

import (
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/mesh"
)

// Fixed ids used by the document fixtures.
const (
	RootIDText     = "00000000-0000-4000-8000-000000000001"
	ChildIDText    = "00000000-0000-4000-8000-000000000002"
	GrandIDText    = "00000000-0000-4000-8000-000000000003"
	EdgeRootChild  = "00000000-0000-4000-8000-0000000000e1"
	EdgeChildGrand = "00000000-0000-4000-8000-0000000000e2"
)

// Chain returns a mesh of depth+1 nodes in a straight line along the x
// axis, spaced 100 apart, and their ids from the root down.
func Chain(depth int) (*mesh.Mesh, []mesh.NodeID) {
	m := mesh.New()
	ids := []mesh.NodeID{m.RootID()}
	for i := 1; i <= depth; i++ {
		id, _ := m.AddChildAt(ids[i-1], geometry.Pt(float64(i*100), 0))
		ids = append(ids, id)
	}
	return m, ids
}

// Fan returns a mesh whose root has n children placed radius away at even
// angles, and the child ids.
func Fan(n int, radius float64) (*mesh.Mesh, []mesh.NodeID) {
	m := mesh.New()
	var ids []mesh.NodeID
	for i := range n {
		angle := geometry.Degrees(float64(i) * 360 / float64(n))
		id, _ := m.AddChildAt(m.RootID(), geometry.PointAt(geometry.Origin, radius, angle))
		ids = append(ids, id)
	}
	return m, ids
}

// ThreeNodeSnapshot is the snapshot encoded by the document fixtures:
// root -> child -> grandchild.
func ThreeNodeSnapshot() mesh.Snapshot {
	id := func(s string) mesh.NodeID {
		v, err := mesh.ParseNodeID(s)
		if err != nil {
			panic(err)
		}
		return v
	}
	eid := func(s string) mesh.EdgeID {
		v, err := mesh.ParseEdgeID(s)
		if err != nil {
			panic(err)
		}
		return v
	}
	return mesh.Snapshot{
		RootID: id(RootIDText),
		Nodes: []mesh.Node{
			{ID: id(RootIDText), Position: geometry.Pt(0, 0), Text: "root"},
			{ID: id(ChildIDText), Position: geometry.Pt(200, 200), Text: "child"},
			{ID: id(GrandIDText), Position: geometry.Pt(400, 300), Text: "grandchild"},
		},
		Edges: []mesh.Edge{
			{ID: eid(EdgeRootChild), Start: id(RootIDText), End: id(ChildIDText)},
			{ID: eid(EdgeChildGrand), Start: id(ChildIDText), End: id(GrandIDText)},
		},
	}
}

// ThreeNodeJSON is ThreeNodeSnapshot as a JSON document.
var ThreeNodeJSON = `{
  "root_id": "` + RootIDText + `",
  "nodes": [
    {"id": "` + RootIDText + `", "position": {"x": 0, "y": 0}, "text": "root"},
    {"id": "` + ChildIDText + `", "position": {"x": 200, "y": 200}, "text": "child"},
    {"id": "` + GrandIDText + `", "position": {"x": 400, "y": 300}, "text": "grandchild"}
  ],
  "edges": [
    {"id": "` + EdgeRootChild + `", "start": "` + RootIDText + `", "end": "` + ChildIDText + `"},
    {"id": "` + EdgeChildGrand + `", "start": "` + ChildIDText + `", "end": "` + GrandIDText + `"}
  ]
}
`

// ThreeNodeYAML is ThreeNodeSnapshot as a YAML document.
var ThreeNodeYAML = `root_id: ` + RootIDText + `
nodes:
  - id: ` + RootIDText + `
    position: {x: 0, y: 0}
    text: root
  - id: ` + ChildIDText + `
    position: {x: 200, y: 200}
    text: child
  - id: ` + GrandIDText + `
    position: {x: 400, y: 300}
    text: grandchild
edges:
  - id: ` + EdgeRootChild + `
    start: ` + RootIDText + `
    end: ` + ChildIDText + `
  - id: ` + EdgeChildGrand + `
    start: ` + ChildIDText + `
    end: ` + GrandIDText + `
`

// ThreeNodeTOML is ThreeNodeSnapshot as a TOML document.
var ThreeNodeTOML = `root_id = "` + RootIDText + `"

[[nodes]]
id = "` + RootIDText + `"
text = "root"
position = { x = 0.0, y = 0.0 }

[[nodes]]
id = "` + ChildIDText + `"
text = "child"
position = { x = 200.0, y = 200.0 }

[[nodes]]
id = "` + GrandIDText + `"
text = "grandchild"
position = { x = 400.0, y = 300.0 }

[[edges]]
id = "` + EdgeRootChild + `"
start = "` + RootIDText + `"
end = "` + ChildIDText + `"

[[edges]]
id = "` + EdgeChildGrand + `"
start = "` + ChildIDText + `"
end = "` + GrandIDText + `"
`

// CyclicJSON is a document whose edges form a cycle; it fails validation.
var CyclicJSON = `{
  "root_id": "` + RootIDText + `",
  "nodes": [
    {"id": "` + RootIDText + `", "position": {"x": 0, "y": 0}, "text": "root"},
    {"id": "` + ChildIDText + `", "position": {"x": 1, "y": 1}, "text": "a"},
    {"id": "` + GrandIDText + `", "position": {"x": 2, "y": 2}, "text": "b"}
  ],
  "edges": [
    {"id": "` + EdgeRootChild + `", "start": "` + ChildIDText + `", "end": "` + GrandIDText + `"},
    {"id": "` + EdgeChildGrand + `", "start": "` + GrandIDText + `", "end": "` + ChildIDText + `"}
  ]
}
`
