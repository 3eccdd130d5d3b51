// Package scene is the renderer-facing scene graph: flat node list,
// light hints, and the loaded-model template with clone semantics.
package scene

import (
	"github.com/google/uuid"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"doorstep/geom"
)

// MeshKind selects the wireframe primitive a node is drawn with.
type MeshKind uint8

const (
	MeshNone MeshKind = iota
	// MeshRing is a flat ring lying in the node's local XZ plane.
	MeshRing
	// MeshBox is an axis-aligned box centered on X/Z, resting on Y=0.
	MeshBox
)

// Mesh describes a drawable primitive. Dimensions are meters.
type Mesh struct {
	Kind   MeshKind
	Inner  float64 // ring inner radius
	Outer  float64 // ring outer radius
	Width  float64 // box extents
	Height float64
	Depth  float64
}

// RingMesh returns a flat ring, the reticle shape.
func RingMesh(inner, outer float64) *Mesh {
	return &Mesh{Kind: MeshRing, Inner: inner, Outer: outer}
}

// BoxMesh returns a box resting on its local floor plane.
func BoxMesh(w, h, d float64) *Mesh {
	return &Mesh{Kind: MeshBox, Width: w, Height: h, Depth: d}
}

// Node is one scene entry. A node either carries a raw matrix (manual
// mode, used by the reticle whose pose is written every frame) or a
// decomposed position/rotation/scale recomposed on read.
type Node struct {
	ID      string
	Name    string
	Visible bool
	Mesh    *Mesh

	manual bool
	matrix geom.Mat4

	Position r3.Vec
	Rotation quat.Number
	Scale    r3.Vec
}

// NewNode returns a hidden node in decomposed mode with identity TRS.
func NewNode(name string, mesh *Mesh) *Node {
	return &Node{
		Name:     name,
		Mesh:     mesh,
		Rotation: quat.Number{Real: 1},
		Scale:    r3.Vec{X: 1, Y: 1, Z: 1},
	}
}

// SetMatrix switches the node to manual mode and stores m verbatim.
func (n *Node) SetMatrix(m geom.Mat4) {
	n.manual = true
	n.matrix = m
}

// SetTRS stores a decomposed transform and leaves manual mode.
func (n *Node) SetTRS(pos r3.Vec, rot quat.Number, scale r3.Vec) {
	n.manual = false
	n.Position = pos
	n.Rotation = rot
	n.Scale = scale
}

// Matrix returns the node's world transform.
func (n *Node) Matrix() geom.Mat4 {
	if n.manual {
		return n.matrix
	}
	return geom.Compose(n.Position, n.Rotation, n.Scale)
}

// HemisphereLight is an ambient-style fill light hint.
type HemisphereLight struct {
	SkyColor    uint32
	GroundColor uint32
	Intensity   float64
}

// DirectionalLight is a directional light hint.
type DirectionalLight struct {
	Color     uint32
	Intensity float64
	Direction r3.Vec
}

// Scene is a flat node list plus light hints. It is owned by the frame
// loop goroutine and is not safe for concurrent mutation.
type Scene struct {
	Hemisphere  *HemisphereLight
	Directional *DirectionalLight

	nodes []*Node
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// Add appends a node.
func (s *Scene) Add(n *Node) {
	s.nodes = append(s.nodes, n)
}

// Nodes returns the node list in insertion order.
func (s *Scene) Nodes() []*Node { return s.nodes }

// Len reports the number of nodes.
func (s *Scene) Len() int { return len(s.nodes) }

// Model is a loaded asset template: read-only after load, cloned per
// placement. Payload bytes are opaque (no format parsing here).
type Model struct {
	Name    string
	Payload []byte
	Mesh    *Mesh
}

// Instantiate returns an independent, hidden node sharing nothing
// mutable with the template.
func (m *Model) Instantiate() *Node {
	mesh := *m.Mesh
	n := NewNode(m.Name, &mesh)
	n.ID = uuid.NewString()
	return n
}
