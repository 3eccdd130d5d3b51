// Package render draws the scene as a wireframe projection on an
// ebiten surface and hosts the frame loop, windowed or headless.
package render

import (
	"image/color"
	"math"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r3"

	"doorstep/geom"
	"doorstep/scene"
	"doorstep/xr"
)

const ringSegments = 24

var (
	reticleColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	meshColor    = color.RGBA{R: 0x80, G: 0xc0, B: 0xff, A: 0xff}
	background   = color.RGBA{R: 0x10, G: 0x10, B: 0x18, A: 0xff}
)

type segment struct {
	x0, y0, x1, y1 float32
	col            color.RGBA
}

// Canvas is the render surface: it accumulates projected line segments
// on Render and replays them on Draw. It also carries the status
// overlay text, so it satisfies status.Overlay.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	segs   []segment
	text   string
}

// NewCanvas returns a canvas of the given pixel size.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{width: width, height: height}
}

// Size returns the canvas pixel dimensions.
func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// Resize changes the surface size. The window host calls this only
// while no session is presenting; an active session owns its surface.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if width > 0 {
		c.width = width
	}
	if height > 0 {
		c.height = height
	}
}

// SetText replaces the overlay text wholesale.
func (c *Canvas) SetText(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = s
}

// Clear hides the overlay.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = ""
}

// Render projects every visible meshed node through the frame camera
// and replaces the segment list.
func (c *Canvas) Render(cam xr.Camera, s *scene.Scene) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.segs = c.segs[:0]
	if s == nil {
		return
	}
	vp := cam.Projection.Mul(cam.View)
	for _, n := range s.Nodes() {
		if !n.Visible || n.Mesh == nil {
			continue
		}
		mvp := vp.Mul(n.Matrix())
		col := meshColor
		if n.Mesh.Kind == scene.MeshRing {
			col = reticleColor
		}
		for _, e := range meshEdges(n.Mesh) {
			c.project(mvp, e[0], e[1], col)
		}
	}
}

// project clips trivially against the near plane and maps NDC to
// pixels.
func (c *Canvas) project(mvp geom.Mat4, a, b r3.Vec, col color.RGBA) {
	pa, wa := mvp.ApplyH(a)
	pb, wb := mvp.ApplyH(b)
	if wa <= 0 || wb <= 0 {
		return
	}
	x0 := float32((pa.X/wa + 1) / 2 * float64(c.width))
	y0 := float32((1 - pa.Y/wa) / 2 * float64(c.height))
	x1 := float32((pb.X/wb + 1) / 2 * float64(c.width))
	y1 := float32((1 - pb.Y/wb) / 2 * float64(c.height))
	c.segs = append(c.segs, segment{x0: x0, y0: y0, x1: x1, y1: y1, col: col})
}

// meshEdges returns the wireframe edge list in mesh-local space.
func meshEdges(m *scene.Mesh) [][2]r3.Vec {
	switch m.Kind {
	case scene.MeshRing:
		edges := make([][2]r3.Vec, 0, 2*ringSegments)
		for _, r := range []float64{m.Inner, m.Outer} {
			for i := 0; i < ringSegments; i++ {
				a0 := 2 * math.Pi * float64(i) / ringSegments
				a1 := 2 * math.Pi * float64(i+1) / ringSegments
				edges = append(edges, [2]r3.Vec{
					{X: r * math.Cos(a0), Z: r * math.Sin(a0)},
					{X: r * math.Cos(a1), Z: r * math.Sin(a1)},
				})
			}
		}
		return edges
	case scene.MeshBox:
		hw, h, hd := m.Width/2, m.Height, m.Depth/2
		bottom := [4]r3.Vec{
			{X: -hw, Y: 0, Z: -hd}, {X: hw, Y: 0, Z: -hd},
			{X: hw, Y: 0, Z: hd}, {X: -hw, Y: 0, Z: hd},
		}
		var edges [][2]r3.Vec
		for i := 0; i < 4; i++ {
			j := (i + 1) % 4
			ti, tj := bottom[i], bottom[j]
			ti.Y, tj.Y = h, h
			edges = append(edges,
				[2]r3.Vec{bottom[i], bottom[j]},
				[2]r3.Vec{ti, tj},
				[2]r3.Vec{bottom[i], ti},
			)
		}
		return edges
	}
	return nil
}

// SegmentCount reports how many segments the last Render produced.
func (c *Canvas) SegmentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.segs)
}

// Draw replays the last rendered frame onto an ebiten image.
func (c *Canvas) Draw(screen *ebiten.Image) {
	c.mu.Lock()
	segs := append([]segment(nil), c.segs...)
	text := c.text
	c.mu.Unlock()

	screen.Fill(background)
	for _, s := range segs {
		vector.StrokeLine(screen, s.x0, s.y0, s.x1, s.y1, 1, s.col, true)
	}
	if text != "" {
		ebitenutil.DebugPrint(screen, text)
	}
}
