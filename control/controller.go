// Package control owns the session lifecycle: capability check, session
// request, reference-space negotiation with fallback, the per-frame
// reticle update, and gesture-driven placement.
package control

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"doorstep/assets"
	"doorstep/scene"
	"doorstep/status"
	"doorstep/xr"
)

// State is the controller lifecycle.
type State uint8

const (
	StateIdle State = iota
	StateRequesting
	StateActive
	StateEnded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// worldSpaceCandidates is the ordered world-frame preference: roomscale
// first, simple floor-relative as fallback. First success wins.
var worldSpaceCandidates = []xr.ReferenceSpaceType{
	xr.RefBoundedFloor,
	xr.RefLocalFloor,
}

// Renderer draws the scene with the frame's camera.
type Renderer interface {
	Render(cam xr.Camera, s *scene.Scene)
}

// Config wires a Controller. System and Reporter are required; a nil
// Renderer renders nothing and a nil Loader leaves placement disabled.
type Config struct {
	System    xr.System
	Loader    assets.Loader
	AssetPath string
	Reporter  *status.Reporter
	Renderer  Renderer
}

// Controller is constructed once and handed by reference to the frame
// loop host and the input source. All methods must be called from the
// single loop goroutine.
type Controller struct {
	sys       xr.System
	loader    assets.Loader
	assetPath string
	report    *status.Reporter
	renderer  Renderer

	state      State
	session    xr.Session
	viewer     xr.ReferenceSpace
	world      xr.ReferenceSpace
	hitSource  xr.HitTestSource
	presenting bool

	scene      *scene.Scene
	reticle    *scene.Node
	template   *scene.Model
	pending    <-chan assets.Result
	sceneBuilt bool
}

func New(cfg Config) *Controller {
	if cfg.Reporter == nil {
		cfg.Reporter = status.New(nil, nil)
	}
	return &Controller{
		sys:       cfg.System,
		loader:    cfg.Loader,
		assetPath: cfg.AssetPath,
		report:    cfg.Reporter,
		renderer:  cfg.Renderer,
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Scene returns the scene graph, nil before the first session start.
func (c *Controller) Scene() *scene.Scene { return c.scene }

// Reticle returns the cursor node, nil before the first session start.
func (c *Controller) Reticle() *scene.Node { return c.reticle }

// Template returns the loaded placement template, nil until load
// succeeds.
func (c *Controller) Template() *scene.Model { return c.template }

// Presenting reports whether an active session owns the output surface.
func (c *Controller) Presenting() bool { return c.presenting }

// Start checks device capability, requests an immersive session with
// hit-testing required, builds the scene once, kicks the asset load,
// and negotiates reference spaces. One attempt, no retry: session
// requests need a fresh gesture context on real platforms.
func (c *Controller) Start(ctx context.Context) error {
	if c.state != StateIdle {
		return fmt.Errorf("start: controller is %s, want idle", c.state)
	}

	supported, err := c.sys.IsSessionSupported(ctx, xr.ModeImmersiveAR)
	if err == nil && !supported {
		err = xr.ErrNotSupported
	}
	if err != nil {
		c.report.Error("immersive AR unavailable", err)
		c.state = StateFailed
		return fmt.Errorf("capability check: %w", err)
	}

	c.state = StateRequesting
	c.report.Set("starting immersive session")
	sess, err := c.sys.RequestSession(ctx, xr.ModeImmersiveAR, xr.SessionOptions{
		RequiredFeatures: []xr.Feature{xr.FeatureHitTest},
	})
	if err != nil {
		c.report.Error("session request", err)
		c.state = StateFailed
		return fmt.Errorf("request session: %w", err)
	}

	c.session = sess
	c.state = StateActive
	c.presenting = true
	c.buildScene()
	sess.OnSelect(c.OnSelect)
	sess.OnEnd(c.End)

	if c.loader != nil && c.assetPath != "" {
		c.pending = assets.Fetch(ctx, c.loader, c.assetPath)
	}

	if err := c.setupSpaces(ctx); err != nil {
		return err
	}
	c.report.Set("point at a surface and select to place")
	return nil
}

// setupSpaces acquires the viewer frame (hit-test ray origin), the
// world frame via the ordered candidate list, and the hit-test source.
// Any failure here terminates the already-open session so the device
// is not left half-configured.
func (c *Controller) setupSpaces(ctx context.Context) error {
	sess := c.session

	viewer, err := sess.RequestReferenceSpace(ctx, xr.RefViewer)
	if err != nil {
		return c.fail("viewer space", err)
	}

	var world xr.ReferenceSpace
	for _, t := range worldSpaceCandidates {
		sp, err := sess.RequestReferenceSpace(ctx, t)
		if err != nil {
			c.report.Logf("reference space %q unavailable: %v", t, err)
			continue
		}
		world = sp
		break
	}
	if world == nil {
		return c.fail("world space", xr.ErrSpaceUnavailable)
	}

	src, err := sess.RequestHitTestSource(ctx, xr.HitTestOptions{Space: viewer})
	if err != nil {
		return c.fail("hit-test source", err)
	}

	c.viewer = viewer
	c.world = world
	c.hitSource = src
	return nil
}

// fail reports err, tears the session down, and marks the controller
// failed.
func (c *Controller) fail(op string, err error) error {
	c.report.Error(op, err)
	c.End()
	c.state = StateFailed
	return fmt.Errorf("%s: %w", op, err)
}

// buildScene runs exactly once, after the first successful session
// start: lights, the hidden reticle ring in manual-matrix mode.
func (c *Controller) buildScene() {
	if c.sceneBuilt {
		return
	}
	c.sceneBuilt = true
	c.scene = scene.New()
	c.scene.Hemisphere = &scene.HemisphereLight{
		SkyColor:    0xffffff,
		GroundColor: 0xbbbbff,
		Intensity:   1,
	}
	c.scene.Directional = &scene.DirectionalLight{
		Color:     0xffffff,
		Intensity: 1,
		Direction: r3.Vec{X: 0.5, Y: -1, Z: 0.25},
	}
	c.reticle = scene.NewNode("reticle", scene.RingMesh(0.15, 0.2))
	c.reticle.SetMatrix(c.reticle.Matrix())
	c.scene.Add(c.reticle)
}

// OnFrame is the frame loop body, invoked once per presentable frame.
// frame may be nil; every platform handle is re-checked each call.
func (c *Controller) OnFrame(ts float64, frame xr.Frame) {
	_ = ts
	c.drainAsset()

	if !c.presenting || frame == nil {
		if c.reticle != nil {
			c.reticle.Visible = false
		}
		return
	}

	cam := frame.Camera()

	if c.hitSource != nil && c.world != nil {
		results := frame.HitTestResults(c.hitSource)
		if len(results) > 0 {
			// Latest single best hit; the rest are discarded.
			if m, ok := results[0].Pose(c.world); ok {
				c.reticle.Visible = true
				c.reticle.SetMatrix(m)
			} else {
				c.reticle.Visible = false
			}
		} else {
			c.reticle.Visible = false
		}
	} else if c.reticle != nil {
		c.reticle.Visible = false
	}

	if c.scene != nil && c.renderer != nil {
		c.renderer.Render(cam, c.scene)
	}
}

// drainAsset consumes a finished asset load, if any, on the loop
// goroutine. Load failure is non-fatal: the session keeps running,
// placement just stays unavailable.
func (c *Controller) drainAsset() {
	if c.pending == nil {
		return
	}
	select {
	case res := <-c.pending:
		c.pending = nil
		if res.Err != nil {
			c.report.Error("load model", res.Err)
			return
		}
		c.template = res.Model
		c.report.Logf("model %s ready (%d bytes)", res.Model.Name, len(res.Model.Payload))
	default:
	}
}

// OnSelect places one clone of the template at the reticle pose.
// A gesture with the reticle hidden or the model not yet loaded is a
// logged no-op.
func (c *Controller) OnSelect() {
	if c.reticle == nil || !c.reticle.Visible || c.template == nil {
		c.report.Logf("select ignored: no placement target")
		return
	}
	n := c.template.Instantiate()
	pos, rot, scale := c.reticle.Matrix().Decompose()
	n.SetTRS(pos, rot, scale)
	n.Visible = true
	c.scene.Add(n)
	c.report.Logf("placed %s %s", n.Name, n.ID)
}

// End tears the run down: cancel the hit-test source, clear both
// spaces and the session handle, hide the reticle, stop presenting.
// Idempotent, and safe before any session was started. Also registered
// as the session's end handler, so platform-initiated ends arrive here.
func (c *Controller) End() {
	if c.hitSource != nil {
		c.hitSource.Cancel()
		c.hitSource = nil
	}
	c.viewer = nil
	c.world = nil
	if c.reticle != nil {
		c.reticle.Visible = false
	}
	sess := c.session
	c.session = nil
	c.presenting = false
	if c.state == StateActive || c.state == StateRequesting {
		c.state = StateEnded
	}
	if sess != nil {
		_ = sess.End()
	}
}
