package control

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"doorstep/assets"
	"doorstep/geom"
	"doorstep/scene"
	"doorstep/status"
	"doorstep/xr"
)

type recordOverlay struct {
	text string
}

func (o *recordOverlay) SetText(s string) { o.text = s }
func (o *recordOverlay) Clear()           { o.text = "" }

type countRenderer struct {
	calls int
	scene *scene.Scene
}

func (r *countRenderer) Render(_ xr.Camera, s *scene.Scene) {
	r.calls++
	r.scene = s
}

type stubHit struct {
	m  geom.Mat4
	ok bool
}

func (h stubHit) Pose(xr.ReferenceSpace) (geom.Mat4, bool) { return h.m, h.ok }

type stubFrame struct {
	hits []xr.HitTestResult
}

func (f *stubFrame) HitTestResults(xr.HitTestSource) []xr.HitTestResult { return f.hits }
func (f *stubFrame) ViewerPose(xr.ReferenceSpace) (geom.Mat4, bool)     { return geom.Identity(), true }
func (f *stubFrame) Camera() xr.Camera {
	return xr.Camera{View: geom.Identity(), Projection: geom.Identity()}
}

func frameWithHit(m geom.Mat4) *stubFrame {
	return &stubFrame{hits: []xr.HitTestResult{stubHit{m: m, ok: true}}}
}

type fixture struct {
	sim      *xr.Sim
	ctrl     *Controller
	renderer *countRenderer
	overlay  *recordOverlay
}

func newFixture(t *testing.T, simCfg xr.SimConfig, assetPath string) *fixture {
	t.Helper()
	f := &fixture{
		sim:      xr.NewSim(simCfg),
		renderer: &countRenderer{},
		overlay:  &recordOverlay{},
	}
	cfg := Config{
		System:   f.sim,
		Reporter: status.New(f.overlay, nil),
		Renderer: f.renderer,
	}
	if assetPath != "" {
		cfg.Loader = assets.FileLoader{}
		cfg.AssetPath = assetPath
	}
	f.ctrl = New(cfg)
	return f
}

func startActive(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.ctrl.Start(context.Background()))
	require.Equal(t, StateActive, f.ctrl.State())
	require.True(t, f.ctrl.Presenting())
}

func writeAsset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "door.model")
	require.NoError(t, os.WriteFile(path, []byte("opaque"), 0o644))
	return path
}

// waitTemplate pumps the frame loop until the async load lands.
func waitTemplate(t *testing.T, c *Controller) {
	t.Helper()
	for i := 0; i < 200; i++ {
		c.OnFrame(0, nil)
		if c.Template() != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("asset load result never arrived")
}

func TestUnsupportedDeviceSkipsSessionRequest(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: false}, "")

	err := f.ctrl.Start(context.Background())

	require.ErrorIs(t, err, xr.ErrNotSupported)
	assert.Equal(t, StateFailed, f.ctrl.State())
	assert.Zero(t, f.sim.SessionRequests(), "no session request may be attempted")
	assert.Contains(t, f.overlay.text, "unavailable")
}

func TestSessionRequestRejected(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true, RejectSession: true}, "")

	err := f.ctrl.Start(context.Background())

	require.ErrorIs(t, err, xr.ErrSessionRejected)
	assert.Equal(t, StateFailed, f.ctrl.State())
	assert.Equal(t, 1, f.sim.SessionRequests(), "single attempt, no retry")
}

func TestWorldSpaceFallback(t *testing.T) {
	f := newFixture(t, xr.SimConfig{
		Supported:  true,
		DenySpaces: []xr.ReferenceSpaceType{xr.RefBoundedFloor},
	}, "")

	startActive(t, f)

	assert.False(t, f.sim.SessionEnded(), "fallback success must not terminate the session")
	assert.NotContains(t, f.overlay.text, "unavailable", "no error surfaced on fallback")
}

func TestWorldSpaceExhaustionTerminatesSession(t *testing.T) {
	f := newFixture(t, xr.SimConfig{
		Supported:  true,
		DenySpaces: []xr.ReferenceSpaceType{xr.RefBoundedFloor, xr.RefLocalFloor},
	}, "")

	err := f.ctrl.Start(context.Background())

	require.ErrorIs(t, err, xr.ErrSpaceUnavailable)
	assert.Equal(t, StateFailed, f.ctrl.State())
	assert.True(t, f.sim.SessionEnded(), "half-configured session must be actively terminated")
	assert.False(t, f.ctrl.Presenting())
}

func TestHitTestSourceDenialTerminatesSession(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true, DenyHitTest: true}, "")

	err := f.ctrl.Start(context.Background())

	require.ErrorIs(t, err, xr.ErrHitTestUnavailable)
	assert.Equal(t, StateFailed, f.ctrl.State())
	assert.True(t, f.sim.SessionEnded())
}

func TestNilFrameHidesReticleAndSkipsRender(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)

	f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
	require.True(t, f.ctrl.Reticle().Visible)
	renders := f.renderer.calls

	f.ctrl.OnFrame(16, nil)

	assert.False(t, f.ctrl.Reticle().Visible)
	assert.Equal(t, renders, f.renderer.calls, "no render call without a frame")
}

func TestResolvedHitDrivesReticlePose(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)

	pose := geom.Translate(r3.Vec{X: 0.5, Z: -1.25}).Mul(geom.RotateY(0.8))
	f.ctrl.OnFrame(0, frameWithHit(pose))

	assert.True(t, f.ctrl.Reticle().Visible)
	assert.Empty(t, cmp.Diff(pose, f.ctrl.Reticle().Matrix(), cmpopts.EquateApprox(0, 1e-12)))
	assert.Equal(t, 1, f.renderer.calls)
	assert.Same(t, f.ctrl.Scene(), f.renderer.scene)
}

func TestNoResultsHidesReticle(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)

	f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
	require.True(t, f.ctrl.Reticle().Visible)

	f.ctrl.OnFrame(16, &stubFrame{})

	assert.False(t, f.ctrl.Reticle().Visible)
	assert.Equal(t, 2, f.renderer.calls, "render still happens on empty-result frames")
}

func TestUnresolvedPoseHidesReticle(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)

	f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
	require.True(t, f.ctrl.Reticle().Visible)

	f.ctrl.OnFrame(16, &stubFrame{hits: []xr.HitTestResult{stubHit{ok: false}}})

	assert.False(t, f.ctrl.Reticle().Visible)
}

func TestFirstHitWins(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)

	first := geom.Translate(r3.Vec{X: 1})
	second := geom.Translate(r3.Vec{X: 2})
	f.ctrl.OnFrame(0, &stubFrame{hits: []xr.HitTestResult{
		stubHit{m: first, ok: true},
		stubHit{m: second, ok: true},
	}})

	assert.Empty(t, cmp.Diff(first, f.ctrl.Reticle().Matrix()))
}

func TestSelectRequiresVisibleReticleAndTemplate(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)
	base := f.ctrl.Scene().Len()

	// Reticle visible, no template.
	f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
	f.sim.Select()
	assert.Equal(t, base, f.ctrl.Scene().Len())

	// Template present, reticle hidden.
	f.ctrl.template = &scene.Model{Name: "door", Mesh: scene.BoxMesh(0.9, 2, 0.08)}
	f.ctrl.OnFrame(16, &stubFrame{})
	f.sim.Select()
	assert.Equal(t, base, f.ctrl.Scene().Len())

	// Both conditions met.
	f.ctrl.OnFrame(32, frameWithHit(geom.Identity()))
	f.sim.Select()
	assert.Equal(t, base+1, f.ctrl.Scene().Len())
}

func TestPlacementsAreIndependent(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, writeAsset(t))
	startActive(t, f)
	waitTemplate(t, f.ctrl)
	base := f.ctrl.Scene().Len()

	poseA := geom.Translate(r3.Vec{X: 1, Z: -2}).Mul(geom.RotateY(0.3))
	poseB := geom.Translate(r3.Vec{X: -0.5, Z: -1}).Mul(geom.RotateY(2.1))

	f.ctrl.OnFrame(0, frameWithHit(poseA))
	f.sim.Select()
	f.ctrl.OnFrame(16, frameWithHit(poseB))
	f.sim.Select()

	nodes := f.ctrl.Scene().Nodes()
	require.Equal(t, base+2, len(nodes))
	a, b := nodes[len(nodes)-2], nodes[len(nodes)-1]

	assert.True(t, a.Visible)
	assert.True(t, b.Visible)
	assert.NotEqual(t, a.ID, b.ID)
	approx := cmpopts.EquateApprox(0, 1e-9)
	assert.Empty(t, cmp.Diff(poseA, a.Matrix(), approx))
	assert.Empty(t, cmp.Diff(poseB, b.Matrix(), approx))
	assert.NotEmpty(t, cmp.Diff(a.Matrix(), b.Matrix(), approx),
		"differing gesture poses must yield differing placements")

	// The template is never mutated by placement.
	require.NotNil(t, f.ctrl.Template())
	assert.Equal(t, 2.0, f.ctrl.Template().Mesh.Height)
	assert.NotSame(t, f.ctrl.Template().Mesh, a.Mesh)
}

func TestAssetLoadFailureIsNonFatal(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, filepath.Join(t.TempDir(), "absent.model"))
	startActive(t, f)

	// Let the failed load land; the session keeps running.
	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, StateActive, f.ctrl.State())
	assert.Nil(t, f.ctrl.Template())

	base := f.ctrl.Scene().Len()
	f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
	f.sim.Select()
	assert.Equal(t, base, f.ctrl.Scene().Len(), "placement stays unavailable for the run")
}

func TestEndIsIdempotent(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)
	f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
	require.True(t, f.ctrl.Reticle().Visible)

	f.ctrl.End()
	f.ctrl.End()

	assert.Equal(t, StateEnded, f.ctrl.State())
	assert.False(t, f.ctrl.Presenting())
	assert.False(t, f.ctrl.Reticle().Visible)
	assert.True(t, f.sim.SessionEnded())
	assert.Nil(t, f.ctrl.hitSource)
	assert.Nil(t, f.ctrl.world)
	assert.Nil(t, f.ctrl.session)
}

func TestEndOnIdleControllerIsSafe(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")

	f.ctrl.End()
	f.ctrl.End()

	assert.Equal(t, StateIdle, f.ctrl.State())
}

func TestPlatformEndTearsDown(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)

	f.sim.TriggerEnd()

	assert.Equal(t, StateEnded, f.ctrl.State())
	assert.False(t, f.ctrl.Presenting())

	// Frames after teardown keep the reticle hidden.
	f.ctrl.OnFrame(0, frameWithHit(geom.Identity()))
	assert.False(t, f.ctrl.Reticle().Visible)
}

func TestStartTwiceFails(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	startActive(t, f)

	err := f.ctrl.Start(context.Background())
	assert.Error(t, err)
}

func TestStartCancelledContext(t *testing.T) {
	f := newFixture(t, xr.SimConfig{Supported: true}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.ctrl.Start(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateFailed, f.ctrl.State())
}
