package xr

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"doorstep/geom"
)

// Pad is a raised rectangular surface the simulated hit-test ray can
// land on, in addition to the floor.
type Pad struct {
	Center     r3.Vec
	HalfExtent float64
}

// SimConfig shapes the simulated device.
type SimConfig struct {
	// Supported gates the capability query for ModeImmersiveAR.
	Supported bool
	// RejectSession makes every session request fail after the
	// capability query has passed.
	RejectSession bool
	// DenySpaces lists reference-space types the device refuses.
	DenySpaces []ReferenceSpaceType
	// DenyHitTest refuses hit-test source requests.
	DenyHitTest bool
	// DenyPoseResolve makes every per-frame pose query unresolvable.
	DenyPoseResolve bool

	// FloorHalfExtent bounds the trackable floor square (default 3m).
	FloorHalfExtent float64
	// Pads are extra raised surfaces in front of the floor.
	Pads []Pad
	// Aspect is the simulated camera aspect ratio (default 1).
	Aspect float64
}

// Sim is a scripted spatial-tracking device: one floor plane, optional
// pads, and a viewer slowly orbiting the origin. It implements System
// and hands out frames on demand.
type Sim struct {
	mu  sync.Mutex
	cfg SimConfig

	t       float64
	viewer  geom.Mat4
	view    geom.Mat4
	session *simSession

	sessionRequests int
}

// NewSim builds a simulated device. The viewer starts 2.5m from the
// origin at standing height, facing the floor center.
func NewSim(cfg SimConfig) *Sim {
	if cfg.FloorHalfExtent <= 0 {
		cfg.FloorHalfExtent = 3
	}
	if cfg.Aspect <= 0 {
		cfg.Aspect = 1
	}
	s := &Sim{cfg: cfg}
	s.place(0)
	return s
}

func (s *Sim) place(t float64) {
	angle := 0.2 * t
	eye := r3.Vec{
		X: 2.5 * math.Sin(angle),
		Y: 1.6 + 0.05*math.Sin(1.3*t),
		Z: 2.5 * math.Cos(angle),
	}
	target := r3.Vec{X: 0.4 * math.Sin(0.5*t), Y: 0, Z: 0.4 * math.Cos(0.5*t)}
	s.view = geom.LookAt(eye, target, r3.Vec{Y: 1})
	s.viewer = s.view.RigidInverse()
}

// Step advances the scripted viewer by dt seconds.
func (s *Sim) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t += dt
	s.place(s.t)
}

// IsSessionSupported implements System.
func (s *Sim) IsSessionSupported(ctx context.Context, mode SessionMode) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if mode != ModeImmersiveAR {
		return false, nil
	}
	return s.cfg.Supported, nil
}

// RequestSession implements System. Only one session is live at a time;
// a second request while one is active is rejected.
func (s *Sim) RequestSession(ctx context.Context, mode SessionMode, opts SessionOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionRequests++
	if !s.cfg.Supported || mode != ModeImmersiveAR {
		return nil, fmt.Errorf("%w: mode %q", ErrNotSupported, mode)
	}
	if s.cfg.RejectSession {
		return nil, ErrSessionRejected
	}
	if s.session != nil && !s.session.ended {
		return nil, fmt.Errorf("%w: session already active", ErrSessionRejected)
	}
	// Feature grants are optimistic here: a denied hit-test surfaces at
	// RequestHitTestSource, after the session is already open.
	s.session = &simSession{sim: s}
	return s.session, nil
}

// SessionRequests reports how many session requests the device has seen.
func (s *Sim) SessionRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionRequests
}

// SessionEnded reports whether the most recent session has been
// terminated (false when none was ever granted).
func (s *Sim) SessionEnded() bool {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	return sess != nil && sess.Ended()
}

// SessionEndCalls reports how many End calls the most recent session saw.
func (s *Sim) SessionEndCalls() int {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.EndCalls()
}

// Select injects a select gesture into the active session.
func (s *Sim) Select() {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		sess.dispatchSelect()
	}
}

// TriggerEnd simulates a platform-initiated session end.
func (s *Sim) TriggerEnd() {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		_ = sess.End()
	}
}

// NewFrame snapshots the current device state as a frame, or returns
// nil when no session is live (the loop must tolerate nil frames).
func (s *Sim) NewFrame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.ended {
		return nil
	}
	f := &simFrame{
		session: s.session,
		viewer:  s.viewer,
		cam: Camera{
			View:       s.view,
			Projection: geom.Perspective(60*math.Pi/180, s.cfg.Aspect, 0.01, 20),
		},
		resolve: !s.cfg.DenyPoseResolve,
	}
	f.hits = s.castLocked()
	return f
}

// castLocked intersects the viewer's forward ray with the pads and the
// floor, nearest first.
func (s *Sim) castLocked() []geom.Mat4 {
	origin := s.viewer.Position()
	dir := r3.Vec{X: -s.viewer[2], Y: -s.viewer[6], Z: -s.viewer[10]}

	type hit struct {
		t float64
		m geom.Mat4
	}
	var hits []hit
	add := func(height, cx, cz, half float64) {
		if math.Abs(dir.Y) < 1e-9 {
			return
		}
		t := (height - origin.Y) / dir.Y
		if t <= 0 {
			return
		}
		p := r3.Add(origin, r3.Scale(t, dir))
		if math.Abs(p.X-cx) > half || math.Abs(p.Z-cz) > half {
			return
		}
		yaw := math.Atan2(origin.X-p.X, origin.Z-p.Z)
		hits = append(hits, hit{t: t, m: geom.Translate(p).Mul(geom.RotateY(yaw))})
	}
	for _, pad := range s.cfg.Pads {
		add(pad.Center.Y, pad.Center.X, pad.Center.Z, pad.HalfExtent)
	}
	add(0, 0, 0, s.cfg.FloorHalfExtent)

	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].t < hits[j-1].t; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]geom.Mat4, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return out
}

type simSession struct {
	mu       sync.Mutex
	sim      *Sim
	ended    bool
	endCalls int
	source   *simSource
	onEnd    []func()
	onSelect []func()
}

func (ss *simSession) RequestReferenceSpace(ctx context.Context, t ReferenceSpaceType) (ReferenceSpace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.ended {
		return nil, ErrSessionEnded
	}
	for _, denied := range ss.sim.cfg.DenySpaces {
		if t == denied {
			return nil, fmt.Errorf("%w: %q", ErrSpaceUnavailable, t)
		}
	}
	return simSpace{t: t}, nil
}

func (ss *simSession) RequestHitTestSource(ctx context.Context, opts HitTestOptions) (HitTestSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.ended {
		return nil, ErrSessionEnded
	}
	if ss.sim.cfg.DenyHitTest {
		return nil, ErrHitTestUnavailable
	}
	if opts.Space == nil {
		return nil, fmt.Errorf("%w: no ray-origin space", ErrHitTestUnavailable)
	}
	src := &simSource{session: ss}
	ss.source = src
	return src, nil
}

func (ss *simSession) OnEnd(fn func()) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.onEnd = append(ss.onEnd, fn)
}

func (ss *simSession) OnSelect(fn func()) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.onSelect = append(ss.onSelect, fn)
}

// End is idempotent; end handlers fire once, on the first call.
func (ss *simSession) End() error {
	ss.mu.Lock()
	ss.endCalls++
	already := ss.ended
	ss.ended = true
	if ss.source != nil {
		ss.source.cancelled = true
		ss.source = nil
	}
	handlers := ss.onEnd
	ss.onEnd = nil
	ss.mu.Unlock()

	if already {
		return nil
	}
	for _, fn := range handlers {
		fn()
	}
	return nil
}

// Ended reports whether the session has been terminated.
func (ss *simSession) Ended() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.ended
}

// EndCalls reports how many times End was invoked.
func (ss *simSession) EndCalls() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.endCalls
}

func (ss *simSession) dispatchSelect() {
	ss.mu.Lock()
	ended := ss.ended
	handlers := append([]func(){}, ss.onSelect...)
	ss.mu.Unlock()
	if ended {
		return
	}
	for _, fn := range handlers {
		fn()
	}
}

type simSpace struct {
	t ReferenceSpaceType
}

func (s simSpace) Type() ReferenceSpaceType { return s.t }

type simSource struct {
	session   *simSession
	cancelled bool
}

func (s *simSource) Cancel() { s.cancelled = true }

type simFrame struct {
	session *simSession
	viewer  geom.Mat4
	cam     Camera
	hits    []geom.Mat4
	resolve bool
}

func (f *simFrame) HitTestResults(src HitTestSource) []HitTestResult {
	ss, ok := src.(*simSource)
	if !ok || ss == nil || ss.cancelled || ss.session != f.session {
		return nil
	}
	out := make([]HitTestResult, len(f.hits))
	for i, m := range f.hits {
		out[i] = simHit{m: m, resolve: f.resolve}
	}
	return out
}

func (f *simFrame) ViewerPose(space ReferenceSpace) (geom.Mat4, bool) {
	if space == nil || !f.resolve {
		return geom.Mat4{}, false
	}
	return f.viewer, true
}

func (f *simFrame) Camera() Camera { return f.cam }

type simHit struct {
	m       geom.Mat4
	resolve bool
}

func (h simHit) Pose(space ReferenceSpace) (geom.Mat4, bool) {
	if space == nil || !h.resolve {
		return geom.Mat4{}, false
	}
	return h.m, true
}
