// Package xr is the only contact point between the demo and the spatial
// tracking platform. It defines the session, reference-space, and
// hit-test contracts, plus a simulated device used by the desktop host
// and the tests.
package xr

import (
	"context"
	"errors"

	"doorstep/geom"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
}

var (
	ErrNotSupported       = errors.New("immersive session mode not supported")
	ErrSessionRejected    = errors.New("session request rejected")
	ErrSpaceUnavailable   = errors.New("reference space unavailable")
	ErrHitTestUnavailable = errors.New("hit-test source unavailable")
	ErrSessionEnded       = errors.New("session already ended")
)

// SessionMode selects the presentation mode of a requested session.
type SessionMode string

const (
	// ModeImmersiveAR composites rendered content over the real scene.
	ModeImmersiveAR SessionMode = "immersive-ar"
)

// Feature names a platform capability a session can require.
type Feature string

const (
	// FeatureHitTest enables per-frame surface intersection queries.
	FeatureHitTest Feature = "hit-test"
)

// ReferenceSpaceType names a coordinate frame poses are reported in.
type ReferenceSpaceType string

const (
	// RefViewer is head-locked; used only as a hit-test ray origin.
	RefViewer ReferenceSpaceType = "viewer"
	// RefBoundedFloor is a roomscale, floor-anchored frame.
	RefBoundedFloor ReferenceSpaceType = "bounded-floor"
	// RefLocalFloor is a simpler floor-relative frame.
	RefLocalFloor ReferenceSpaceType = "local-floor"
)

// SessionOptions declares what a requested session must provide.
type SessionOptions struct {
	RequiredFeatures []Feature
}

// System is the device entry point: capability query plus session request.
type System interface {
	IsSessionSupported(ctx context.Context, mode SessionMode) (bool, error)
	RequestSession(ctx context.Context, mode SessionMode, opts SessionOptions) (Session, error)
}

// ReferenceSpace is an opaque coordinate frame handle.
type ReferenceSpace interface {
	Type() ReferenceSpaceType
}

// HitTestSource is a per-frame surface intersection subscription.
// Cancel releases it; a cancelled source yields no further results.
type HitTestSource interface {
	Cancel()
}

// HitTestOptions binds a hit-test subscription to a ray-origin space.
type HitTestOptions struct {
	Space ReferenceSpace
}

// Session is one active run on the device. End is idempotent; handlers
// registered with OnEnd fire once, on user-, platform-, or caller-driven
// termination.
type Session interface {
	RequestReferenceSpace(ctx context.Context, t ReferenceSpaceType) (ReferenceSpace, error)
	RequestHitTestSource(ctx context.Context, opts HitTestOptions) (HitTestSource, error)
	OnEnd(fn func())
	OnSelect(fn func())
	End() error
}

// Camera is the per-frame view the renderer draws with.
type Camera struct {
	View       geom.Mat4
	Projection geom.Mat4
}

// HitTestResult is one ray-surface intersection for the current frame.
type HitTestResult interface {
	// Pose resolves the intersection transform in the given space.
	// ok is false when the pose cannot be expressed there this frame.
	Pose(space ReferenceSpace) (geom.Mat4, bool)
}

// Frame is the per-refresh snapshot handed to the frame loop. Results
// are ordered nearest first; consumers conventionally take the first.
type Frame interface {
	HitTestResults(src HitTestSource) []HitTestResult
	ViewerPose(space ReferenceSpace) (geom.Mat4, bool)
	Camera() Camera
}
