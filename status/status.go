// Package status surfaces human-readable state to the overlay and the
// line log. Messages replace the overlay text wholesale.
package status

import (
	"fmt"

	"doorstep/xr"
)

// Overlay is the on-screen text region. Implementations show the text
// while non-empty and hide the region when cleared.
type Overlay interface {
	SetText(s string)
	Clear()
}

// Reporter fans one message out to the overlay and the log. It holds no
// state beyond its two sinks; either may be nil.
type Reporter struct {
	overlay Overlay
	log     xr.Logger
}

func New(overlay Overlay, log xr.Logger) *Reporter {
	return &Reporter{overlay: overlay, log: log}
}

// Set replaces the overlay text and mirrors it to the log.
func (r *Reporter) Set(msg string) {
	if r.overlay != nil {
		r.overlay.SetText(msg)
	}
	if r.log != nil {
		r.log.WriteLineString(msg)
	}
}

// Setf is Set with formatting.
func (r *Reporter) Setf(format string, args ...any) {
	r.Set(fmt.Sprintf(format, args...))
}

// Error reports a failed operation.
func (r *Reporter) Error(op string, err error) {
	r.Setf("%s: %v", op, err)
}

// Logf writes to the log only, leaving the overlay untouched.
func (r *Reporter) Logf(format string, args ...any) {
	if r.log != nil {
		r.log.WriteLineString(fmt.Sprintf(format, args...))
	}
}

// Clear hides the overlay.
func (r *Reporter) Clear() {
	if r.overlay != nil {
		r.overlay.Clear()
	}
}
