// Package app wires the simulated device, controller, renderer, and
// status surfaces into one steppable demo.
package app

import (
	"context"

	"doorstep/assets"
	"doorstep/control"
	"doorstep/render"
	"doorstep/status"
	"doorstep/xr"
)

// Config selects the asset and the simulated-device scenario.
type Config struct {
	AssetPath string
	Width     int
	Height    int
	Sim       xr.SimConfig
}

// App drives one controller against one simulated device. It satisfies
// render.Loop so either host can run it.
type App struct {
	ctx    context.Context
	sim    *xr.Sim
	ctrl   *control.Controller
	canvas *render.Canvas
	report *status.Reporter

	started bool
	clock   float64
}

// New builds the demo. The session auto-starts on the first step, the
// way the original starts on page load.
func New(ctx context.Context, cfg Config) *App {
	if cfg.Width <= 0 {
		cfg.Width = 480
	}
	if cfg.Height <= 0 {
		cfg.Height = 360
	}
	if cfg.Sim.Aspect <= 0 {
		cfg.Sim.Aspect = float64(cfg.Width) / float64(cfg.Height)
	}

	canvas := render.NewCanvas(cfg.Width, cfg.Height)
	report := status.New(canvas, xr.NewStdoutLogger())
	sim := xr.NewSim(cfg.Sim)
	ctrl := control.New(control.Config{
		System:    sim,
		Loader:    assets.FileLoader{},
		AssetPath: cfg.AssetPath,
		Reporter:  report,
		Renderer:  canvas,
	})
	return &App{ctx: ctx, sim: sim, ctrl: ctrl, canvas: canvas, report: report}
}

// Canvas returns the render surface for the host to display.
func (a *App) Canvas() *render.Canvas { return a.canvas }

// Controller exposes the session controller.
func (a *App) Controller() *control.Controller { return a.ctrl }

// Step advances the device and runs one frame-loop iteration. A failed
// session start is terminal for placement but keeps the loop alive so
// the status text stays on screen.
func (a *App) Step(dt float64) error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	if !a.started {
		a.started = true
		if err := a.ctrl.Start(a.ctx); err != nil {
			a.report.Logf("session start failed: %v", err)
		}
	}
	a.sim.Step(dt)
	a.clock += dt
	a.ctrl.OnFrame(a.clock*1000, a.sim.NewFrame())
	return nil
}

// Select forwards a select gesture to the device, which dispatches it
// to the session's handler.
func (a *App) Select() { a.sim.Select() }

// Presenting reports whether the session owns the output surface.
func (a *App) Presenting() bool { return a.ctrl.Presenting() }
