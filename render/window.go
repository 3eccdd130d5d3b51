package render

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"doorstep/internal/buildinfo"
)

// Loop is what the hosts drive: one step per displayed frame, a select
// gesture channel, and whether a session currently owns the surface.
type Loop interface {
	Step(dt float64) error
	Select()
	Presenting() bool
}

// WindowConfig shapes the desktop host.
type WindowConfig struct {
	Title string
	Scale int
}

// RunWindow opens a desktop window that displays the canvas and
// forwards mouse/keyboard select gestures. It blocks until the window
// closes or the loop fails.
func RunWindow(l Loop, c *Canvas, cfg WindowConfig) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 2
	}
	if cfg.Title == "" {
		cfg.Title = "doorstep (" + buildinfo.Short() + ")"
	}
	w, h := c.Size()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(w*cfg.Scale, h*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)
	return ebiten.RunGame(&hostGame{loop: l, canvas: c})
}

type hostGame struct {
	loop   Loop
	canvas *Canvas
}

func (g *hostGame) Update() error {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) ||
		inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.loop.Select()
	}
	return g.loop.Step(1.0 / 60)
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	g.canvas.Draw(screen)
}

// Layout forwards viewport resizes to the canvas only while no session
// is presenting; an active session controls its own output size.
func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	if !g.loop.Presenting() {
		g.canvas.Resize(outsideWidth, outsideHeight)
	}
	w, h := g.canvas.Size()
	return w, h
}
