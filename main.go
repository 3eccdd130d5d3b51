package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"doorstep/app"
	"doorstep/render"
	"doorstep/xr"
)

func main() {
	var hcfg render.HeadlessConfig
	var acfg app.Config
	flag.BoolVar(&hcfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&hcfg.Hz, "hz", 60, "Tick rate in headless mode.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.StringVar(&acfg.AssetPath, "asset", "assets/door.model", "Placeable model file.")
	scale := flag.Int("scale", 2, "Window scale factor.")

	// Scenario switches for exercising the failure paths.
	unsupported := flag.Bool("unsupported", false, "Device reports immersive AR as unsupported.")
	reject := flag.Bool("reject-session", false, "Device rejects the session request.")
	denyBounded := flag.Bool("deny-bounded-floor", false, "Device refuses the roomscale reference space.")
	denyFloor := flag.Bool("deny-local-floor", false, "Device refuses the fallback reference space.")
	denyHitTest := flag.Bool("deny-hit-test", false, "Device refuses the hit-test source.")
	flag.Parse()

	acfg.Sim = xr.SimConfig{
		Supported:     !*unsupported,
		RejectSession: *reject,
		DenyHitTest:   *denyHitTest,
	}
	if *denyBounded {
		acfg.Sim.DenySpaces = append(acfg.Sim.DenySpaces, xr.RefBoundedFloor)
	}
	if *denyFloor {
		acfg.Sim.DenySpaces = append(acfg.Sim.DenySpaces, xr.RefLocalFloor)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := app.New(ctx, acfg)

	if hcfg.Enabled {
		if err := render.RunHeadless(ctx, a, hcfg); err != nil {
			if err == context.Canceled {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := render.RunWindow(a, a.Canvas(), render.WindowConfig{Scale: *scale}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
