package tui

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/cactusdynamics/liveplot"
)

func startTuiPlotter(t *testing.T) (*liveplot.Plotter, *Renderer) {
	t.Helper()

	r := NewRenderer(Options{Output: io.Discard})

	options := liveplot.DefaultOptions()
	options.FrameInterval = 5 * time.Millisecond
	p := liveplot.NewPlotter(r, options)

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	t.Cleanup(func() {
		p.Stop()
		p.Wait()
	})

	return p, r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRenderer(t *testing.T) {
	t.Run("Lifecycle", func(t *testing.T) {
		p, _ := startTuiPlotter(t)

		if err := p.AppendDynamic("circle", 0.0, 0.5, 100, "X", "Y"); err != nil {
			t.Fatal(err)
		}
		if !p.IsRunning() {
			t.Fatalf("phase = %v", p.Phase())
		}

		p.Stop()
		select {
		case <-p.Done():
		case <-time.After(3 * time.Second):
			t.Fatalf("plotter did not finalize")
		}
	})

	t.Run("PauseKey", func(t *testing.T) {
		p, r := startTuiPlotter(t)

		r.input.pauseToggles.Add(1)
		waitFor(t, p.IsPaused)

		r.input.pauseToggles.Add(1)
		waitFor(t, func() bool { return p.Phase() == liveplot.PhaseRunning })
	})

	t.Run("QuitKeyClosesPlotter", func(t *testing.T) {
		p, r := startTuiPlotter(t)

		r.program.Send(quitKey())

		select {
		case <-p.Done():
		case <-time.After(3 * time.Second):
			t.Fatalf("plotter did not finalize after quit key")
		}
	})
}
