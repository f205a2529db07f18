package liveplot

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func testOptions() Options {
	options := DefaultOptions()
	options.FrameInterval = time.Millisecond
	return options
}

func startTestPlotter(t *testing.T) (*Plotter, *RecordingRenderer) {
	t.Helper()

	r := NewRecordingRenderer(16)
	p := NewPlotter(r, testOptions())
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	t.Cleanup(func() {
		p.Stop()
		p.Wait()
	})

	return p, r
}

// waitFor polls cond until it is true or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitForFrame waits for a frame presented after the call that satisfies cond.
func waitForFrame(t *testing.T, r *RecordingRenderer, cond func(RecordedFrame) bool) RecordedFrame {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-r.NextFrame():
		case <-deadline:
			t.Fatalf("timed out waiting for frame")
		}

		frame, ok := r.LastFrame()
		if ok && cond(frame) {
			return frame
		}
	}
}

func TestPlotterLifecycle(t *testing.T) {
	t.Run("StartRenderStop", func(t *testing.T) {
		r := NewRecordingRenderer(4)
		p := NewPlotter(r, testOptions())

		if p.Phase() != PhaseNotStarted {
			t.Fatalf("phase = %v, want not started", p.Phase())
		}

		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}

		if !p.IsRunning() || p.IsPaused() || p.IsFinalized() {
			t.Fatalf("unexpected phase after start: %v", p.Phase())
		}
		if !r.Initialized() {
			t.Fatalf("renderer not initialized")
		}

		if err := p.UpsertStatic("Test", []float64{1, 2, 3}, [][]float64{{1, 2, 3}, {1, 4, 9}}, "X", []string{"Y1", "Y2"}); err != nil {
			t.Fatal(err)
		}
		if err := p.AppendDynamic("circle", 0.0, 0.5, 100, "X", "Y"); err != nil {
			t.Fatal(err)
		}

		frame := waitForFrame(t, r, func(f RecordedFrame) bool { return len(f.Plots) == 2 })

		static := frame.Plots[0]
		if static.Panel != StaticPanel || static.Plot.Kind != KindStatic || static.Plot.Title != "Test" {
			t.Fatalf("unexpected static plot: %+v", static)
		}
		if !static.Plot.AutoFit || !static.Plot.Legend || static.Plot.YLabel != "val" {
			t.Fatalf("unexpected static plot options: %+v", static.Plot)
		}
		if len(static.Plot.Lines) != 2 || static.Plot.Lines[1].Label != "Y2" || !reflect.DeepEqual(static.Plot.Lines[1].Y, []float64{1, 4, 9}) {
			t.Fatalf("unexpected static lines: %+v", static.Plot.Lines)
		}

		dynamic := frame.Plots[1]
		if dynamic.Panel != DynamicPanel || dynamic.Plot.Kind != KindDynamic || dynamic.Plot.XLabel != "X" || dynamic.Plot.YLabel != "Y" {
			t.Fatalf("unexpected dynamic plot: %+v", dynamic)
		}
		if len(dynamic.Plot.Lines) != 1 || dynamic.Plot.Lines[0].Label != "circle" {
			t.Fatalf("unexpected dynamic lines: %+v", dynamic.Plot.Lines)
		}

		p.Stop()
		p.Wait()

		if !p.IsFinalized() {
			t.Fatalf("phase = %v, want finalized", p.Phase())
		}
		if !r.IsShutdown() {
			t.Fatalf("renderer not shut down")
		}

		// Mutations after finalization are dropped.
		if err := p.AppendDynamic("late", 0, 0, 10, "x", "y"); err != nil {
			t.Fatalf("late append returned error: %v", err)
		}
		if _, ok := p.Store().DynamicSnapshot("late"); ok {
			t.Fatalf("mutation applied after finalization")
		}

		if err := p.Start(context.Background()); !errors.Is(err, ErrFinalized) {
			t.Fatalf("restart err = %v, want ErrFinalized", err)
		}
	})

	t.Run("MutationsBeforeStartAreDropped", func(t *testing.T) {
		p := NewPlotter(NewRecordingRenderer(1), testOptions())
		if err := p.AppendDynamicAutoX("p", 1, 10, "x", "y"); err != nil {
			t.Fatal(err)
		}
		if err := p.UpsertStaticSingleSeries("s", []float64{1}, []float64{1}, "x", "y"); err != nil {
			t.Fatal(err)
		}

		static, dynamic := p.Store().Len()
		if static != 0 || dynamic != 0 {
			t.Fatalf("mutations applied before start")
		}
	})

	t.Run("StartTwice", func(t *testing.T) {
		p, _ := startTestPlotter(t)
		if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
			t.Fatalf("err = %v, want ErrAlreadyStarted", err)
		}
	})

	t.Run("InitFailure", func(t *testing.T) {
		cause := errors.New("no display")
		r := NewRecordingRenderer(1)
		r.InitErr = cause
		p := NewPlotter(r, testOptions())

		err := p.Start(context.Background())
		if !errors.Is(err, ErrInitialization) || !errors.Is(err, cause) {
			t.Fatalf("err = %v, want ErrInitialization wrapping cause", err)
		}
		if p.Phase() != PhaseNotStarted {
			t.Fatalf("phase = %v, want not started", p.Phase())
		}

		// Caller-driven retry.
		r.InitErr = nil
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("retry Start: %v", err)
		}
		p.Stop()
		p.Wait()
	})

	t.Run("StopBeforeStart", func(t *testing.T) {
		p := NewPlotter(NewRecordingRenderer(1), testOptions())
		p.Stop()

		select {
		case <-p.Done():
		default:
			t.Fatalf("Done not closed after Stop on unstarted plotter")
		}

		if err := p.Start(context.Background()); !errors.Is(err, ErrFinalized) {
			t.Fatalf("err = %v, want ErrFinalized", err)
		}
	})

	t.Run("ContextCancelStops", func(t *testing.T) {
		r := NewRecordingRenderer(1)
		p := NewPlotter(r, testOptions())
		ctx, cancel := context.WithCancel(context.Background())
		if err := p.Start(ctx); err != nil {
			t.Fatal(err)
		}

		cancel()

		select {
		case <-p.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("plotter did not finalize after context cancel")
		}
	})

	t.Run("WindowClosedByUser", func(t *testing.T) {
		p, r := startTestPlotter(t)
		r.CloseWindow()

		select {
		case <-p.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("plotter did not finalize after window close")
		}

		if !r.IsShutdown() {
			t.Fatalf("renderer not shut down")
		}
	})
}

func TestPlotterPause(t *testing.T) {
	t.Run("BlocksProducersUntilResumed", func(t *testing.T) {
		p, _ := startTestPlotter(t)

		p.SetPaused(true)
		if !p.IsPaused() || !p.IsRunning() {
			t.Fatalf("phase = %v, want paused", p.Phase())
		}

		done := make(chan error, 1)
		go func() {
			done <- p.AppendDynamic("p", 1, 2, 10, "x", "y")
		}()

		select {
		case err := <-done:
			t.Fatalf("append returned while paused: %v", err)
		case <-time.After(50 * time.Millisecond):
		}

		p.TogglePause()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("append: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("append did not unblock after resume")
		}

		snap, ok := p.Store().DynamicSnapshot("p")
		if !ok || !reflect.DeepEqual(snap.Y, []float64{2}) {
			t.Fatalf("append not applied after resume: %+v", snap)
		}
	})

	t.Run("StopWakesBlockedProducers", func(t *testing.T) {
		p, _ := startTestPlotter(t)
		p.SetPaused(true)

		done := make(chan error, 1)
		go func() {
			done <- p.UpsertStaticSingleSeries("p", []float64{1}, []float64{1}, "x", "y")
		}()

		time.Sleep(20 * time.Millisecond)
		p.Stop()

		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("dropped upsert returned error: %v", err)
			}
		case <-time.After(time.Second):
			t.Fatalf("producer still blocked after Stop")
		}

		if _, ok := p.Store().StaticSnapshot("p"); ok {
			t.Fatalf("mutation applied after Stop")
		}
	})

	t.Run("PauseKeyFreezesAxes", func(t *testing.T) {
		p, r := startTestPlotter(t)
		if err := p.AppendDynamic("p", 0, 0, 10, "x", "y"); err != nil {
			t.Fatal(err)
		}

		r.PressPause()
		waitFor(t, 2*time.Second, "pause", p.IsPaused)

		frame := waitForFrame(t, r, func(f RecordedFrame) bool { return len(f.Plots) == 1 })
		if !frame.Info.Paused || frame.Plots[0].Plot.AutoFit {
			t.Fatalf("paused frame still auto-fits: %+v", frame)
		}

		// The view keeps rendering while paused.
		before := r.FrameCount()
		waitFor(t, 2*time.Second, "frames while paused", func() bool { return r.FrameCount() > before+2 })

		r.PressPause()
		waitFor(t, 2*time.Second, "resume", func() bool { return !p.IsPaused() })

		frame = waitForFrame(t, r, func(f RecordedFrame) bool { return !f.Info.Paused })
		if !frame.Plots[0].Plot.AutoFit {
			t.Fatalf("running frame does not auto-fit")
		}
	})

	t.Run("IgnoredWhenNotRunning", func(t *testing.T) {
		p := NewPlotter(NewRecordingRenderer(1), testOptions())
		p.TogglePause()
		p.SetPaused(true)
		if p.Phase() != PhaseNotStarted {
			t.Fatalf("phase = %v, want not started", p.Phase())
		}
	})
}

func TestPlotterClose(t *testing.T) {
	t.Run("WaitsForUserToCloseWindow", func(t *testing.T) {
		p, r := startTestPlotter(t)

		closed := make(chan error, 1)
		go func() {
			closed <- p.Close(context.Background())
		}()

		waitFor(t, 2*time.Second, "pause on close", p.IsPaused)

		select {
		case err := <-closed:
			t.Fatalf("Close returned before the window was closed: %v", err)
		case <-time.After(20 * time.Millisecond):
		}

		r.CloseWindow()

		select {
		case err := <-closed:
			if err != nil {
				t.Fatalf("Close: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Close did not return after window close")
		}

		if !p.IsFinalized() {
			t.Fatalf("phase = %v, want finalized", p.Phase())
		}
	})

	t.Run("ContextBoundsTheWait", func(t *testing.T) {
		p, r := startTestPlotter(t)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		err := p.Close(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("err = %v, want deadline exceeded", err)
		}
		if !p.IsFinalized() || !r.IsShutdown() {
			t.Fatalf("plotter not torn down after Close: %v", p.Phase())
		}
	})

	t.Run("NotStarted", func(t *testing.T) {
		p := NewPlotter(NewRecordingRenderer(1), testOptions())
		if err := p.Close(context.Background()); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if !p.IsFinalized() {
			t.Fatalf("phase = %v, want finalized", p.Phase())
		}
	})
}

func TestPlotterMalformedStaticKeepsRendering(t *testing.T) {
	p, r := startTestPlotter(t)

	err := p.UpsertStatic("bad", []float64{1, 2, 3}, [][]float64{{1}}, "x", []string{"y"})
	var shapeErr *DataShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("err = %v, want DataShapeError", err)
	}

	frame := waitForFrame(t, r, func(f RecordedFrame) bool { return len(f.Plots) == 1 })
	if got := frame.Plots[0].Plot.Lines[0].Len(); got != 1 {
		t.Fatalf("drawable points = %d, want 1", got)
	}

	before := r.FrameCount()
	waitFor(t, 2*time.Second, "more frames", func() bool { return r.FrameCount() > before })
	if !p.IsRunning() {
		t.Fatalf("render loop stopped after malformed data")
	}
}

func TestPlotterGateIsInternal(t *testing.T) {
	p := NewPlotter(NewRecordingRenderer(1), testOptions())

	if _, ok := interface{}(p).(Gate); ok {
		t.Fatalf("*Plotter exposes Enter; callers could block on the pause gate")
	}
	if _, ok := p.Store().gate.(plotterGate); !ok {
		t.Fatalf("store gate = %T, want plotterGate", p.Store().gate)
	}

	// Not started: the store drops mutations without blocking.
	if err := p.AppendDynamic("p", 1, 2, 10, "x", "y"); err != nil {
		t.Fatal(err)
	}
	if _, dynamic := p.Store().Len(); dynamic != 0 {
		t.Fatalf("dynamic plots = %d, want 0", dynamic)
	}
	p.Stop()
}
