package liveplot

import (
	"context"
	"fmt"
	"runtime"
	"runtime/trace"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRunning
	PhasePaused
	PhaseStopped // Stop requested, render goroutine still tearing down.
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not started"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseStopped:
		return "stopped"
	case PhaseFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

const (
	StaticPanel  = "Static"
	DynamicPanel = "Dynamic"
)

type Options struct {
	// Take the per-plot locks. Turn off only if producers run on the render
	// goroutine.
	UseLocking bool

	// Time between frames.
	FrameInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		UseLocking:    true,
		FrameInterval: 16 * time.Millisecond,
	}
}

// Plotter owns the render goroutine and the plots it draws.
//
// Phases:
//
//	NotStarted --Start--> Running <--TogglePause--> Paused
//	Running/Paused --Stop or window closed--> Stopped --teardown--> Finalized
//	NotStarted --Stop--> Finalized
//
// Finalized is terminal. Mutations are dropped unless the phase is Running,
// and block while the phase is Paused.
type Plotter struct {
	renderer Renderer
	options  Options
	store    *PlotStore

	mu       sync.Mutex
	cond     *sync.Cond // Broadcast on every phase change.
	phase    Phase
	starting bool // Start is waiting for Renderer.Init.

	done chan struct{} // Closed when the phase becomes Finalized.

	logger logrus.FieldLogger
}

func NewPlotter(renderer Renderer, options Options) *Plotter {
	if options.FrameInterval <= 0 {
		options.FrameInterval = DefaultOptions().FrameInterval
	}

	p := &Plotter{
		renderer: renderer,
		options:  options,
		phase:    PhaseNotStarted,
		done:     make(chan struct{}),
		logger:   logrus.WithField("tag", "Plotter"),
	}
	p.cond = sync.NewCond(&p.mu)
	p.store = NewPlotStore(plotterGate{p}, options.UseLocking)

	return p
}

func (p *Plotter) Store() *PlotStore {
	return p.store
}

// plotterGate is the store's Gate. It is kept off the Plotter's own method
// set so only the store can wait on it.
type plotterGate struct {
	p *Plotter
}

func (g plotterGate) Enter() bool {
	return g.p.enter()
}

// enter waits out a pause and reports whether the plotter is running. A Stop
// while waiting wakes the caller, which then drops its mutation.
func (p *Plotter) enter() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.phase == PhasePaused {
		p.cond.Wait()
	}

	return p.phase == PhaseRunning
}

// Must be called with p.mu held.
func (p *Plotter) setPhaseLocked(phase Phase) {
	if p.phase == phase {
		return
	}

	p.logger.WithFields(logrus.Fields{
		"from": p.phase,
		"to":   phase,
	}).Debug("phase changed")

	p.phase = phase
	if phase == PhaseFinalized {
		close(p.done)
	}
	p.cond.Broadcast()
}

// Starts the render goroutine and waits for the renderer to initialize. If
// it fails, the returned error wraps ErrInitialization and the plotter stays
// NotStarted, so Start may be called again.
//
// Canceling ctx stops the plotter.
func (p *Plotter) Start(ctx context.Context) error {
	p.mu.Lock()
	switch {
	case p.phase == PhaseFinalized:
		p.mu.Unlock()
		return ErrFinalized
	case p.phase != PhaseNotStarted || p.starting:
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.starting = true
	p.mu.Unlock()

	initErr := make(chan error, 1)
	go p.renderLoop(ctx, initErr)

	err := <-initErr
	if err != nil {
		p.logger.WithError(err).Error("failed to start plotter")
		return err
	}

	p.logger.WithField("frameInterval", p.options.FrameInterval).Info("plotter started")
	return nil
}

// Requests the render goroutine to stop. It returns immediately; use Wait to
// block until the renderer is torn down.
func (p *Plotter) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.phase {
	case PhaseNotStarted:
		if p.starting {
			// The render goroutine finalizes once Init returns.
			p.setPhaseLocked(PhaseStopped)
		} else {
			p.setPhaseLocked(PhaseFinalized)
		}
	case PhaseRunning, PhasePaused:
		p.setPhaseLocked(PhaseStopped)
	}
}

func (p *Plotter) TogglePause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.phase {
	case PhaseRunning:
		p.setPhaseLocked(PhasePaused)
	case PhasePaused:
		p.setPhaseLocked(PhaseRunning)
	}
}

func (p *Plotter) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case paused && p.phase == PhaseRunning:
		p.setPhaseLocked(PhasePaused)
	case !paused && p.phase == PhasePaused:
		p.setPhaseLocked(PhaseRunning)
	}
}

func (p *Plotter) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// IsRunning is true while the render loop is live, paused or not.
func (p *Plotter) IsRunning() bool {
	phase := p.Phase()
	return phase == PhaseRunning || phase == PhasePaused
}

func (p *Plotter) IsPaused() bool {
	return p.Phase() == PhasePaused
}

func (p *Plotter) IsFinalized() bool {
	return p.Phase() == PhaseFinalized
}

// Done is closed once the plotter is finalized.
func (p *Plotter) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the plotter is finalized.
func (p *Plotter) Wait() {
	<-p.done
}

// Close releases the plotter. If the render loop is still live, the view is
// paused, freezing producers, and Close waits for the user to close the
// window. If ctx ends first, the plotter is stopped and Close returns
// ctx.Err() once the renderer has been torn down.
func (p *Plotter) Close(ctx context.Context) error {
	if !p.IsRunning() {
		p.Stop()
		p.Wait()
		return nil
	}

	p.logger.Info("waiting for the plotter window to be closed")
	p.SetPaused(true)

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.Stop()
		p.Wait()
		return ctx.Err()
	}
}

func (p *Plotter) UpsertStatic(name string, x []float64, ys [][]float64, xLabel string, seriesLabels []string) error {
	return p.store.UpsertStatic(name, x, ys, xLabel, seriesLabels)
}

func (p *Plotter) UpsertStaticSingleSeries(name string, x []float64, y []float64, xLabel string, yLabel string) error {
	return p.store.UpsertStaticSingleSeries(name, x, y, xLabel, yLabel)
}

func (p *Plotter) AppendDynamic(name string, x, y float64, windowSize int, xLabel string, yLabel string) error {
	return p.store.AppendDynamic(name, x, y, windowSize, xLabel, yLabel)
}

func (p *Plotter) AppendDynamicAutoX(name string, y float64, windowSize int, xLabel string, yLabel string) error {
	return p.store.AppendDynamicAutoX(name, y, windowSize, xLabel, yLabel)
}

// The render goroutine. It is the only goroutine that touches the renderer,
// and it stays on one OS thread because GUI contexts are bound to the thread
// that created them.
func (p *Plotter) renderLoop(ctx context.Context, initErr chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := p.renderer.Init(); err != nil {
		p.mu.Lock()
		p.starting = false
		if p.phase == PhaseStopped {
			p.setPhaseLocked(PhaseFinalized)
		}
		p.mu.Unlock()

		initErr <- fmt.Errorf("%w: %w", ErrInitialization, err)
		return
	}

	p.mu.Lock()
	p.starting = false
	if p.phase == PhaseNotStarted {
		p.setPhaseLocked(PhaseRunning)
	}
	p.mu.Unlock()
	initErr <- nil

	ticker := time.NewTicker(p.options.FrameInterval)
	defer ticker.Stop()

	var frameIndex uint64
	for p.Phase() != PhaseStopped {
		closeRequested := p.renderFrame(ctx, frameIndex)
		frameIndex++

		if closeRequested {
			p.logger.Info("window closed by user")
			p.Stop()
			break
		}

		select {
		case <-ctx.Done():
			p.Stop()
		case <-ticker.C:
		}
	}

	if err := p.renderer.Shutdown(); err != nil {
		p.logger.WithError(err).Warn("renderer shutdown failed")
	}

	p.mu.Lock()
	p.setPhaseLocked(PhaseFinalized)
	p.mu.Unlock()

	p.logger.WithField("frames", frameIndex).Info("plotter finalized")
}

// Draws one frame. Returns true if the user closed the window.
func (p *Plotter) renderFrame(ctx context.Context, frameIndex uint64) bool {
	traceCtx, task := trace.NewTask(ctx, "RenderFrame")
	defer task.End()

	var events Events
	trace.WithRegion(traceCtx, "PollEvents", func() {
		events = p.renderer.PollEvents()
	})

	if events.TogglePause {
		p.TogglePause()
	}

	// Axes hold still while paused.
	paused := p.IsPaused()
	autoFit := !paused

	p.renderer.BeginFrame(FrameInfo{Index: frameIndex, Paused: paused})

	trace.WithRegion(traceCtx, "DrawStatic", func() {
		for _, snapshot := range p.store.StaticSnapshots() {
			p.renderer.DrawPlot(StaticPanel, snapshot.PlotFrame(autoFit))
		}
	})

	trace.WithRegion(traceCtx, "DrawDynamic", func() {
		for _, snapshot := range p.store.DynamicSnapshots() {
			p.renderer.DrawPlot(DynamicPanel, snapshot.PlotFrame(autoFit))
		}
	})

	var err error
	trace.WithRegion(traceCtx, "EndFrame", func() {
		err = p.renderer.EndFrame()
	})
	if err != nil {
		p.logger.WithError(err).WithField("frame", frameIndex).Warn("failed to present frame")
	}

	return events.CloseRequested
}
