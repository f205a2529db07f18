package liveplot

import (
	"sync"
)

// PanelPlot is a plot as drawn into a panel.
type PanelPlot struct {
	Panel string
	Plot  PlotFrame
}

type RecordedFrame struct {
	Info  FrameInfo
	Plots []PanelPlot
}

// RecordingRenderer is a headless Renderer that keeps the most recent frames
// in memory. Useful for tests and for running producers without a display.
// Its accessors are safe to call from any goroutine.
type RecordingRenderer struct {
	// If set, Init fails with this error.
	InitErr error

	mu           sync.Mutex
	frames       *Ring[RecordedFrame]
	pending      RecordedFrame
	frameCount   uint64
	events       Events
	initialized  bool
	shutdown     bool
	frameWaiters []chan struct{}
}

func NewRecordingRenderer(keepFrames int) *RecordingRenderer {
	return &RecordingRenderer{
		frames: NewRing[RecordedFrame](keepFrames),
	}
}

func (r *RecordingRenderer) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.InitErr != nil {
		return r.InitErr
	}

	r.initialized = true
	return nil
}

func (r *RecordingRenderer) PollEvents() Events {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.events
	r.events = Events{}
	return events
}

func (r *RecordingRenderer) BeginFrame(info FrameInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = RecordedFrame{Info: info}
}

func (r *RecordingRenderer) DrawPlot(panel string, plot PlotFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending.Plots = append(r.pending.Plots, PanelPlot{Panel: panel, Plot: plot})
}

func (r *RecordingRenderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frames.Push(r.pending)
	r.pending = RecordedFrame{}
	r.frameCount++

	for _, waiter := range r.frameWaiters {
		close(waiter)
	}
	r.frameWaiters = nil

	return nil
}

func (r *RecordingRenderer) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shutdown = true
	for _, waiter := range r.frameWaiters {
		close(waiter)
	}
	r.frameWaiters = nil

	return nil
}

// PressPause queues a pause toggle, as if the user pressed the pause key.
func (r *RecordingRenderer) PressPause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.TogglePause = !r.events.TogglePause
}

// CloseWindow queues a close request, as if the user closed the window.
func (r *RecordingRenderer) CloseWindow() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events.CloseRequested = true
}

// NextFrame returns a channel that is closed after the next frame is
// presented, or when the renderer shuts down.
func (r *RecordingRenderer) NextFrame() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	waiter := make(chan struct{})
	if r.shutdown {
		close(waiter)
		return waiter
	}

	r.frameWaiters = append(r.frameWaiters, waiter)
	return waiter
}

func (r *RecordingRenderer) LastFrame() (RecordedFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames.Last()
}

// Frames returns the kept frames, oldest first.
func (r *RecordingRenderer) Frames() []RecordedFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames.ReadAllOrdered()
}

func (r *RecordingRenderer) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameCount
}

func (r *RecordingRenderer) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

func (r *RecordingRenderer) IsShutdown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shutdown
}
