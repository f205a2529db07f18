package liveplot

// Events are the input events a renderer collected since the last call to
// PollEvents.
type Events struct {
	// The user asked to toggle pause (space bar in the terminal, the pause
	// button in the browser).
	TogglePause bool

	// The user closed the window. The render loop exits after this frame.
	CloseRequested bool
}

type FrameInfo struct {
	Index  uint64
	Paused bool
}

// Line is one labeled series. X and Y are copies taken under the plot's lock,
// so a renderer may keep them past EndFrame.
type Line struct {
	Label string
	X     []float64
	Y     []float64
}

// Len is the number of drawable points. Mismatched static data is drawn
// truncated rather than rejected.
func (l Line) Len() int {
	return Min(len(l.X), len(l.Y))
}

// PlotFrame is everything needed to draw one plot region.
type PlotFrame struct {
	Title  string
	Kind   PlotKind
	XLabel string
	YLabel string

	// Fit the axes to the data extents. False while paused so the view holds
	// still.
	AutoFit bool

	// Show a legend. Static plots have one entry per series.
	Legend bool

	Lines []Line
}

// Renderer is the GUI/plotting backend driven by the Plotter. All methods are
// called from the render goroutine only, which has its OS thread locked for
// the lifetime of the renderer.
type Renderer interface {
	// Create the window and graphics context. An error here is fatal to
	// Plotter.Start.
	Init() error

	PollEvents() Events

	BeginFrame(FrameInfo)

	// Draw one plot inside the named panel. Plots in the same panel are
	// drawn in call order.
	DrawPlot(panel string, plot PlotFrame)

	// Present the frame.
	EndFrame() error

	// Tear down the context. Called exactly once after a successful Init.
	Shutdown() error
}
