package liveplot

import (
	"sync"

	"golang.org/x/exp/slices"
)

type PlotKind int

const (
	KindStatic PlotKind = iota
	KindDynamic
)

func (k PlotKind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// StaticBuffer holds a plot whose whole payload is replaced on every write.
type StaticBuffer struct {
	mu sync.Mutex

	name         string
	xLabel       string
	seriesLabels []string

	x  []float64
	ys [][]float64
}

// DynamicBuffer holds a single series as a sliding window over the most
// recent points.
type DynamicBuffer struct {
	mu sync.Mutex

	name   string
	xLabel string
	yLabel string

	x *Ring[float64]
	y *Ring[float64]

	// Synthetic x for AppendDynamicAutoX.
	counter uint64
}

func newDynamicBuffer(name string, windowSize int, xLabel, yLabel string) *DynamicBuffer {
	return &DynamicBuffer{
		name:   name,
		xLabel: xLabel,
		yLabel: yLabel,
		x:      NewRing[float64](windowSize),
		y:      NewRing[float64](windowSize),
	}
}

func (b *DynamicBuffer) windowSize() int {
	return b.x.Cap()
}

// Shrinking trims to the newest points immediately.
func (b *DynamicBuffer) resize(windowSize int) {
	b.x.Resize(windowSize)
	b.y.Resize(windowSize)
}

func (b *DynamicBuffer) add(x, y float64) {
	b.x.Push(x)
	b.y.Push(y)
}

type StaticSnapshot struct {
	Name         string
	XLabel       string
	SeriesLabels []string
	X            []float64
	Ys           [][]float64
}

// Must be called with the buffer's lock held (if locking is enabled).
func (b *StaticBuffer) snapshot() StaticSnapshot {
	return StaticSnapshot{
		Name:         b.name,
		XLabel:       b.xLabel,
		SeriesLabels: slices.Clone(b.seriesLabels),
		X:            slices.Clone(b.x),
		Ys:           cloneSeries(b.ys),
	}
}

// The y axis of a static plot is shared by all series, so it is labeled
// generically and each series is named in the legend instead.
const staticYLabel = "val"

func (s StaticSnapshot) PlotFrame(autoFit bool) PlotFrame {
	lines := make([]Line, len(s.Ys))
	for i, ys := range s.Ys {
		label := ""
		if i < len(s.SeriesLabels) {
			label = s.SeriesLabels[i]
		}

		lines[i] = Line{Label: label, X: s.X, Y: ys}
	}

	return PlotFrame{
		Title:   s.Name,
		Kind:    KindStatic,
		XLabel:  s.XLabel,
		YLabel:  staticYLabel,
		AutoFit: autoFit,
		Legend:  true,
		Lines:   lines,
	}
}

type DynamicSnapshot struct {
	Name       string
	XLabel     string
	YLabel     string
	WindowSize int
	Counter    uint64
	X          []float64
	Y          []float64
}

// Must be called with the buffer's lock held (if locking is enabled).
func (b *DynamicBuffer) snapshot() DynamicSnapshot {
	return DynamicSnapshot{
		Name:       b.name,
		XLabel:     b.xLabel,
		YLabel:     b.yLabel,
		WindowSize: b.windowSize(),
		Counter:    b.counter,
		X:          b.x.ReadAllOrdered(),
		Y:          b.y.ReadAllOrdered(),
	}
}

func (s DynamicSnapshot) PlotFrame(autoFit bool) PlotFrame {
	return PlotFrame{
		Title:   s.Name,
		Kind:    KindDynamic,
		XLabel:  s.XLabel,
		YLabel:  s.YLabel,
		AutoFit: autoFit,
		Lines:   []Line{{Label: s.Name, X: s.X, Y: s.Y}},
	}
}

func cloneSeries(ys [][]float64) [][]float64 {
	if ys == nil {
		return nil
	}

	cloned := make([][]float64, len(ys))
	for i, y := range ys {
		cloned[i] = slices.Clone(y)
	}

	return cloned
}
