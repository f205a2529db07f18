package tui

import (
	"math"

	"github.com/cactusdynamics/liveplot"
	"github.com/charmbracelet/harmonica"
)

type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

// DataBounds returns the extents of the finite points of all lines. Returns
// false if there are none. Degenerate spans are widened so they can be
// divided by.
func DataBounds(lines []liveplot.Line) (Bounds, bool) {
	b := Bounds{
		XMin: math.Inf(1), XMax: math.Inf(-1),
		YMin: math.Inf(1), YMax: math.Inf(-1),
	}

	found := false
	for _, line := range lines {
		for i := 0; i < line.Len(); i++ {
			x, y := line.X[i], line.Y[i]
			if !finite(x) || !finite(y) {
				continue
			}

			b.XMin = math.Min(b.XMin, x)
			b.XMax = math.Max(b.XMax, x)
			b.YMin = math.Min(b.YMin, y)
			b.YMax = math.Max(b.YMax, y)
			found = true
		}
	}

	if !found {
		return Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}, false
	}

	if b.XMax == b.XMin {
		b.XMin, b.XMax = widen(b.XMin)
	}
	if b.YMax == b.YMin {
		b.YMin, b.YMax = widen(b.YMin)
	}

	return b, true
}

// widen returns a span around v that is wide enough to differ from v at
// any magnitude.
func widen(v float64) (float64, float64) {
	pad := math.Max(0.5, math.Abs(v)*1e-6)
	return v - pad, v + pad
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// axis tracks the displayed bounds of one plot. When auto-fitting, bounds
// that must grow to show new data jump there, and bounds that shrink ease in
// on a critically damped spring. When not auto-fitting the bounds hold.
type axis struct {
	spring      harmonica.Spring
	current     Bounds
	velocity    Bounds
	initialized bool
}

func newAxis(fps int) *axis {
	return &axis{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 8.0, 1.0),
	}
}

func (a *axis) update(target Bounds, autoFit bool) Bounds {
	if !a.initialized {
		a.current = target
		a.initialized = true
		return a.current
	}

	if !autoFit {
		a.velocity = Bounds{}
		return a.current
	}

	a.current.XMin, a.velocity.XMin = a.ease(a.current.XMin, a.velocity.XMin, target.XMin, target.XMin < a.current.XMin)
	a.current.XMax, a.velocity.XMax = a.ease(a.current.XMax, a.velocity.XMax, target.XMax, target.XMax > a.current.XMax)
	a.current.YMin, a.velocity.YMin = a.ease(a.current.YMin, a.velocity.YMin, target.YMin, target.YMin < a.current.YMin)
	a.current.YMax, a.velocity.YMax = a.ease(a.current.YMax, a.velocity.YMax, target.YMax, target.YMax > a.current.YMax)

	return a.current
}

func (a *axis) ease(pos, vel, target float64, grow bool) (float64, float64) {
	if grow {
		return target, 0
	}

	return a.spring.Update(pos, vel, target)
}
