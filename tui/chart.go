package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cactusdynamics/liveplot"
	"github.com/charmbracelet/lipgloss"
)

const (
	tickWidth     = 9
	minPlotWidth  = tickWidth + 12
	minPlotHeight = 4
)

// renderPlot draws one plot as a bordered block of the given outer size.
func renderPlot(plot liveplot.PlotFrame, bounds Bounds, width, height int) string {
	// Border takes two columns and two rows.
	innerWidth := max(width-2, minPlotWidth)
	innerHeight := max(height-2, minPlotHeight)

	legend := ""
	if plot.Legend {
		legend = renderLegend(plot.Lines)
	}

	// Title row, x axis row, x label row, optional legend row.
	rows := innerHeight - 3
	if legend != "" {
		rows--
	}
	rows = max(rows, 1)

	cols := innerWidth - tickWidth - 1
	canvas := NewCanvas(cols, rows)
	drawLines(canvas, plot.Lines, bounds)

	lines := make([]string, 0, innerHeight)
	lines = append(lines, titleStyle.Render(plot.Title)+" "+axisStyle.Render(plot.YLabel))

	for row, content := range canvas.Lines(seriesStyle) {
		tick := ""
		switch row {
		case 0:
			tick = formatTick(bounds.YMax)
		case rows - 1:
			tick = formatTick(bounds.YMin)
		}
		lines = append(lines, axisStyle.Render(fmt.Sprintf("%*s│", tickWidth, tick))+content)
	}

	lo, hi := formatTick(bounds.XMin), formatTick(bounds.XMax)
	gap := max(cols-len(lo)-len(hi), 1)
	lines = append(lines, axisStyle.Render(strings.Repeat(" ", tickWidth+1)+lo+strings.Repeat(" ", gap)+hi))
	lines = append(lines, axisStyle.Render(center(plot.XLabel, innerWidth)))

	if legend != "" {
		lines = append(lines, legend)
	}

	return plotBorderStyle.Width(innerWidth).Render(strings.Join(lines, "\n"))
}

// Points further outside the bounds than this many spans are pulled in
// before clipping, keeping dot coordinates finite.
const maxFraction = 1e6

// drawLines maps data coordinates onto the canvas dots and connects
// consecutive points of each line. Segments are clipped to the canvas, so
// points outside the bounds (held axes, extreme values) cost no more to draw
// than points inside.
func drawLines(canvas *Canvas, lines []liveplot.Line, bounds Bounds) {
	w, h := float64(canvas.DotWidth()-1), float64(canvas.DotHeight()-1)

	toDot := func(x, y float64) (float64, float64, bool) {
		fx := fraction(x, bounds.XMin, bounds.XMax)
		// Dot rows grow downwards, so y is measured from the top.
		fy := fraction(y, bounds.YMax, bounds.YMin)
		if math.IsNaN(fx) || math.IsNaN(fy) {
			return 0, 0, false
		}
		return clampFraction(fx) * w, clampFraction(fy) * h, true
	}

	for series, line := range lines {
		var px, py float64
		havePrev := false
		for i := 0; i < line.Len(); i++ {
			x, y, ok := toDot(line.X[i], line.Y[i])
			if !ok {
				havePrev = false
				continue
			}

			if havePrev {
				if x0, y0, x1, y1, visible := clipSegment(px, py, x, y, w, h); visible {
					canvas.Line(round(x0), round(y0), round(x1), round(y1), series)
				}
			} else if x >= 0 && x <= w && y >= 0 && y <= h {
				canvas.Set(round(x), round(y), series)
			}
			px, py, havePrev = x, y, true
		}
	}
}

// fraction returns how far v lies from lo towards hi. Operands are halved
// first so the span of extreme finite bounds does not overflow. NaN if v or
// the bounds are not usable.
func fraction(v, lo, hi float64) float64 {
	if !finite(v) || !finite(lo) || !finite(hi) || lo == hi {
		return math.NaN()
	}
	return (v*0.5 - lo*0.5) / (hi*0.5 - lo*0.5)
}

func clampFraction(f float64) float64 {
	return math.Max(-maxFraction, math.Min(maxFraction, f))
}

// clipSegment clips a segment to the rectangle [0,w]x[0,h] (Liang-Barsky).
// Returns false if no part of it is inside.
func clipSegment(x0, y0, x1, y1, w, h float64) (float64, float64, float64, float64, bool) {
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, x0},
		{dx, w - x0},
		{-dy, y0},
		{dy, h - y0},
	}
	for _, edge := range edges {
		p, q := edge[0], edge[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}

		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}

	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func round(v float64) int {
	return int(math.Round(v))
}

func renderLegend(lines []liveplot.Line) string {
	parts := make([]string, 0, len(lines))
	for i, line := range lines {
		parts = append(parts, seriesStyle(i).Render("━━ "+line.Label))
	}
	return strings.Join(parts, "   ")
}

func formatTick(v float64) string {
	s := strconv.FormatFloat(v, 'g', 4, 64)
	if len(s) > tickWidth {
		s = strconv.FormatFloat(v, 'e', 1, 64)
	}
	return s
}

func center(s string, width int) string {
	pad := (width - lipgloss.Width(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
