package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Canvas is a grid of Unicode Braille cells. Each cell is a 2x4 dot grid,
// giving 2x horizontal and 4x vertical resolution. Dot coordinates start at
// the top left.
type Canvas struct {
	cols, rows int
	patterns   []uint8
	owners     []int // series that last drew into the cell, -1 if empty
}

// Braille dot positions (col, row) -> bit offset:
//
//	(0,0)=0  (1,0)=3
//	(0,1)=1  (1,1)=4
//	(0,2)=2  (1,2)=5
//	(0,3)=6  (1,3)=7
var brailleBits = [2][4]uint{
	{0, 1, 2, 6},
	{3, 4, 5, 7},
}

func NewCanvas(cols, rows int) *Canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	owners := make([]int, cols*rows)
	for i := range owners {
		owners[i] = -1
	}

	return &Canvas{
		cols:     cols,
		rows:     rows,
		patterns: make([]uint8, cols*rows),
		owners:   owners,
	}
}

func (c *Canvas) DotWidth() int  { return c.cols * 2 }
func (c *Canvas) DotHeight() int { return c.rows * 4 }

// Set turns on a dot. Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int, series int) {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return
	}

	cell := (y/4)*c.cols + x/2
	c.patterns[cell] |= 1 << brailleBits[x%2][y%4]
	c.owners[cell] = series
}

// Line draws a straight line between two dots (Bresenham).
func (c *Canvas) Line(x0, y0, x1, y1 int, series int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		c.Set(x0, y0, series)
		if x0 == x1 && y0 == y1 {
			return
		}

		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) Rune(col, row int) rune {
	return rune(0x2800 + int(c.patterns[row*c.cols+col]))
}

// Owner returns the series that last drew into the cell, or -1.
func (c *Canvas) Owner(col, row int) int {
	return c.owners[row*c.cols+col]
}

// Lines renders the canvas, coloring each cell with the style of the series
// that owns it.
func (c *Canvas) Lines(style func(series int) lipgloss.Style) []string {
	lines := make([]string, c.rows)
	for row := 0; row < c.rows; row++ {
		var line strings.Builder
		for col := 0; col < c.cols; col++ {
			r := string(c.Rune(col, row))
			if owner := c.Owner(col, row); owner >= 0 && style != nil {
				r = style(owner).Render(r)
			}
			line.WriteString(r)
		}
		lines[row] = line.String()
	}

	return lines
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
