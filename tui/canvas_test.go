package tui

import (
	"strings"
	"testing"
)

func TestCanvas(t *testing.T) {
	t.Run("SingleDots", func(t *testing.T) {
		c := NewCanvas(2, 1)
		c.Set(0, 0, 0)
		c.Set(3, 3, 1)

		if got := c.Rune(0, 0); got != '⠁' {
			t.Fatalf("cell 0 = %U, want U+2801", got)
		}
		if got := c.Rune(1, 0); got != '⢀' {
			t.Fatalf("cell 1 = %U, want U+2880", got)
		}
		if c.Owner(0, 0) != 0 || c.Owner(1, 0) != 1 {
			t.Fatalf("owners = %d, %d", c.Owner(0, 0), c.Owner(1, 0))
		}
	})

	t.Run("OutOfRangeIgnored", func(t *testing.T) {
		c := NewCanvas(1, 1)
		c.Set(-1, 0, 0)
		c.Set(2, 0, 0)
		c.Set(0, 4, 0)

		if got := c.Rune(0, 0); got != '⠀' {
			t.Fatalf("cell = %U, want blank", got)
		}
		if c.Owner(0, 0) != -1 {
			t.Fatalf("owner = %d, want -1", c.Owner(0, 0))
		}
	})

	t.Run("HorizontalLine", func(t *testing.T) {
		c := NewCanvas(3, 1)
		c.Line(0, 0, 5, 0, 0)

		// Top row of both dot columns in every cell.
		for col := 0; col < 3; col++ {
			if got := c.Rune(col, 0); got != '⠉' {
				t.Fatalf("cell %d = %U, want U+2809", col, got)
			}
		}
	})

	t.Run("DiagonalLineReachesBothEnds", func(t *testing.T) {
		for _, reversed := range []bool{false, true} {
			c := NewCanvas(2, 2)
			if reversed {
				c.Line(3, 7, 0, 0, 0)
			} else {
				c.Line(0, 0, 3, 7, 0)
			}

			if c.Rune(0, 0)&0x01 == 0 {
				t.Fatalf("reversed=%v: start dot not set", reversed)
			}
			if c.Rune(1, 1)&0x80 == 0 {
				t.Fatalf("reversed=%v: end dot not set", reversed)
			}
		}
	})

	t.Run("Lines", func(t *testing.T) {
		c := NewCanvas(4, 2)
		lines := c.Lines(nil)
		if len(lines) != 2 {
			t.Fatalf("len = %d, want 2", len(lines))
		}
		if lines[0] != strings.Repeat("⠀", 4) {
			t.Fatalf("line = %q", lines[0])
		}
	})
}
