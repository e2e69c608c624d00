// Package graph draws the scrolling fridge/freezer temperature trend.
package graph

import (
	"fmt"

	"github.com/kostiamol/fridgemon/cfg"
	"github.com/kostiamol/fridgemon/display"
)

// ScaleConfig maps a temperature range onto a pixel range.
type ScaleConfig struct {
	Min        float64
	Max        float64
	PixelRange int
}

// Scale maps t linearly so that Min gives 0 and Max gives PixelRange. The map is integer arithmetic:
// t and the bounds are truncated to whole degrees and the division truncates toward zero. The result
// is not clamped, values outside the range land outside the pixel range.
func (s ScaleConfig) Scale(t float64) int {
	lo, hi := int64(s.Min), int64(s.Max)
	if hi == lo {
		return 0
	}
	return int((int64(t) - lo) * int64(s.PixelRange) / (hi - lo))
}

// Trend is a scrolling trend graph. It is used from a single goroutine.
type Trend struct {
	d      display.Display
	c      cfg.Graph
	scale  ScaleConfig
	cursor int
	wraps  int
}

// New creates a trend graph drawing on d. Reset is not called.
func New(d display.Display, c cfg.Graph) *Trend {
	return &Trend{
		d: d,
		c: c,
		scale: ScaleConfig{
			Min:        c.TempMin,
			Max:        c.TempMax,
			PixelRange: c.Height,
		},
	}
}

// Scale maps a temperature to its pixel offset above the baseline.
func (t *Trend) Scale(temp float64) int {
	return t.scale.Scale(temp)
}

// Cursor is the next column offset to be plotted.
func (t *Trend) Cursor() int {
	return t.cursor
}

// Wraps counts the resets caused by the cursor reaching the width.
func (t *Trend) Wraps() int {
	return t.wraps
}

// y converts a temperature to a screen row.
func (t *Trend) y(temp float64) int {
	return t.c.Height - t.Scale(temp)
}

// Reset clears the display, draws the baseline, the zero tick and the axis, commits and moves
// the cursor back to the start.
func (t *Trend) Reset() error {
	t.d.Clear()
	t.d.SetColor(display.White)
	t.d.DrawHorizontalLine(t.c.OriginX, t.c.Height, t.c.Width)
	t.d.DrawHorizontalLine(t.c.OriginX-2, t.y(0), 5)
	t.d.DrawVerticalLine(t.c.OriginX, 0, t.c.Height)
	t.cursor = 0
	return t.d.Commit()
}

// Plot refreshes the readout, adds one column for both temperatures and commits. When the cursor
// reaches the width the graph is reset.
func (t *Trend) Plot(fridgeTemp, freezerTemp float64) (wrapped bool, err error) {
	b := t.d.Bounds()
	t.d.SetColor(display.Black)
	t.d.FillRect(0, t.c.ReadoutY, b.Dx(), b.Dy()-t.c.ReadoutY)
	t.d.SetColor(display.White)
	t.d.DrawText(t.c.ReadoutX, t.c.ReadoutY, fmt.Sprintf("Fr: %.2fC", fridgeTemp))
	t.d.DrawText(b.Dx()/2, t.c.ReadoutY, fmt.Sprintf("Fz: %.2fC", freezerTemp))

	x := t.c.OriginX + t.cursor
	t.d.SetPixel(x, t.y(fridgeTemp))
	t.d.SetPixel(x, t.y(freezerTemp))
	t.cursor++

	if t.cursor >= t.c.Width {
		t.wraps++
		return true, t.Reset()
	}
	return false, t.d.Commit()
}
