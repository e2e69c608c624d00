package cfg

import (
	"fmt"
	"math"
)

// Graph holds the trend graph geometry and temperature scale.
type Graph struct {
	TempMin float64
	TempMax float64
	// Height is the pixel range of the plot, the baseline row.
	Height   int
	Width    int
	OriginX  int
	ReadoutX int
	ReadoutY int
}

// DefaultGraph returns the geometry for a 128x64 panel.
func DefaultGraph() Graph {
	return Graph{
		TempMin:  -20,
		TempMax:  10,
		Height:   47,
		Width:    128,
		OriginX:  5,
		ReadoutX: 5,
		ReadoutY: 48,
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (g Graph) validate() error {
	if !finite(g.TempMin) {
		return fmt.Errorf("GRAPH_TEMP_MIN is invalid")
	}
	if !finite(g.TempMax) {
		return fmt.Errorf("GRAPH_TEMP_MAX is invalid")
	}
	// the scale works in whole degrees
	if math.Trunc(g.TempMax) <= math.Trunc(g.TempMin) {
		return fmt.Errorf("graph temp max must be at least one degree above temp min")
	}
	if g.Height <= 0 || g.Width <= 0 {
		return fmt.Errorf("graph size is invalid")
	}
	return nil
}
