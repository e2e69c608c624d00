package graph

import (
	"fmt"
	"image"
	"testing"

	"github.com/kostiamol/fridgemon/cfg"
	"github.com/kostiamol/fridgemon/display"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

type op struct {
	name       string
	x, y, l, h int
	text       string
}

type recorder struct {
	ops     []op
	commits int
	resets  int
}

func (r *recorder) Clear() {
	r.resets++
	r.ops = append(r.ops, op{name: "clear"})
}

func (r *recorder) SetColor(c display.Color) {
	r.ops = append(r.ops, op{name: "color", x: int(c)})
}

func (r *recorder) SetPixel(x, y int) {
	r.ops = append(r.ops, op{name: "pixel", x: x, y: y})
}

func (r *recorder) DrawText(x, y int, text string) {
	r.ops = append(r.ops, op{name: "text", x: x, y: y, text: text})
}

func (r *recorder) Bounds() image.Rectangle {
	return image.Rect(0, 0, 128, 64)
}

func (r *recorder) Commit() error {
	r.commits++
	return nil
}

func (r *recorder) DrawHorizontalLine(x, y, l int) {
	r.ops = append(r.ops, op{name: "hline", x: x, y: y, l: l})
}

func (r *recorder) DrawVerticalLine(x, y, l int) {
	r.ops = append(r.ops, op{name: "vline", x: x, y: y, l: l})
}

func (r *recorder) FillRect(x, y, w, h int) {
	r.ops = append(r.ops, op{name: "fill", x: x, y: y, l: w, h: h})
}

func (r *recorder) TextWidth(text string) int {
	return 5 * len(text)
}

func (r *recorder) LineHeight() int {
	return 12
}

func (r *recorder) find(name string) []op {
	var out []op
	for _, o := range r.ops {
		if o.name == name {
			out = append(out, o)
		}
	}
	return out
}

func TestScale(t *testing.T) {
	s := ScaleConfig{Min: -20, Max: 10, PixelRange: 47}

	assert.Equal(t, 0, s.Scale(-20))
	assert.Equal(t, 47, s.Scale(10))
	assert.Equal(t, 31, s.Scale(0))
	assert.Equal(t, 31, s.Scale(-0.5), "fractions are truncated before mapping")
	assert.Equal(t, 3, s.Scale(-18.2))
	assert.Equal(t, 1, s.Scale(-19))

	prev := s.Scale(-20)
	for v := -20.0; v <= 10.0; v += 0.05 {
		got := s.Scale(v)
		assert.True(t, got >= prev, "scale must not decrease at %v", v)
		assert.True(t, got >= 0 && got <= 47, "scale out of range at %v", v)
		prev = got
	}

	assert.True(t, s.Scale(15) > 47, "values above max are not clamped")
	assert.True(t, s.Scale(-30) < 0, "values below min are not clamped")
}

func TestReset(t *testing.T) {
	Convey("Given a trend graph with the default geometry", t, func() {
		r := &recorder{}
		g := New(r, cfg.DefaultGraph())

		Convey("Reset clears and draws baseline, zero tick and axis", func() {
			So(g.Reset(), ShouldBeNil)
			So(r.resets, ShouldEqual, 1)
			So(r.commits, ShouldEqual, 1)
			So(r.find("hline"), ShouldResemble, []op{
				{name: "hline", x: 5, y: 47, l: 128},
				{name: "hline", x: 3, y: 47 - 31, l: 5},
			})
			So(r.find("vline"), ShouldResemble, []op{{name: "vline", x: 5, y: 0, l: 47}})
			So(g.Cursor(), ShouldEqual, 0)
		})
	})
}

func TestPlot(t *testing.T) {
	Convey("Given a trend graph with the default geometry", t, func() {
		r := &recorder{}
		g := New(r, cfg.DefaultGraph())

		Convey("one plot draws the readout and one pixel per trace", func() {
			wrapped, err := g.Plot(3.5, -18.2)
			So(err, ShouldBeNil)
			So(wrapped, ShouldBeFalse)
			So(g.Cursor(), ShouldEqual, 1)
			So(r.commits, ShouldEqual, 1)

			So(r.find("fill"), ShouldResemble, []op{{name: "fill", x: 0, y: 48, l: 128, h: 16}})
			texts := r.find("text")
			So(len(texts), ShouldEqual, 2)
			So(texts[0].text, ShouldEqual, "Fr: 3.50C")
			So(texts[0].x, ShouldEqual, 5)
			So(texts[1].text, ShouldEqual, "Fz: -18.20C")
			So(texts[1].x, ShouldEqual, 64)

			So(r.find("pixel"), ShouldResemble, []op{
				{name: "pixel", x: 5, y: 47 - g.Scale(3.5)},
				{name: "pixel", x: 5, y: 47 - g.Scale(-18.2)},
			})
		})

		Convey("the readout strip is cleared in black before drawing in white", func() {
			_, _ = g.Plot(1, -1)
			So(r.ops[0], ShouldResemble, op{name: "color", x: int(display.Black)})
			So(r.ops[1].name, ShouldEqual, "fill")
			So(r.ops[2], ShouldResemble, op{name: "color", x: int(display.White)})
		})

		Convey("after width plots the cursor wraps and resets exactly once", func() {
			wraps := 0
			for i := 0; i < 128; i++ {
				w, err := g.Plot(0, -18)
				So(err, ShouldBeNil)
				if w {
					wraps++
				}
			}
			So(wraps, ShouldEqual, 1)
			So(g.Wraps(), ShouldEqual, 1)
			So(r.resets, ShouldEqual, 1)
			So(g.Cursor(), ShouldEqual, 0)

			Convey("the next plot starts again at the origin", func() {
				r.ops = nil
				_, _ = g.Plot(0, -18)
				So(r.find("pixel")[0].x, ShouldEqual, 5)
				So(g.Cursor(), ShouldEqual, 1)
			})
		})
	})
}

func TestPlotOnCanvas(t *testing.T) {
	Convey("Given a canvas backed by a memory panel", t, func() {
		p := &display.MemPanel{}
		c := display.NewCanvas(128, 64, p)
		g := New(c, cfg.DefaultGraph())
		So(g.Reset(), ShouldBeNil)

		Convey("the axis and the plotted points are lit", func() {
			_, err := g.Plot(10, -20)
			So(err, ShouldBeNil)
			So(c.Pixel(5, 0), ShouldBeTrue)
			So(c.Pixel(5, 47), ShouldBeTrue)
			So(c.Pixel(100, 47), ShouldBeTrue)
			So(p.Commits, ShouldEqual, 2)
		})
	})
}

func TestReadoutFits(t *testing.T) {
	c := display.NewCanvas(128, 64, &display.MemPanel{})
	gc := cfg.DefaultGraph()
	g := New(c, gc)
	half := c.Bounds().Dx() / 2

	for _, v := range [][2]float64{{3.5, -18.2}, {-18.2, -20}, {10, -88.88}, {-88.88, 100}} {
		_, err := g.Plot(v[0], v[1])
		assert.NoError(t, err)

		fr := c.TextWidth(fmt.Sprintf("Fr: %.2fC", v[0]))
		fz := c.TextWidth(fmt.Sprintf("Fz: %.2fC", v[1]))
		assert.LessOrEqual(t, gc.ReadoutX+fr, half, "fridge readout %v overlaps the freezer readout", v[0])
		assert.LessOrEqual(t, half+fz, c.Bounds().Dx(), "freezer readout %v is cut off", v[1])

		for x := gc.ReadoutX + fr; x < half; x++ {
			for y := gc.ReadoutY; y < c.Bounds().Dy(); y++ {
				assert.False(t, c.Pixel(x, y), "gap between readouts is lit at %d,%d", x, y)
			}
		}
	}
}
