// Package display provides the monochrome display the monitor draws on.
package display

import (
	"image"
	"image/draw"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Color is the drawing color.
type Color int

const (
	Black Color = iota
	White
)

// Display is the display collaborator. Drawing happens in a buffer that Commit puts on the panel.
type Display interface {
	Clear()
	DrawText(x, y int, text string)
	SetPixel(x, y int)
	DrawHorizontalLine(x, y, length int)
	DrawVerticalLine(x, y, length int)
	FillRect(x, y, w, h int)
	SetColor(Color)
	Commit() error
	Bounds() image.Rectangle
	TextWidth(text string) int
	LineHeight() int
}

// textSize is the pixel size of the canvas text face.
const textSize = 10

var goRegular, _ = opentype.Parse(goregular.TTF)

// newFace returns Go Regular at textSize. The fixed 7x13 face is used if the font cannot be loaded.
func newFace(f *opentype.Font) font.Face {
	if f == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: textSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}

// Panel receives the frame buffer on commit.
type Panel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Halt() error
}

// Canvas is a 1-bit frame buffer implementing Display.
type Canvas struct {
	img   *image1bit.VerticalLSB
	panel Panel
	color Color
	face  font.Face
}

// NewCanvas creates a w×h canvas committing to p. A nil panel discards commits.
func NewCanvas(w, h int, p Panel) *Canvas {
	if p == nil {
		p = NopPanel{}
	}
	return &Canvas{
		img:   image1bit.NewVerticalLSB(image.Rect(0, 0, w, h)),
		panel: p,
		color: White,
		face:  newFace(goRegular),
	}
}

// Bounds .
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Image returns the frame buffer.
func (c *Canvas) Image() image.Image {
	return c.img
}

// Pixel reports whether the pixel at x, y is lit.
func (c *Canvas) Pixel(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(c.img.Rect) {
		return false
	}
	return c.img.BitAt(x, y) == image1bit.On
}

// Clear turns every pixel off regardless of the current color.
func (c *Canvas) Clear() {
	for i := range c.img.Pix {
		c.img.Pix[i] = 0
	}
}

// SetColor .
func (c *Canvas) SetColor(col Color) {
	c.color = col
}

func (c *Canvas) bit() image1bit.Bit {
	if c.color == White {
		return image1bit.On
	}
	return image1bit.Off
}

// SetPixel sets one pixel in the current color. Pixels outside the canvas are ignored.
func (c *Canvas) SetPixel(x, y int) {
	if !(image.Point{X: x, Y: y}).In(c.img.Rect) {
		return
	}
	c.img.SetBit(x, y, c.bit())
}

// DrawHorizontalLine draws length pixels to the right of x, y.
func (c *Canvas) DrawHorizontalLine(x, y, length int) {
	for i := 0; i < length; i++ {
		c.SetPixel(x+i, y)
	}
}

// DrawVerticalLine draws length pixels down from x, y.
func (c *Canvas) DrawVerticalLine(x, y, length int) {
	for i := 0; i < length; i++ {
		c.SetPixel(x, y+i)
	}
}

// FillRect fills w×h pixels from x, y.
func (c *Canvas) FillRect(x, y, w, h int) {
	r := image.Rect(x, y, x+w, y+h).Intersect(c.img.Rect)
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			c.img.SetBit(px, py, c.bit())
		}
	}
}

// DrawText draws text with its top left corner at x, y.
func (c *Canvas) DrawText(x, y int, text string) {
	d := font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(c.bit()),
		Face: c.face,
		Dot:  fixed.P(x, y+c.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// TextWidth is the pixel width of text as DrawText renders it.
func (c *Canvas) TextWidth(text string) int {
	return font.MeasureString(c.face, text).Ceil()
}

// LineHeight is the pixel height of a text line.
func (c *Canvas) LineHeight() int {
	return c.face.Metrics().Height.Ceil()
}

// Commit puts the frame buffer on the panel.
func (c *Canvas) Commit() error {
	if err := c.panel.Draw(c.img.Bounds(), c.img, image.Point{}); err != nil {
		return errors.Wrap(err, "func Draw")
	}
	return nil
}

// Close halts the panel.
func (c *Canvas) Close() error {
	return c.panel.Halt()
}

// NopPanel discards frames, used when no panel is attached.
type NopPanel struct{}

// Draw .
func (NopPanel) Draw(image.Rectangle, image.Image, image.Point) error { return nil }

// Halt .
func (NopPanel) Halt() error { return nil }

// MemPanel keeps the last committed frame.
type MemPanel struct {
	Frame   *image.Gray
	Commits int
}

// Draw .
func (m *MemPanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if m.Frame == nil || m.Frame.Bounds() != r {
		m.Frame = image.NewGray(r)
	}
	draw.Draw(m.Frame, r, src, sp, draw.Src)
	m.Commits++
	return nil
}

// Halt .
func (m *MemPanel) Halt() error { return nil }

// messageLineStep is the vertical distance between status message lines.
const messageLineStep = 10

// messageMaxWidth is the width status messages are wrapped at.
const messageMaxWidth = 120

// ShowMessage clears the display, draws text on the given status line wrapped at the message width
// and commits.
func ShowMessage(d Display, line int, text string) error {
	d.Clear()
	d.SetColor(White)
	y := line * messageLineStep
	for _, l := range wrap(text, messageMaxWidth, d.TextWidth) {
		d.DrawText(0, y, l)
		y += d.LineHeight()
	}
	return d.Commit()
}

// wrap splits text on spaces into lines no wider than max. Words wider than max are cut.
func wrap(text string, max int, width func(string) int) []string {
	var (
		lines []string
		cur   string
	)
	for _, w := range strings.Fields(text) {
		for width(w) > max {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			n := fit(w, max, width)
			lines = append(lines, w[:n])
			w = w[n:]
		}
		switch {
		case cur == "":
			cur = w
		case width(cur+" "+w) <= max:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// fit is the byte length of the longest rune prefix of w that fits in max, at least one rune.
func fit(w string, max int, width func(string) int) int {
	n := 0
	for i, r := range w {
		end := i + utf8.RuneLen(r)
		if n > 0 && width(w[:end]) > max {
			break
		}
		n = end
	}
	return n
}
