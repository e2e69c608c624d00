package display

import (
	"image"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// SSD1306 is a panel backed by an SSD1306 OLED on i2c.
type SSD1306 struct {
	dev *ssd1306.Dev
	bus i2c.BusCloser
}

// OpenSSD1306 initializes the periph host and opens a w×h SSD1306 at the default address on the named bus.
func OpenSSD1306(bus string, w, h int) (*SSD1306, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "func host.Init")
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, errors.Wrapf(err, "func i2creg.Open: bus [%s]", bus)
	}
	dev, err := ssd1306.NewI2C(b, &ssd1306.Opts{W: w, H: h})
	if err != nil {
		_ = b.Close()
		return nil, errors.Wrap(err, "func ssd1306.NewI2C")
	}
	return &SSD1306{dev: dev, bus: b}, nil
}

// Draw .
func (s *SSD1306) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	return s.dev.Draw(r, src, sp)
}

// Halt turns the panel off and releases the bus.
func (s *SSD1306) Halt() error {
	err := s.dev.Halt()
	if cerr := s.bus.Close(); err == nil {
		err = cerr
	}
	return err
}
