package cfg

import "fmt"

// Display drivers.
const (
	DisplayDriverSSD1306 = "ssd1306"
	DisplayDriverNone    = "none"
)

// Display holds display panel configuration.
type Display struct {
	Driver string
	I2CBus string
	Width  int
	Height int
}

func (d Display) validate() error {
	if d.Driver != DisplayDriverSSD1306 && d.Driver != DisplayDriverNone {
		return fmt.Errorf("display driver env var is unknown: %q", d.Driver)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("display size env var is invalid")
	}
	return nil
}
