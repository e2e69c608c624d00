package cfg

import "fmt"

// Sensor drivers.
const (
	SensorDriverBME280 = "bme280"
	SensorDriverSim    = "sim"
)

// Sensor holds configuration of the fridge and freezer sensor channels.
type Sensor struct {
	Driver string
	// I2CBus is the periph bus name, empty selects the first bus.
	I2CBus      string
	FridgeAddr  uint64
	FreezerAddr uint64
}

func (s Sensor) validate() error {
	switch s.Driver {
	case SensorDriverSim:
		return nil
	case SensorDriverBME280:
	default:
		return fmt.Errorf("sensor driver env var is unknown: %q", s.Driver)
	}
	if s.FridgeAddr == 0 || s.FridgeAddr > 0x7f {
		return fmt.Errorf("fridge sensor addr env var is invalid")
	}
	if s.FreezerAddr == 0 || s.FreezerAddr > 0x7f {
		return fmt.Errorf("freezer sensor addr env var is invalid")
	}
	if s.FridgeAddr == s.FreezerAddr {
		return fmt.Errorf("fridge and freezer sensors share addr %#x", s.FridgeAddr)
	}
	return nil
}
