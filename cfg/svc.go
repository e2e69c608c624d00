package cfg

import (
	"fmt"
	"time"
)

// DefaultDeviceID is shared between the telemetry payload and the transport's device identity.
const DefaultDeviceID = "esp32-1"

// Service holds basic service configuration.
type Service struct {
	AppID              string
	LogLevel           string
	DeviceID           string
	CycleInterval      time.Duration
	TerminationTimeout time.Duration
	// PortREST is the local api port, 0 disables the api.
	PortREST uint64
}

func (s Service) validate() error {
	if s.AppID == "" {
		return fmt.Errorf("app id env var is missing")
	}
	if s.LogLevel == "" {
		return fmt.Errorf("log level env var is missing")
	}
	if s.DeviceID == "" {
		return fmt.Errorf("device id env var is missing")
	}
	if s.CycleInterval <= 0 {
		return fmt.Errorf("cycle interval env var is invalid")
	}
	if s.TerminationTimeout <= 0 {
		return fmt.Errorf("termination timeout env var is invalid")
	}
	if s.PortREST > 65535 {
		return fmt.Errorf("rest port env var is out of range")
	}
	return nil
}
