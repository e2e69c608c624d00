// Package cfg provides the monitor configuration read from environment variables.
package cfg

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type (
	// Config holds the whole monitor configuration.
	Config struct {
		Service   Service
		Sensor    Sensor
		Display   Display
		Graph     Graph
		Transport Transport
		Network   Network
	}

	// Addr is used to store IP address and an open port of the remote server.
	Addr struct {
		Host string
		Port uint64
	}
)

// NewConfig reads the configuration from the environment and validates it.
func NewConfig() (*Config, error) {
	c := &Config{
		Service: Service{
			AppID:              strEnv("APP_ID", "fridgemon"),
			LogLevel:           strEnv("LOG_LEVEL", "info"),
			DeviceID:           strEnv("DEVICE_ID", DefaultDeviceID),
			CycleInterval:      durationEnv("CYCLE_INTERVAL", 2*time.Second),
			TerminationTimeout: durationEnv("TERMINATION_TIMEOUT", 3*time.Second),
			PortREST:           uintEnv("PORT_REST", 0),
		},
		Sensor: Sensor{
			Driver:      strEnv("SENSOR_DRIVER", SensorDriverBME280),
			I2CBus:      strEnv("SENSOR_I2C_BUS", ""),
			FridgeAddr:  uintEnv("FRIDGE_SENSOR_ADDR", 0x76),
			FreezerAddr: uintEnv("FREEZER_SENSOR_ADDR", 0x77),
		},
		Display: Display{
			Driver: strEnv("DISPLAY_DRIVER", DisplayDriverSSD1306),
			I2CBus: strEnv("DISPLAY_I2C_BUS", ""),
			Width:  int(uintEnv("DISPLAY_WIDTH", 128)),
			Height: int(uintEnv("DISPLAY_HEIGHT", 64)),
		},
		Graph: DefaultGraph(),
		Transport: Transport{
			Kind:       strEnv("TRANSPORT", TransportMQTT),
			Addr:       Addr{Host: os.Getenv("TRANSPORT_HOST"), Port: uintEnv("TRANSPORT_PORT", 0)},
			User:       os.Getenv("TRANSPORT_USER"),
			Password:   os.Getenv("TRANSPORT_PASSWORD"),
			TLS:        boolEnv("TRANSPORT_TLS", false),
			HubName:    os.Getenv("MQTT_HUB_NAME"),
			InboxSize:  int(uintEnv("TRANSPORT_INBOX_SIZE", 32)),
			AckTimeout: durationEnv("TRANSPORT_ACK_TIMEOUT", time.Second),
		},
		Network: Network{
			Interface:     os.Getenv("NETWORK_INTERFACE"),
			RetryInterval: durationEnv("NETWORK_RETRY_INTERVAL", 500*time.Millisecond),
			MaxAttempts:   uint32(uintEnv("NETWORK_MAX_ATTEMPTS", 0)),
		},
	}
	c.Graph.TempMin = floatEnv("GRAPH_TEMP_MIN", c.Graph.TempMin)
	c.Graph.TempMax = floatEnv("GRAPH_TEMP_MAX", c.Graph.TempMax)

	if err := c.validate(); err != nil {
		return nil, errors.Wrap(err, "func validate")
	}
	return c, nil
}

func (c *Config) validate() error {
	if err := c.Service.validate(); err != nil {
		return err
	}
	if err := c.Sensor.validate(); err != nil {
		return err
	}
	if err := c.Display.validate(); err != nil {
		return err
	}
	if err := c.Graph.validate(); err != nil {
		return err
	}
	if err := c.Transport.validate(); err != nil {
		return err
	}
	return c.Network.validate()
}

func strEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// uintEnv accepts decimal and 0x-prefixed values. Unparsable values yield 0 so that validation reports them.
func uintEnv(key string, def uint64) uint64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64)
	if err != nil {
		return 0
	}
	return n
}

// floatEnv yields NaN for unparsable values so that validation reports them.
func floatEnv(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func boolEnv(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationEnv(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
