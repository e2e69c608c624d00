package cfg

import (
	"fmt"
	"time"
)

// Transport kinds.
const (
	TransportMQTT  = "mqtt"
	TransportNATS  = "nats"
	TransportRedis = "redis"
)

// Transport holds telemetry transport configuration.
type Transport struct {
	Kind     string
	Addr     Addr
	User     string
	Password string
	TLS      bool
	// HubName is the IoT hub host prefix used in the MQTT username.
	HubName    string
	InboxSize  int
	AckTimeout time.Duration
}

func (t Transport) validate() error {
	switch t.Kind {
	case TransportMQTT, TransportNATS, TransportRedis:
	default:
		return fmt.Errorf("transport env var is unknown: %q", t.Kind)
	}
	if t.Addr.Host == "" {
		return fmt.Errorf("transport host env var is missing")
	}
	if t.Addr.Port == 0 || t.Addr.Port > 65535 {
		return fmt.Errorf("transport port env var is missing")
	}
	if t.InboxSize <= 0 {
		return fmt.Errorf("transport inbox size env var is invalid")
	}
	if t.AckTimeout <= 0 {
		return fmt.Errorf("transport ack timeout env var is invalid")
	}
	return nil
}
