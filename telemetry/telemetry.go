// Package telemetry formats samples and hands them to the transport.
package telemetry

import (
	"fmt"

	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/sensor"
	"github.com/kostiamol/fridgemon/transport"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// MaxPayloadLen is the longest payload Format produces.
const MaxPayloadLen = 255

// Message properties.
const (
	PropTemperatureAlert = "temperatureAlert"
	PropMessageID        = "messageId"
)

const payloadTemplate = `{"deviceId":"%s", "FridgeTemp":%f, "FridgeHumidity":%f, "FreezerTemp":%f, "FreezerHumidity":%f}`

// FormatError is returned when a payload would exceed MaxPayloadLen.
type FormatError struct {
	Len int
	Max int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("payload of %d bytes exceeds %d", e.Len, e.Max)
}

// Format renders the payload of s for deviceID. It never truncates.
func Format(deviceID string, s sensor.Sample) ([]byte, error) {
	p := fmt.Sprintf(payloadTemplate, deviceID, s.FridgeTemp, s.FridgeHumidity, s.FreezerTemp, s.FreezerHumidity)
	if len(p) > MaxPayloadLen {
		return nil, &FormatError{Len: len(p), Max: MaxPayloadLen}
	}
	return []byte(p), nil
}

// Sender hands messages to the transport.
type Sender interface {
	Send(*transport.Message) error
}

type (
	// PublisherCfg is used to initialize an instance of Publisher.
	PublisherCfg struct {
		Log    log.Logger
		Metric *metric.Metric
		Sender Sender
	}

	// Publisher is the telemetry publisher.
	Publisher struct {
		log    log.Logger
		metric *metric.Metric
		sender Sender
		newID  func() string
	}
)

// NewPublisher creates and initializes a new instance of Publisher.
func NewPublisher(c *PublisherCfg) *Publisher {
	return &Publisher{
		log:    c.Log.With("component", "telemetry"),
		metric: c.Metric,
		sender: c.Sender,
		newID:  func() string { return uuid.NewV4().String() },
	}
}

// Publish formats s and hands it to the transport. Delivery is confirmed later through the
// transport's confirmation handler and never awaited here.
func (p *Publisher) Publish(s sensor.Sample, deviceID string) (*transport.Message, error) {
	b, err := Format(deviceID, s)
	if err != nil {
		p.metric.Published("format_error")
		return nil, errors.Wrap(err, "func Format")
	}

	id := p.newID()
	msg := &transport.Message{
		ID:      id,
		Payload: b,
		Properties: map[string]string{
			PropTemperatureAlert: "true",
			PropMessageID:        id,
		},
	}

	p.log.With("event", log.EventTelemetrySent, "msg_id", id).Info(string(b))

	if err := p.sender.Send(msg); err != nil {
		p.metric.Published("send_error")
		return msg, errors.Wrap(err, "func Send")
	}
	p.metric.Published("ok")
	return msg, nil
}

// OnConfirmation logs the delivery outcome of a message.
func (p *Publisher) OnConfirmation(msgID string, r transport.ConfirmationResult) {
	l := p.log.With("event", log.EventTelemetryAcked, "msg_id", msgID)
	if r != transport.ConfirmationOK {
		l.Warnf("confirmation [%s]", r)
		return
	}
	l.Infof("confirmation [%s]", r)
}
