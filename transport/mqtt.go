package transport

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/kostiamol/fridgemon/cfg"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/pkg/errors"
	"gobot.io/x/gobot/v2/platforms/mqtt"
)

// Azure IoT Hub MQTT topics.
const (
	hubAPIVersion    = "2021-04-12"
	methodsPrefix    = "$iothub/methods/POST/"
	methodsRes       = "$iothub/methods/res/%d/?$rid=%s"
	twinDesiredTopic = "$iothub/twin/PATCH/properties/desired/"
	twinResPrefix    = "$iothub/twin/res/"
	twinGetTopic     = "$iothub/twin/GET/?$rid=%s"
)

// mqttAdaptor is the part of the gobot mqtt adaptor the backend uses.
type mqttAdaptor interface {
	Connect() error
	Finalize() error
	Publish(topic string, message []byte) bool
	On(event string, f func(msg mqtt.Message)) bool
}

type (
	// MQTTCfg is used to initialize an instance of MQTT.
	MQTTCfg struct {
		Log      log.Logger
		Metric   *metric.Metric
		DeviceID string
		Cfg      cfg.Transport
	}

	// MQTT talks to an IoT hub over MQTT using the Azure IoT Hub topic scheme.
	MQTT struct {
		*Dispatcher
		log      log.Logger
		deviceID string
		adaptor  mqttAdaptor
		twinRID  string
	}
)

// NewMQTT creates an MQTT transport. Nothing is connected until Connect.
func NewMQTT(c *MQTTCfg) *MQTT {
	hub := c.Cfg.HubName
	if hub == "" {
		hub = c.Cfg.Addr.Host
	}
	scheme := "tcp"
	if c.Cfg.TLS {
		scheme = "ssl"
	}
	a := mqtt.NewAdaptorWithAuth(
		fmt.Sprintf("%s://%s:%d", scheme, c.Cfg.Addr.Host, c.Cfg.Addr.Port),
		c.DeviceID,
		fmt.Sprintf("%s/%s/?api-version=%s", hub, c.DeviceID, hubAPIVersion),
		c.Cfg.Password,
	)
	a.SetUseSSL(c.Cfg.TLS)
	a.SetAutoReconnect(true)

	return newMQTT(c, a)
}

func newMQTT(c *MQTTCfg, a mqttAdaptor) *MQTT {
	return &MQTT{
		Dispatcher: NewDispatcher(&DispatcherCfg{Log: c.Log, Metric: c.Metric, InboxSize: c.Cfg.InboxSize}),
		log:        c.Log.With("component", "mqtt"),
		deviceID:   c.DeviceID,
		adaptor:    a,
		twinRID:    "0",
	}
}

func (m *MQTT) c2dTopic() string {
	return fmt.Sprintf("devices/%s/messages/devicebound/", m.deviceID)
}

func (m *MQTT) eventsTopic(props map[string]string) string {
	v := url.Values{}
	for k, p := range props {
		v.Set(k, p)
	}
	return fmt.Sprintf("devices/%s/messages/events/%s", m.deviceID, v.Encode())
}

// Connect connects to the hub, subscribes to methods, twin and cloud-to-device messages and requests
// the full twin.
func (m *MQTT) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.adaptor.Connect(); err != nil {
		return errors.Wrap(err, "func Connect")
	}

	for _, t := range []string{methodsPrefix + "#", twinDesiredTopic + "#", twinResPrefix + "#", m.c2dTopic() + "#"} {
		if !m.adaptor.On(t, func(msg mqtt.Message) { m.route(msg.Topic(), msg.Payload()) }) {
			return errors.Errorf("func On: subscription to [%s] failed", t)
		}
	}

	if !m.adaptor.Publish(fmt.Sprintf(twinGetTopic, m.twinRID), nil) {
		m.log.Warnf("func Connect: twin request failed")
	}

	m.log.With("event", log.EventTransportConnect).Infof("device [%s]", m.deviceID)
	return nil
}

// route queues an inbound publish by its topic. It runs on the mqtt client goroutine.
func (m *MQTT) route(topic string, payload []byte) {
	switch {
	case strings.HasPrefix(topic, methodsPrefix):
		name, rid, ok := parseMethodTopic(topic)
		if !ok {
			m.log.Warnf("func route: malformed method topic [%s]", topic)
			return
		}
		m.call(name, payload, func(status int, body []byte) error {
			if !m.adaptor.Publish(fmt.Sprintf(methodsRes, status, rid), body) {
				return errors.Errorf("publish of method response [%s] failed", rid)
			}
			return nil
		})
	case strings.HasPrefix(topic, twinDesiredTopic):
		m.twin(TwinPartial, payload)
	case strings.HasPrefix(topic, twinResPrefix):
		if status, rid, ok := parseTwinResTopic(topic); ok && status == 200 && rid == m.twinRID {
			m.twin(TwinComplete, payload)
		}
	case strings.HasPrefix(topic, m.c2dTopic()):
		m.message(payload)
	default:
		m.log.Debugf("func route: unexpected topic [%s]", topic)
	}
}

// parseMethodTopic splits $iothub/methods/POST/{name}/?$rid={rid}.
func parseMethodTopic(topic string) (name, rid string, ok bool) {
	rest := strings.TrimPrefix(topic, methodsPrefix)
	i := strings.Index(rest, "/?")
	if i <= 0 {
		return "", "", false
	}
	q, err := url.ParseQuery(rest[i+2:])
	if err != nil {
		return "", "", false
	}
	rid = q.Get("$rid")
	return rest[:i], rid, rid != ""
}

// parseTwinResTopic splits $iothub/twin/res/{status}/?$rid={rid}.
func parseTwinResTopic(topic string) (status int, rid string, ok bool) {
	rest := strings.TrimPrefix(topic, twinResPrefix)
	i := strings.Index(rest, "/?")
	if i <= 0 {
		return 0, "", false
	}
	status, err := strconv.Atoi(rest[:i])
	if err != nil {
		return 0, "", false
	}
	q, err := url.ParseQuery(rest[i+2:])
	if err != nil {
		return 0, "", false
	}
	return status, q.Get("$rid"), true
}

// Send publishes msg on the device events topic with its properties encoded in the topic, then
// services pending work.
func (m *MQTT) Send(msg *Message) error {
	defer m.service()

	if !m.adaptor.Publish(m.eventsTopic(msg.Properties), msg.Payload) {
		m.confirm(msg.ID, ConfirmationError)
		return errors.Errorf("func Publish: message [%s] was not handed over", msg.ID)
	}
	m.confirm(msg.ID, ConfirmationOK)
	return nil
}

// Close disconnects from the hub.
func (m *MQTT) Close() error {
	return m.adaptor.Finalize()
}
