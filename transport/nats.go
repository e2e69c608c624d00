package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kostiamol/fridgemon/cfg"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

// StatusHeader carries the method response status on NATS replies.
const StatusHeader = "Status"

type (
	// NATSCfg is used to initialize an instance of NATS.
	NATSCfg struct {
		Log      log.Logger
		Metric   *metric.Metric
		DeviceID string
		Cfg      cfg.Transport
	}

	// NATS talks to the hub over NATS subjects devices.{id}.*.
	NATS struct {
		*Dispatcher
		log        log.Logger
		deviceID   string
		cfg        cfg.Transport
		ackTimeout time.Duration
		conn       *nats.Conn
		subs       []*nats.Subscription
	}
)

// NewNATS creates a NATS transport. Nothing is connected until Connect.
func NewNATS(c *NATSCfg) *NATS {
	return &NATS{
		Dispatcher: NewDispatcher(&DispatcherCfg{Log: c.Log, Metric: c.Metric, InboxSize: c.Cfg.InboxSize}),
		log:        c.Log.With("component", "nats"),
		deviceID:   c.DeviceID,
		cfg:        c.Cfg,
		ackTimeout: c.Cfg.AckTimeout,
	}
}

func (n *NATS) subject(parts ...string) string {
	return "devices." + n.deviceID + "." + strings.Join(parts, ".")
}

// Connect connects to the server, subscribes to methods, twin and cloud-to-device messages and
// requests the full twin.
func (n *NATS) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := []nats.Option{nats.Name(n.deviceID)}
	if n.cfg.User != "" {
		opts = append(opts, nats.UserInfo(n.cfg.User, n.cfg.Password))
	}
	if n.cfg.TLS {
		opts = append(opts, nats.Secure())
	}

	conn, err := nats.Connect(fmt.Sprintf("nats://%s:%d", n.cfg.Addr.Host, n.cfg.Addr.Port), opts...)
	if err != nil {
		return errors.Wrap(err, "func nats.Connect")
	}
	n.conn = conn

	handlers := map[string]nats.MsgHandler{
		n.subject("methods", "*"):            n.onMethod,
		n.subject("twin", "desired"):         func(m *nats.Msg) { n.twin(TwinPartial, m.Data) },
		n.subject("messages", "devicebound"): func(m *nats.Msg) { n.message(m.Data) },
	}
	for s, h := range handlers {
		sub, err := conn.Subscribe(s, h)
		if err != nil {
			conn.Close()
			return errors.Wrapf(err, "func Subscribe: subject [%s]", s)
		}
		n.subs = append(n.subs, sub)
	}

	if msg, err := conn.Request(n.subject("twin", "get"), nil, n.ackTimeout); err != nil {
		n.log.Warnf("func Connect: twin request: %s", err)
	} else {
		n.twin(TwinComplete, msg.Data)
	}

	n.log.With("event", log.EventTransportConnect).Infof("device [%s]", n.deviceID)
	return nil
}

func (n *NATS) onMethod(m *nats.Msg) {
	name := m.Subject[strings.LastIndex(m.Subject, ".")+1:]
	reply := m.Reply
	n.call(name, m.Data, func(status int, body []byte) error {
		if reply == "" {
			return nil
		}
		out := nats.NewMsg(reply)
		out.Header.Set(StatusHeader, strconv.Itoa(status))
		out.Data = body
		return n.conn.PublishMsg(out)
	})
}

// Send publishes msg with its properties as headers, waits for the server to process it and then
// services pending work.
func (n *NATS) Send(msg *Message) error {
	defer n.service()

	if n.conn == nil {
		n.confirm(msg.ID, ConfirmationError)
		return errors.New("func Send: not connected")
	}

	out := nats.NewMsg(n.subject("messages", "events"))
	for k, v := range msg.Properties {
		out.Header.Set(k, v)
	}
	out.Data = msg.Payload

	if err := n.conn.PublishMsg(out); err != nil {
		n.confirm(msg.ID, ConfirmationError)
		return errors.Wrap(err, "func PublishMsg")
	}
	if err := n.conn.FlushTimeout(n.ackTimeout); err != nil {
		n.confirm(msg.ID, ConfirmationError)
		return nil
	}
	n.confirm(msg.ID, ConfirmationOK)
	return nil
}

// Close unsubscribes and closes the connection.
func (n *NATS) Close() error {
	if n.conn == nil {
		return nil
	}
	for _, s := range n.subs {
		_ = s.Unsubscribe()
	}
	n.conn.Close()
	return nil
}
