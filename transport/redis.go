package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/kostiamol/fridgemon/cfg"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/pkg/errors"
)

// envelope wraps a method call published on a Redis channel.
type envelope struct {
	RID     string          `json:"rid"`
	Payload json.RawMessage `json:"payload"`
}

type (
	// RedisCfg is used to initialize an instance of Redis.
	RedisCfg struct {
		Log      log.Logger
		Metric   *metric.Metric
		DeviceID string
		Cfg      cfg.Transport
	}

	// Redis talks to the hub over Redis pub/sub channels devices:{id}:*.
	Redis struct {
		*Dispatcher
		log      log.Logger
		deviceID string
		cfg      cfg.Transport

		conn redis.Conn
		psc  redis.PubSubConn
		done chan struct{}
		wg   sync.WaitGroup
	}
)

// NewRedis creates a Redis transport. Nothing is connected until Connect.
func NewRedis(c *RedisCfg) *Redis {
	return &Redis{
		Dispatcher: NewDispatcher(&DispatcherCfg{Log: c.Log, Metric: c.Metric, InboxSize: c.Cfg.InboxSize}),
		log:        c.Log.With("component", "redis"),
		deviceID:   c.DeviceID,
		cfg:        c.Cfg,
	}
}

func (r *Redis) channel(parts ...string) string {
	return "devices:" + r.deviceID + ":" + strings.Join(parts, ":")
}

func (r *Redis) dial() (redis.Conn, error) {
	opts := []redis.DialOption{redis.DialConnectTimeout(r.cfg.AckTimeout)}
	if r.cfg.Password != "" {
		opts = append(opts, redis.DialPassword(r.cfg.Password))
	}
	if r.cfg.TLS {
		opts = append(opts, redis.DialUseTLS(true))
	}
	return redis.Dial("tcp", fmt.Sprintf("%s:%d", r.cfg.Addr.Host, r.cfg.Addr.Port), opts...)
}

// Connect opens a command and a subscriber connection and starts receiving methods, twin patches and
// cloud-to-device messages.
func (r *Redis) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := r.dial()
	if err != nil {
		return errors.Wrap(err, "func Dial")
	}
	sub, err := r.dial()
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "func Dial")
	}

	psc := redis.PubSubConn{Conn: sub}
	if err := psc.PSubscribe(r.channel("methods", "*")); err != nil {
		_ = conn.Close()
		_ = sub.Close()
		return errors.Wrap(err, "func PSubscribe")
	}
	if err := psc.Subscribe(r.channel("twin", "desired"), r.channel("messages", "devicebound")); err != nil {
		_ = conn.Close()
		_ = sub.Close()
		return errors.Wrap(err, "func Subscribe")
	}

	r.conn, r.psc, r.done = conn, psc, make(chan struct{})
	r.wg.Add(1)
	go r.receive()

	r.log.With("event", log.EventTransportConnect).Infof("device [%s]", r.deviceID)
	return nil
}

func (r *Redis) receive() {
	defer r.wg.Done()

	for {
		switch v := r.psc.Receive().(type) {
		case redis.PMessage:
			r.route(v.Channel, v.Data)
		case redis.Message:
			r.route(v.Channel, v.Data)
		case redis.Subscription:
			r.log.Debugf("func receive: %s [%s] count [%d]", v.Kind, v.Channel, v.Count)
			if v.Count == 0 {
				return
			}
		case error:
			select {
			case <-r.done:
			default:
				r.log.Errorf("func Receive: %s", v)
			}
			return
		}
	}
}

// route queues an inbound publish by its channel. It runs on the receiver goroutine.
func (r *Redis) route(channel string, data []byte) {
	switch {
	case strings.HasPrefix(channel, r.channel("methods")+":"):
		name := channel[len(r.channel("methods"))+1:]
		if strings.Contains(name, ":") {
			return
		}
		var e envelope
		if err := json.Unmarshal(data, &e); err != nil || e.RID == "" {
			r.log.Warnf("func route: malformed method call on [%s]", channel)
			return
		}
		r.call(name, e.Payload, func(status int, body []byte) error {
			_, err := r.conn.Do("PUBLISH", r.channel("responses", fmt.Sprint(status), e.RID), body)
			return err
		})
	case channel == r.channel("twin", "desired"):
		r.twin(TwinPartial, data)
	case channel == r.channel("messages", "devicebound"):
		r.message(data)
	default:
		r.log.Debugf("func route: unexpected channel [%s]", channel)
	}
}

// Send publishes msg on the events channel with its properties encoded in the channel name, then
// services pending work. The message counts as delivered once Redis accepted the PUBLISH.
func (r *Redis) Send(msg *Message) error {
	defer r.service()

	if r.conn == nil {
		r.confirm(msg.ID, ConfirmationError)
		return errors.New("func Send: not connected")
	}

	v := url.Values{}
	for k, p := range msg.Properties {
		v.Set(k, p)
	}
	if _, err := redis.Int64(r.conn.Do("PUBLISH", r.channel("messages", "events", v.Encode()), msg.Payload)); err != nil {
		r.confirm(msg.ID, ConfirmationError)
		return errors.Wrap(err, "func PUBLISH")
	}
	r.confirm(msg.ID, ConfirmationOK)
	return nil
}

// Close unsubscribes, waits for the receiver and closes both connections.
func (r *Redis) Close() error {
	if r.conn == nil {
		return nil
	}
	close(r.done)
	_ = r.psc.PUnsubscribe()
	_ = r.psc.Unsubscribe()

	wait := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(wait)
	}()
	select {
	case <-wait:
	case <-time.After(time.Second):
		r.log.Warnf("func Close: receiver did not stop")
	}

	err := r.psc.Close()
	if cerr := r.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
