package transport_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/kostiamol/fridgemon/cfg"
	"github.com/kostiamol/fridgemon/command"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/transport"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	. "github.com/smartystreets/goconvey/convey"
)

const deviceID = "esp32-1"

// waitPending polls until the transport has queued n inbound events.
func waitPending(tr *transport.NATS, n int) {
	for i := 0; i < 200 && tr.Pending() < n; i++ {
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNATS(t *testing.T) {
	Convey("Given a NATS transport connected to a local server", t, func() {
		opts := natsserver.DefaultTestOptions
		opts.Port = -1
		srv := natsserver.RunServer(&opts)
		Reset(srv.Shutdown)

		hub, err := nats.Connect(srv.ClientURL())
		So(err, ShouldBeNil)
		Reset(hub.Close)

		_, err = hub.Subscribe("devices."+deviceID+".twin.get", func(m *nats.Msg) {
			_ = m.Respond([]byte(`{"desired":{"interval":2}}`))
		})
		So(err, ShouldBeNil)
		So(hub.Flush(), ShouldBeNil)

		l := log.NewWithOutput("test", "debug", io.Discard)
		m := metric.NewWithRegistry("test", prometheus.NewRegistry())
		tr := transport.NewNATS(&transport.NATSCfg{
			Log:      l,
			Metric:   m,
			DeviceID: deviceID,
			Cfg: cfg.Transport{
				Kind:       cfg.TransportNATS,
				Addr:       cfg.Addr{Host: "127.0.0.1", Port: uint64(srv.Addr().(*net.TCPAddr).Port)},
				InboxSize:  8,
				AckTimeout: 500 * time.Millisecond,
			},
		})
		So(tr.Connect(context.Background()), ShouldBeNil)
		Reset(func() { _ = tr.Close() })

		Convey("the full twin requested at connect is delivered as complete", func() {
			var kind transport.TwinUpdate = -1
			var doc string
			tr.SetTwinHandler(func(u transport.TwinUpdate, p []byte) {
				kind, doc = u, string(p)
			})
			tr.ServiceOnce()

			So(kind, ShouldEqual, transport.TwinComplete)
			So(doc, ShouldEqual, `{"desired":{"interval":2}}`)
		})

		Convey("start and stop arrive as requests and are answered with a status header", func() {
			ctrl := command.NewController(&command.ControllerCfg{Log: l, Metric: m})
			tr.SetMethodHandler(ctrl.HandleMethod)
			tr.ServiceOnce()

			call := func(method string) *nats.Msg {
				inbox := nats.NewInbox()
				sub, err := hub.SubscribeSync(inbox)
				So(err, ShouldBeNil)
				defer sub.Unsubscribe() //nolint

				So(hub.PublishRequest("devices."+deviceID+".methods."+method, inbox, []byte(`{}`)), ShouldBeNil)
				So(hub.Flush(), ShouldBeNil)

				waitPending(tr, 1)
				tr.ServiceOnce()

				reply, err := sub.NextMsg(time.Second)
				So(err, ShouldBeNil)
				return reply
			}

			reply := call("stop")
			So(reply.Header.Get(transport.StatusHeader), ShouldEqual, "200")
			So(string(reply.Data), ShouldEqual, `"Successfully invoke device method"`)
			So(ctrl.State(), ShouldEqual, command.Paused)

			reply = call("start")
			So(reply.Header.Get(transport.StatusHeader), ShouldEqual, "200")
			So(ctrl.State(), ShouldEqual, command.Sending)

			reply = call("reboot")
			So(reply.Header.Get(transport.StatusHeader), ShouldEqual, "404")
			So(string(reply.Data), ShouldEqual, `"No method found"`)
			So(ctrl.State(), ShouldEqual, command.Sending)
		})

		Convey("Send publishes properties as headers and confirms", func() {
			sub, err := hub.SubscribeSync("devices." + deviceID + ".messages.events")
			So(err, ShouldBeNil)
			So(hub.Flush(), ShouldBeNil)

			var id string
			var result transport.ConfirmationResult = -1
			tr.SetConfirmationHandler(func(msgID string, r transport.ConfirmationResult) {
				id, result = msgID, r
			})

			msg := &transport.Message{
				ID:         "m1",
				Payload:    []byte(`{"deviceId":"esp32-1"}`),
				Properties: map[string]string{"temperatureAlert": "true", "messageId": "m1"},
			}
			So(tr.Send(msg), ShouldBeNil)
			So(id, ShouldEqual, "m1")
			So(result, ShouldEqual, transport.ConfirmationOK)

			got, err := sub.NextMsg(time.Second)
			So(err, ShouldBeNil)
			So(string(got.Data), ShouldEqual, `{"deviceId":"esp32-1"}`)
			So(got.Header.Get("temperatureAlert"), ShouldEqual, "true")
			So(got.Header.Get("messageId"), ShouldEqual, "m1")

			Convey("an unacknowledged flush is confirmed as an error", func() {
				srv.Shutdown()
				result = -1
				_ = tr.Send(&transport.Message{ID: "m2", Payload: []byte("x")})
				So(id, ShouldEqual, "m2")
				So(result, ShouldEqual, transport.ConfirmationError)
			})
		})
	})
}
