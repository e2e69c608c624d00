package svc

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kostiamol/fridgemon/command"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/network"
	"github.com/kostiamol/fridgemon/sensor"
	"github.com/kostiamol/fridgemon/transport"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

type fixedReader struct {
	s sensor.Sample
}

func (r fixedReader) Read() sensor.Sample { return r.s }

type fakeGraph struct {
	plots  int
	cursor int
	err    error
}

func (g *fakeGraph) Plot(_, _ float64) (bool, error) {
	g.plots++
	g.cursor++
	if g.cursor == 128 {
		g.cursor = 0
		return true, g.err
	}
	return false, g.err
}

func (g *fakeGraph) Cursor() int { return g.cursor }

func (g *fakeGraph) Wraps() int { return g.plots / 128 }

type fakePublisher struct {
	err       error
	published []sensor.Sample
}

func (p *fakePublisher) Publish(s sensor.Sample, deviceID string) (*transport.Message, error) {
	p.published = append(p.published, s)
	if p.err != nil {
		return nil, p.err
	}
	return &transport.Message{ID: "id", Payload: []byte(deviceID)}, nil
}

type countingServicer struct {
	calls int
}

func (s *countingServicer) ServiceOnce() { s.calls++ }

type fixture struct {
	ctrl    *command.Controller
	graph   *fakeGraph
	pub     *fakePublisher
	tr      *countingServicer
	pubChan chan []byte
	mon     *Monitor
}

func newFixture(online bool) *fixture {
	l := log.NewWithOutput("test", "debug", &bytes.Buffer{})
	m := metric.New("test")
	f := &fixture{
		ctrl:    command.NewController(&command.ControllerCfg{Log: l, Metric: m}),
		graph:   &fakeGraph{},
		pub:     &fakePublisher{},
		tr:      &countingServicer{},
		pubChan: make(chan []byte, 1),
	}
	f.mon = NewMonitor(&MonitorCfg{
		Log:       l,
		Ctrl:      NewCtrl(),
		Metric:    m,
		DeviceID:  "esp32-1",
		Interval:  time.Millisecond,
		Network:   network.Status{Connected: online, Addr: "10.0.0.2"},
		Reader:    fixedReader{s: sensor.Sample{FridgeTemp: 3.5, FridgeHumidity: 40, FreezerTemp: -18.2, FreezerHumidity: 55}},
		Graph:     f.graph,
		Gate:      f.ctrl,
		Publisher: f.pub,
		Transport: f.tr,
		PubChan:   f.pubChan,
	})
	return f
}

func TestCycle(t *testing.T) {
	Convey("Given an online monitor", t, func() {
		f := newFixture(true)

		Convey("while sending every cycle publishes and never services", func() {
			for i := 0; i < 5; i++ {
				f.mon.Cycle()
			}
			So(f.pub.published, ShouldHaveLength, 5)
			So(f.tr.calls, ShouldEqual, 0)
			So(f.graph.plots, ShouldEqual, 5)
		})

		Convey("while paused every cycle services and never publishes", func() {
			f.ctrl.Invoke("stop", nil)
			for i := 0; i < 300; i++ {
				f.mon.Cycle()
			}
			So(f.pub.published, ShouldBeEmpty)
			So(f.tr.calls, ShouldEqual, 300)
		})

		Convey("a start after stop resumes publishing on the next cycle", func() {
			f.ctrl.Invoke("stop", nil)
			f.mon.Cycle()
			f.ctrl.Invoke("start", nil)
			f.mon.Cycle()
			So(f.pub.published, ShouldHaveLength, 1)
			So(f.tr.calls, ShouldEqual, 1)
		})

		Convey("the published payload is offered to the stream", func() {
			f.mon.Cycle()
			So(string(<-f.pubChan), ShouldEqual, "esp32-1")

			Convey("and skipped when the stream is busy", func() {
				f.mon.Cycle()
				f.mon.Cycle()
				So(len(f.pubChan), ShouldEqual, 1)
			})
		})

		Convey("publish and display errors do not stop the loop", func() {
			f.pub.err = errors.New("not connected")
			f.graph.err = errors.New("i2c nack")
			f.mon.Cycle()
			f.mon.Cycle()
			So(f.graph.plots, ShouldEqual, 2)
			So(f.mon.Status().Cycles, ShouldEqual, uint64(2))
		})

		Convey("the status reflects the last cycle", func() {
			f.ctrl.Invoke("stop", nil)
			f.mon.Cycle()
			s := f.mon.Status()
			So(s.DeviceID, ShouldEqual, "esp32-1")
			So(s.State, ShouldEqual, "paused")
			So(s.Online, ShouldBeTrue)
			So(s.Cursor, ShouldEqual, 1)
			So(s.Sample.FreezerTemp, ShouldEqual, -18.2)
		})
	})

	Convey("Given an offline monitor", t, func() {
		f := newFixture(false)

		Convey("cycles only render", func() {
			f.mon.Cycle()
			So(f.graph.plots, ShouldEqual, 1)
			So(f.pub.published, ShouldBeEmpty)
			So(f.tr.calls, ShouldEqual, 0)
		})
	})
}

func TestCycleInvalidFields(t *testing.T) {
	f := newFixture(true)
	f.mon.reader = fixedReader{s: sensor.Sample{FridgeHumidity: 40, Invalid: sensor.FridgeTemp | sensor.FreezerHumidity}}

	f.mon.Cycle()
	assert.Equal(t, []string{"FridgeTemp", "FreezerHumidity"}, f.mon.Status().Invalid)
}

func TestRun(t *testing.T) {
	Convey("Run cycles until the context is cancelled", t, func() {
		f := newFixture(true)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			f.mon.Run(ctx)
			close(done)
		}()

		deadline := time.Now().Add(time.Second)
		for f.mon.Status().Cycles < 3 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		cancel()
		<-done

		So(f.mon.Status().Cycles, ShouldBeGreaterThanOrEqualTo, uint64(3))
	})

	Convey("Run returns when StopChan is closed", t, func() {
		f := newFixture(false)
		f.mon.interval = time.Hour

		done := make(chan struct{})
		go func() {
			f.mon.Run(context.Background())
			close(done)
		}()
		f.mon.ctrl.Terminate()

		stopped := false
		select {
		case <-done:
			stopped = true
		case <-time.After(time.Second):
		}
		So(stopped, ShouldBeTrue)
		So(f.mon.Status().Cycles, ShouldEqual, uint64(0))
	})
}
