package svc

import (
	"context"
	"sync"
	"time"

	"github.com/kostiamol/fridgemon/command"
	"github.com/kostiamol/fridgemon/errors"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/network"
	"github.com/kostiamol/fridgemon/sensor"
	"github.com/kostiamol/fridgemon/transport"
)

type (
	// SampleReader reads one sample per cycle.
	SampleReader interface {
		Read() sensor.Sample
	}

	// Plotter draws the trend graph.
	Plotter interface {
		Plot(fridgeTemp, freezerTemp float64) (wrapped bool, err error)
		Cursor() int
		Wraps() int
	}

	// Gate tells whether telemetry is enabled.
	Gate interface {
		Sending() bool
		State() command.State
	}

	// TelemetryPublisher hands a sample to the transport.
	TelemetryPublisher interface {
		Publish(s sensor.Sample, deviceID string) (*transport.Message, error)
	}

	// Servicer pumps pending transport work.
	Servicer interface {
		ServiceOnce()
	}

	// Snapshot is the monitor state after the last cycle.
	Snapshot struct {
		DeviceID  string        `json:"deviceId"`
		State     string        `json:"state"`
		Online    bool          `json:"online"`
		Addr      string        `json:"addr,omitempty"`
		Cycles    uint64        `json:"cycles"`
		Cursor    int           `json:"cursor"`
		Wraps     int           `json:"wraps"`
		Sample    sensor.Sample `json:"sample"`
		Invalid   []string      `json:"invalid,omitempty"`
		UpdatedAt time.Time     `json:"updatedAt"`
	}

	// MonitorCfg is used to initialize an instance of Monitor.
	MonitorCfg struct {
		Log       log.Logger
		Ctrl      Ctrl
		Metric    *metric.Metric
		DeviceID  string
		Interval  time.Duration
		Network   network.Status
		Reader    SampleReader
		Graph     Plotter
		Gate      Gate
		Publisher TelemetryPublisher
		Transport Servicer
		// PubChan receives every published payload. Sends never block the loop.
		PubChan chan<- []byte
	}

	// Monitor is the loop driver: one cycle samples, renders and then either publishes or services
	// the transport.
	Monitor struct {
		log       log.Logger
		ctrl      Ctrl
		metric    *metric.Metric
		deviceID  string
		interval  time.Duration
		net       network.Status
		reader    SampleReader
		graph     Plotter
		gate      Gate
		publisher TelemetryPublisher
		transport Servicer
		pubChan   chan<- []byte

		cycles uint64

		mu   sync.RWMutex
		snap Snapshot
	}
)

// NewMonitor creates and initializes a new instance of Monitor.
func NewMonitor(c *MonitorCfg) *Monitor {
	m := &Monitor{
		log:       c.Log.With("component", "monitor"),
		ctrl:      c.Ctrl,
		metric:    c.Metric,
		deviceID:  c.DeviceID,
		interval:  c.Interval,
		net:       c.Network,
		reader:    c.Reader,
		graph:     c.Graph,
		gate:      c.Gate,
		publisher: c.Publisher,
		transport: c.Transport,
		pubChan:   c.PubChan,
	}
	m.snap = Snapshot{
		DeviceID: c.DeviceID,
		State:    c.Gate.State().String(),
		Online:   c.Network.Connected,
		Addr:     c.Network.Addr,
	}
	return m
}

// Run waits the interval and runs a cycle until ctx is done or StopChan is closed.
func (m *Monitor) Run(ctx context.Context) {
	m.log.With("event", log.EventComponentStarted).Infof("interval [%s]", m.interval)

	defer func() {
		if r := recover(); r != nil {
			m.log.With("event", log.EventPanic).Errorf("func Run: %s", r)
			m.metric.ErrorCounter(log.EventPanic)
			m.ctrl.Terminate()
		}
	}()

	t := time.NewTimer(m.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.With("event", log.EventComponentShutdown).Infof("")
			return
		case <-m.ctrl.StopChan:
			m.log.With("event", log.EventComponentShutdown).Infof("")
			return
		case <-t.C:
			m.Cycle()
			t.Reset(m.interval)
		}
	}
}

// Cycle runs one cycle. Errors are logged and counted, none of them stops the loop.
func (m *Monitor) Cycle() {
	start := time.Now()
	defer m.metric.Timing(start, "cycle")

	s := m.reader.Read()
	var invalid []string
	for _, f := range sensor.Fields {
		if s.IsInvalid(f) {
			invalid = append(invalid, f.String())
			m.metric.InvalidReading(f.String())
		}
	}
	if len(invalid) != 0 {
		m.log.With("event", log.EventSensorInvalid).Debugf("fields %v replaced by the sentinel", invalid)
	}

	wrapped, err := m.graph.Plot(s.FridgeTemp, s.FreezerTemp)
	if err != nil {
		m.log.Errorf("func Cycle: %s", errors.Recoverable("plot", err))
		m.metric.ErrorCounter("display_commit")
	}
	if wrapped {
		m.metric.GraphWrapped()
		m.log.With("event", log.EventGraphWrapped).Debugf("wraps [%d]", m.graph.Wraps())
	}

	if m.net.Connected {
		if m.gate.Sending() {
			m.publish(s)
		} else {
			m.transport.ServiceOnce()
		}
	}

	m.cycles++
	m.metric.Cycle()

	m.mu.Lock()
	m.snap = Snapshot{
		DeviceID:  m.deviceID,
		State:     m.gate.State().String(),
		Online:    m.net.Connected,
		Addr:      m.net.Addr,
		Cycles:    m.cycles,
		Cursor:    m.graph.Cursor(),
		Wraps:     m.graph.Wraps(),
		Sample:    s,
		Invalid:   invalid,
		UpdatedAt: time.Now(),
	}
	m.mu.Unlock()
}

func (m *Monitor) publish(s sensor.Sample) {
	msg, err := m.publisher.Publish(s, m.deviceID)
	if err != nil {
		m.log.Errorf("func Cycle: %s", errors.Recoverable("publish", err))
		m.metric.ErrorCounter("publish")
		return
	}
	if m.pubChan == nil {
		return
	}
	select {
	case m.pubChan <- msg.Payload:
	default:
		m.log.Debugf("func Cycle: stream is busy, payload [%s] skipped", msg.ID)
	}
}

// Status returns the snapshot of the last cycle. It is safe for concurrent use.
func (m *Monitor) Status() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}
