package main

import (
	"context"
	log_ "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kostiamol/fridgemon/api"
	"github.com/kostiamol/fridgemon/cfg"
	"github.com/kostiamol/fridgemon/command"
	"github.com/kostiamol/fridgemon/display"
	"github.com/kostiamol/fridgemon/errors"
	"github.com/kostiamol/fridgemon/graph"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/network"
	"github.com/kostiamol/fridgemon/sensor"
	"github.com/kostiamol/fridgemon/svc"
	"github.com/kostiamol/fridgemon/telemetry"
	"github.com/kostiamol/fridgemon/transport"
)

func init() {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log_.Fatalf("func Load: %s", err)
	}
}

func main() {
	conf, err := cfg.NewConfig()
	if err != nil {
		log_.Fatalf("func NewConfig: %s", err)
	}

	l := log.New(conf.Service.AppID, conf.Service.LogLevel)
	m := metric.New(conf.Service.AppID)
	ctrl := svc.NewCtrl()

	sampler, closeSampler, err := newSampler(conf.Sensor)
	if err != nil {
		l.With("func", "main").Fatalf("func newSampler: %s", err)
	}
	defer closeSampler()

	canvas, err := newCanvas(conf.Display)
	if err != nil {
		l.With("func", "main").Fatalf("func newCanvas: %s", err)
	}
	defer func() { _ = canvas.Close() }()

	tr := newTransport(conf, l, m)
	defer func() { _ = tr.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		ctrl.Wait(conf.Service.TerminationTimeout)
		close(done)
	}()
	go func() {
		<-ctrl.StopChan
		cancel()
	}()

	controller := command.NewController(&command.ControllerCfg{Log: l, Metric: m})
	publisher := telemetry.NewPublisher(&telemetry.PublisherCfg{Log: l, Metric: m, Sender: tr})
	trend := graph.New(canvas, conf.Graph)

	st, err := svc.Boot(ctx, &svc.BootCfg{
		Log:       l,
		Metric:    m,
		Display:   canvas,
		Prober:    network.InterfaceProber{Name: conf.Network.Interface},
		Policy:    network.Policy{Interval: conf.Network.RetryInterval, MaxAttempts: conf.Network.MaxAttempts},
		Transport: tr,
		Handlers: svc.Handlers{
			Confirmation: publisher.OnConfirmation,
			Message:      controller.OnMessage,
			Twin:         controller.OnTwin,
			Method:       controller.HandleMethod,
		},
		Graph: trend,
	})
	if err != nil {
		if ctx.Err() != nil {
			l.With("event", log.EventMSShutdown).Infof("%s stopped during boot", conf.Service.AppID)
			return
		}
		if errors.IsFatal(err) {
			l.With("func", "main").Errorf("func Boot: %s", err)
			_ = l.Flush()
			os.Exit(1)
		}
		l.With("func", "main").Warnf("func Boot: %s", err)
	}

	pubChan := make(chan []byte, 1)
	mon := svc.NewMonitor(&svc.MonitorCfg{
		Log:       l,
		Ctrl:      ctrl,
		Metric:    m,
		DeviceID:  conf.Service.DeviceID,
		Interval:  conf.Service.CycleInterval,
		Network:   st,
		Reader:    sensor.NewReader(sampler),
		Graph:     trend,
		Gate:      controller,
		Publisher: publisher,
		Transport: tr,
		PubChan:   pubChan,
	})

	if conf.Service.PortREST != 0 {
		go api.New(&api.Cfg{
			Log:             l,
			Ctrl:            ctrl,
			Metric:          m,
			PortREST:        conf.Service.PortREST,
			Status:          mon,
			SubChan:         pubChan,
			ShutdownTimeout: conf.Service.TerminationTimeout,
		}).Run()
	}

	go mon.Run(ctx)

	<-done

	l.With("event", log.EventMSShutdown).Infof("%s is down", conf.Service.AppID)
	_ = l.Flush()
}

func newSampler(c cfg.Sensor) (sensor.Sampler, func(), error) {
	if c.Driver == cfg.SensorDriverSim {
		s := sensor.NewSimulated(time.Now().UnixNano(),
			sensor.SimPoint{Temp: 3.5, Humidity: 40},
			sensor.SimPoint{Temp: -18, Humidity: 55},
		)
		return s, func() {}, nil
	}
	s, err := sensor.OpenBME280(c.I2CBus, uint16(c.FridgeAddr), uint16(c.FreezerAddr))
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

func newCanvas(c cfg.Display) (*display.Canvas, error) {
	if c.Driver == cfg.DisplayDriverNone {
		return display.NewCanvas(c.Width, c.Height, display.NopPanel{}), nil
	}
	p, err := display.OpenSSD1306(c.I2CBus, c.Width, c.Height)
	if err != nil {
		return nil, err
	}
	return display.NewCanvas(c.Width, c.Height, p), nil
}

func newTransport(c *cfg.Config, l log.Logger, m *metric.Metric) transport.Transport {
	switch c.Transport.Kind {
	case cfg.TransportNATS:
		return transport.NewNATS(&transport.NATSCfg{Log: l, Metric: m, DeviceID: c.Service.DeviceID, Cfg: c.Transport})
	case cfg.TransportRedis:
		return transport.NewRedis(&transport.RedisCfg{Log: l, Metric: m, DeviceID: c.Service.DeviceID, Cfg: c.Transport})
	default:
		return transport.NewMQTT(&transport.MQTTCfg{Log: l, Metric: m, DeviceID: c.Service.DeviceID, Cfg: c.Transport})
	}
}
