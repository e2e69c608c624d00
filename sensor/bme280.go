package sensor

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// Env is a periph environmental sensor.
type Env interface {
	Sense(e *physic.Env) error
	Halt() error
}

// EnvSampler samples one environmental sensor per channel. Temperature and humidity of a channel are
// taken from a single bus transaction, cached for cacheFor so that both requests of a cycle agree.
type EnvSampler struct {
	mu       sync.Mutex
	devs     map[Channel]Env
	last     map[Channel]envResult
	cacheFor time.Duration
	now      func() time.Time
	closer   func() error
}

type envResult struct {
	at  time.Time
	env physic.Env
	err error
}

// NewEnvSampler creates a sampler over the given per-channel sensors.
func NewEnvSampler(fridge, freezer Env, cacheFor time.Duration) *EnvSampler {
	return &EnvSampler{
		devs:     map[Channel]Env{Fridge: fridge, Freezer: freezer},
		last:     make(map[Channel]envResult, 2),
		cacheFor: cacheFor,
		now:      time.Now,
	}
}

// OpenBME280 initializes the periph host and opens two BME280 sensors on one i2c bus.
func OpenBME280(bus string, fridgeAddr, freezerAddr uint16) (*EnvSampler, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "func host.Init")
	}
	b, err := i2creg.Open(bus)
	if err != nil {
		return nil, errors.Wrapf(err, "func i2creg.Open: bus [%s]", bus)
	}
	fridge, err := openBME280(b, fridgeAddr)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	freezer, err := openBME280(b, freezerAddr)
	if err != nil {
		_ = fridge.Halt()
		_ = b.Close()
		return nil, err
	}

	s := NewEnvSampler(fridge, freezer, time.Second)
	s.closer = b.Close
	return s, nil
}

func openBME280(b i2c.Bus, addr uint16) (*bmxx80.Dev, error) {
	d, err := bmxx80.NewI2C(b, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "func bmxx80.NewI2C: addr [%#x]", addr)
	}
	return d, nil
}

// Temperature returns the channel temperature in °C.
func (s *EnvSampler) Temperature(c Channel) Reading {
	e, err := s.sense(c)
	if err != nil {
		return Invalid()
	}
	return Valid(e.Temperature.Celsius())
}

// Humidity returns the channel relative humidity in %.
func (s *EnvSampler) Humidity(c Channel) Reading {
	e, err := s.sense(c)
	if err != nil {
		return Invalid()
	}
	return Valid(float64(e.Humidity) / float64(physic.PercentRH))
}

func (s *EnvSampler) sense(c Channel) (physic.Env, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if r, ok := s.last[c]; ok && now.Sub(r.at) < s.cacheFor {
		return r.env, r.err
	}

	d, ok := s.devs[c]
	if !ok || d == nil {
		return physic.Env{}, errors.Errorf("no sensor on channel %s", c)
	}
	var e physic.Env
	err := d.Sense(&e)
	s.last[c] = envResult{at: now, env: e, err: err}
	return e, err
}

// Close halts both sensors and releases the bus.
func (s *EnvSampler) Close() error {
	var first error
	for _, d := range s.devs {
		if d == nil {
			continue
		}
		if err := d.Halt(); err != nil && first == nil {
			first = err
		}
	}
	if s.closer != nil {
		if err := s.closer(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
