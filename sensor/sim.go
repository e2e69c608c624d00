package sensor

import (
	"math/rand"
	"sync"
)

// SimPoint is the set point a simulated channel wanders around.
type SimPoint struct {
	Temp     float64
	Humidity float64
}

// Simulated is a bench sampler producing a bounded random walk per channel. DropRate is the
// probability of an invalid reading.
type Simulated struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	points   map[Channel]SimPoint
	cur      map[Channel]SimPoint
	DropRate float64
}

// NewSimulated creates a simulated sampler with the given set points.
func NewSimulated(seed int64, fridge, freezer SimPoint) *Simulated {
	return &Simulated{
		rnd:    rand.New(rand.NewSource(seed)),
		points: map[Channel]SimPoint{Fridge: fridge, Freezer: freezer},
		cur:    map[Channel]SimPoint{Fridge: fridge, Freezer: freezer},
	}
}

// Temperature .
func (s *Simulated) Temperature(c Channel) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drop() {
		return Invalid()
	}
	p := s.cur[c]
	p.Temp = s.walk(p.Temp, s.points[c].Temp, 2)
	s.cur[c] = p
	return Valid(p.Temp)
}

// Humidity .
func (s *Simulated) Humidity(c Channel) Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drop() {
		return Invalid()
	}
	p := s.cur[c]
	p.Humidity = s.walk(p.Humidity, s.points[c].Humidity, 5)
	if p.Humidity < 0 {
		p.Humidity = 0
	}
	if p.Humidity > 100 {
		p.Humidity = 100
	}
	s.cur[c] = p
	return Valid(p.Humidity)
}

func (s *Simulated) drop() bool {
	return s.DropRate > 0 && s.rnd.Float64() < s.DropRate
}

// walk moves v by up to ±0.5 and keeps it within span of the set point.
func (s *Simulated) walk(v, set, span float64) float64 {
	v += s.rnd.Float64() - 0.5
	if v > set+span {
		v = set + span
	}
	if v < set-span {
		v = set - span
	}
	return v
}
