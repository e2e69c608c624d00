// Package sensor turns raw fridge and freezer sensor readings into samples.
//
// Every invalid reading is replaced by the sentinel 0.0, which cannot be told apart from a genuine
// zero in the sample values. Sample.Invalid keeps track of the substitutions for logging and metrics.
package sensor

import (
	"math"
)

// Sentinel stands in for a reading that was not valid this cycle.
const Sentinel = 0.0

// Channel identifies one of the two sensor channels.
type Channel int

const (
	Fridge Channel = iota
	Freezer
)

func (c Channel) String() string {
	switch c {
	case Fridge:
		return "fridge"
	case Freezer:
		return "freezer"
	default:
		return "unknown"
	}
}

// Reading is a single sensor value that may be invalid.
type Reading struct {
	Value float64
	Valid bool
}

// Valid returns a valid reading of v.
func Valid(v float64) Reading {
	return Reading{Value: v, Valid: true}
}

// Invalid returns an invalid reading.
func Invalid() Reading {
	return Reading{}
}

// Sampler is the sensor collaborator.
type Sampler interface {
	Temperature(Channel) Reading
	Humidity(Channel) Reading
}

// Field is a bit in Sample.Invalid.
type Field uint8

const (
	FridgeTemp Field = 1 << iota
	FridgeHumidity
	FreezerTemp
	FreezerHumidity
)

// Fields lists every sample field in payload order.
var Fields = []Field{FridgeTemp, FridgeHumidity, FreezerTemp, FreezerHumidity}

func (f Field) String() string {
	switch f {
	case FridgeTemp:
		return "FridgeTemp"
	case FridgeHumidity:
		return "FridgeHumidity"
	case FreezerTemp:
		return "FreezerTemp"
	case FreezerHumidity:
		return "FreezerHumidity"
	default:
		return "unknown"
	}
}

// Sample holds one cycle of readings.
type Sample struct {
	FridgeTemp      float64
	FridgeHumidity  float64
	FreezerTemp     float64
	FreezerHumidity float64
	// Invalid has a bit set for every field replaced by the sentinel.
	Invalid Field
}

// IsInvalid reports whether f was replaced by the sentinel.
func (s Sample) IsInvalid(f Field) bool {
	return s.Invalid&f != 0
}

// Reader is the sample reader over a Sampler.
type Reader struct {
	sampler Sampler
}

// NewReader creates a Reader.
func NewReader(s Sampler) *Reader {
	return &Reader{sampler: s}
}

// Read requests the four readings independently. Invalid readings are never retried within a call.
func (r *Reader) Read() Sample {
	var s Sample
	s.FridgeTemp = s.take(FridgeTemp, r.sampler.Temperature(Fridge))
	s.FridgeHumidity = s.take(FridgeHumidity, r.sampler.Humidity(Fridge))
	s.FreezerTemp = s.take(FreezerTemp, r.sampler.Temperature(Freezer))
	s.FreezerHumidity = s.take(FreezerHumidity, r.sampler.Humidity(Freezer))
	return s
}

func (s *Sample) take(f Field, r Reading) float64 {
	if !r.Valid || math.IsNaN(r.Value) {
		s.Invalid |= f
		return Sentinel
	}
	return r.Value
}
