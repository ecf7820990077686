package voltage

import (
	"math"
	"sort"
)

// Tolerance is the window, in volts, used when matching a measured pack
// voltage against the known maximum voltages of a vendor table.
const Tolerance = 10.0

// DefaultAngle is the pedal angle range applied when a config carries none.
var DefaultAngle = AngleRange{Min: -5.0, Max: 5.0}

// AngleRange is an inclusive pedal angle range in degrees.
type AngleRange struct {
	Min float64
	Max float64
}

// Contains reports whether deg lies inside the range.
func (r AngleRange) Contains(deg float64) bool {
	return deg >= r.Min && deg <= r.Max
}

// Config describes a battery pack and the limits that go with it.
type Config struct {
	Name       string
	MaxVoltage float64
	MinVoltage float64
	Cells      int
	MaxSpeed   float64 // km/h, 0 when unknown
	PedalAngle *AngleRange
}

// Valid reports whether the voltage range is usable.
func (c Config) Valid() bool {
	return c.MaxVoltage > c.MinVoltage
}

// Angle returns the configured pedal angle range or DefaultAngle.
func (c Config) Angle() AngleRange {
	if c.PedalAngle != nil {
		return *c.PedalAngle
	}
	return DefaultAngle
}

// Percent maps a pack voltage onto 0..100.
func (c Config) Percent(v float64) int {
	if !c.Valid() {
		return 0
	}
	pct := math.Round((v - c.MinVoltage) / (c.MaxVoltage - c.MinVoltage) * 100)
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// Strategy selects the config that applies to a measured voltage.
type Strategy interface {
	Resolve(v float64) (Config, bool)
}

// Fixed always resolves to the same config. Used for vendors where the
// caller names the model at connect time.
type Fixed struct {
	Config Config
}

func (f Fixed) Resolve(float64) (Config, bool) {
	return f.Config, f.Config.Valid()
}

// Nearest picks the table entry whose MaxVoltage is closest to the measured
// voltage, provided the distance is below Tolerance. With MatchRange set, a
// voltage inside an entry's [MinVoltage, MaxVoltage] also resolves when no
// entry is within tolerance.
type Nearest struct {
	Table      []Config
	Tolerance  float64
	MatchRange bool
}

func (n Nearest) Resolve(v float64) (Config, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i, c := range n.Table {
		d := math.Abs(v - c.MaxVoltage)
		if d < n.Tolerance && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return n.Table[best], true
	}
	if n.MatchRange {
		for _, c := range n.Table {
			if v >= c.MinVoltage && v <= c.MaxVoltage {
				return c, true
			}
		}
	}
	return Config{}, false
}

// Latched remembers the first config its inner strategy resolves and
// returns it from then on. Not safe for concurrent use.
type Latched struct {
	Inner  Strategy
	config *Config
}

func (l *Latched) Resolve(v float64) (Config, bool) {
	if l.config != nil {
		return *l.config, true
	}
	c, ok := l.Inner.Resolve(v)
	if !ok {
		return Config{}, false
	}
	l.config = &c
	return c, true
}

// Reset forgets the latched config.
func (l *Latched) Reset() {
	l.config = nil
}

// Percent resolves v through s and maps it onto 0..100. An unresolved
// voltage yields 0.
func Percent(s Strategy, v float64) int {
	c, ok := s.Resolve(v)
	if !ok {
		return 0
	}
	return c.Percent(v)
}

// SlowestMaxSpeed returns the smallest non-zero MaxSpeed of a table.
func SlowestMaxSpeed(table []Config) float64 {
	speeds := make([]float64, 0, len(table))
	for _, c := range table {
		if c.MaxSpeed > 0 {
			speeds = append(speeds, c.MaxSpeed)
		}
	}
	if len(speeds) == 0 {
		return 0
	}
	sort.Float64s(speeds)
	return speeds[0]
}
