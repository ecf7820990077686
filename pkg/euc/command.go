package euc

import (
	"fmt"
	"math"
	"slices"

	"github.com/librescoot/euc-service/pkg/voltage"
)

// Command is one operator action that a codec turns into a frame.
type Command interface {
	Name() string
}

type (
	// PedalsMode sets the pedal hardness (0 hard, 1 medium, 2 soft).
	PedalsMode struct{ Mode int }
	// Lights switches the headlight (0 off, 1 on).
	Lights struct{ State int }
	// SpeedAlert configures a speed alarm. Level semantics depend on the
	// vendor; Speed is in km/h, 0 meaning "level only".
	SpeedAlert struct {
		Level int
		Speed float64
	}
	// TiltbackAlert sets the tilt-back speed in km/h.
	TiltbackAlert struct{ Speed float64 }
	// PedalAngle sets the pedal calibration angle in degrees.
	PedalAngle struct{ Degrees float64 }
	// RideMode selects eco (0), normal (1) or sport (2).
	RideMode        struct{ Mode int }
	Horn            struct{}
	Calibrate       struct{}
	RequestSerial   struct{}
	RequestStatus   struct{}
	RequestLiveData struct{}
)

func (PedalsMode) Name() string      { return "pedals-mode" }
func (Lights) Name() string          { return "lights" }
func (SpeedAlert) Name() string      { return "speed-alert" }
func (TiltbackAlert) Name() string   { return "tiltback-alert" }
func (PedalAngle) Name() string      { return "pedal-angle" }
func (RideMode) Name() string        { return "ride-mode" }
func (Horn) Name() string            { return "horn" }
func (Calibrate) Name() string       { return "calibrate" }
func (RequestSerial) Name() string   { return "request-serial" }
func (RequestStatus) Name() string   { return "request-status" }
func (RequestLiveData) Name() string { return "request-live-data" }

type alertStyle int

const (
	// alertRange takes a speed in [0, MaxSpeed] and no level.
	alertRange alertStyle = iota
	// alertLevels takes a bare level, or a level with a speed from the
	// vendor's allowed set.
	alertLevels
	// alertLeveledRange takes a level and a speed in [0, MaxSpeed].
	alertLeveledRange
)

// commandSet describes how a vendor lays out and validates command frames.
type commandSet struct {
	header  [2]byte
	codePos int
	dataPos int
	// fixed holds bytes every frame carries at a given position.
	fixed    map[int]byte
	checksum bool

	codes      map[string]byte
	pedalModes []int
	alert      alertStyle
	// speeds is the allowed alert/tiltback speed set; nil means a range.
	speeds []float64
	// angleStep is the required pedal angle granularity; 0 accepts any.
	angleStep float64
}

// limits are the model-dependent bounds applied during validation.
type limits struct {
	maxSpeed float64
	angle    voltage.AngleRange
}

func (s commandSet) encode(v Vendor, cmd Command, lim limits) ([]byte, error) {
	name := cmd.Name()
	code, ok := s.codes[name]
	if !ok {
		return nil, &CommandError{Vendor: v, Command: name, Err: ErrUnsupportedCommand}
	}
	bad := func(format string, args ...any) error {
		return &CommandError{Vendor: v, Command: name, Err: ErrInvalidParameter, Detail: fmt.Sprintf(format, args...)}
	}

	var payload []byte
	switch c := cmd.(type) {
	case PedalsMode:
		if !slices.Contains(s.pedalModes, c.Mode) {
			return nil, bad("mode %d not in %v", c.Mode, s.pedalModes)
		}
		payload = []byte{byte(c.Mode)}

	case Lights:
		if c.State != 0 && c.State != 1 {
			return nil, bad("state %d not in [0 1]", c.State)
		}
		payload = []byte{byte(c.State)}

	case SpeedAlert:
		switch s.alert {
		case alertRange:
			if c.Level != 0 {
				return nil, bad("level is not used by this vendor")
			}
			if err := checkRange(c.Speed, lim.maxSpeed); err != "" {
				return nil, bad("%s", err)
			}
			payload = speedBytes(c.Speed)
		case alertLevels:
			if c.Speed == 0 {
				if c.Level < 0 || c.Level > 2 {
					return nil, bad("level %d not in [0 1 2]", c.Level)
				}
				payload = []byte{byte(c.Level)}
				break
			}
			if c.Level < 1 || c.Level > 3 {
				return nil, bad("level %d not in [1 2 3]", c.Level)
			}
			if !slices.Contains(s.speeds, c.Speed) {
				return nil, bad("speed %g not in %v", c.Speed, s.speeds)
			}
			payload = append([]byte{byte(c.Level)}, speedBytes(c.Speed)...)
		case alertLeveledRange:
			if c.Level < 1 || c.Level > 3 {
				return nil, bad("level %d not in [1 2 3]", c.Level)
			}
			if err := checkRange(c.Speed, lim.maxSpeed); err != "" {
				return nil, bad("%s", err)
			}
			payload = append([]byte{byte(c.Level)}, speedBytes(c.Speed)...)
		}

	case TiltbackAlert:
		if s.speeds != nil {
			if !slices.Contains(s.speeds, c.Speed) {
				return nil, bad("speed %g not in %v", c.Speed, s.speeds)
			}
		} else if err := checkRange(c.Speed, lim.maxSpeed); err != "" {
			return nil, bad("%s", err)
		}
		payload = speedBytes(c.Speed)

	case PedalAngle:
		if math.IsNaN(c.Degrees) || !lim.angle.Contains(c.Degrees) {
			return nil, bad("angle %g outside [%g, %g]", c.Degrees, lim.angle.Min, lim.angle.Max)
		}
		if s.angleStep > 0 && !onStep(c.Degrees, s.angleStep) {
			return nil, bad("angle %g is not a multiple of %g", c.Degrees, s.angleStep)
		}
		a := uint16(int16(math.Round(c.Degrees * 100)))
		payload = []byte{byte(a >> 8), byte(a)}

	case RideMode:
		if c.Mode < 0 || c.Mode > 2 {
			return nil, bad("mode %d not in [0 1 2]", c.Mode)
		}
		payload = []byte{byte(c.Mode)}

	case Horn, Calibrate, RequestSerial, RequestStatus, RequestLiveData:
		payload = []byte{0x01}

	default:
		return nil, &CommandError{Vendor: v, Command: name, Err: ErrUnsupportedCommand}
	}
	return s.frame(code, payload), nil
}

// frame lays out one zero-padded command frame.
func (s commandSet) frame(code byte, payload []byte) []byte {
	f := make([]byte, FrameLen)
	f[0], f[1] = s.header[0], s.header[1]
	f[s.codePos] = code
	copy(f[s.dataPos:], payload)
	for pos, b := range s.fixed {
		f[pos] = b
	}
	if s.checksum {
		f[FrameLen-1] = sum8(f[:FrameLen-1])
	}
	return f
}

func checkRange(speed, limit float64) string {
	switch {
	case limit <= 0:
		return "maximum speed unknown"
	case math.IsNaN(speed) || speed < 0 || speed > limit:
		return fmt.Sprintf("speed %g outside [0, %g]", speed, limit)
	}
	return ""
}

// speedBytes scales km/h by 100 into a big-endian uint16.
func speedBytes(speed float64) []byte {
	v := uint16(math.Round(speed * 100))
	return []byte{byte(v >> 8), byte(v)}
}

func onStep(v, step float64) bool {
	q := v / step
	return math.Abs(q-math.Round(q)) < 1e-6
}
