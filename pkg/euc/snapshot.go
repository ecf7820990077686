package euc

import "time"

// OutcomeKind tags the result of one decode attempt.
type OutcomeKind int

const (
	Incomplete OutcomeKind = iota
	LiveData
	SerialNumber
	FirmwareVersion
)

func (k OutcomeKind) String() string {
	switch k {
	case LiveData:
		return "live"
	case SerialNumber:
		return "serial-number"
	case FirmwareVersion:
		return "firmware-version"
	}
	return "incomplete"
}

// Telemetry is one decoded live frame.
type Telemetry struct {
	Speed       float64 // km/h, negative when rolling backwards
	Battery     int     // percent
	Distance    float64 // km
	Temperature float64 // °C
	Current     float64 // A
	Voltage     float64 // V
}

// Outcome is what Decode produced. Only the field matching Kind is set.
type Outcome struct {
	Kind     OutcomeKind
	Live     Telemetry
	Serial   string
	Firmware string
}

// Snapshot is the accumulated state of the wheel on the active connection.
// Optional fields stay nil until a frame carrying them has been decoded.
type Snapshot struct {
	Speed           float64
	Battery         int
	Distance        float64
	Temperature     *float64
	Current         *float64
	Voltage         *float64
	SerialNumber    string
	FirmwareVersion string
	UpdatedAt       time.Time
}

func (s *Snapshot) apply(o Outcome, now time.Time) {
	switch o.Kind {
	case LiveData:
		t, c, v := o.Live.Temperature, o.Live.Current, o.Live.Voltage
		s.Speed = o.Live.Speed
		s.Battery = o.Live.Battery
		s.Distance = o.Live.Distance
		s.Temperature = &t
		s.Current = &c
		s.Voltage = &v
	case SerialNumber:
		s.SerialNumber = o.Serial
	case FirmwareVersion:
		s.FirmwareVersion = o.Firmware
	default:
		return
	}
	s.UpdatedAt = now
}
