package euc

import (
	"fmt"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/voltage"
)

// Ninebot response types, carried at byte 2.
const (
	ninebotLive     = 0xB0
	ninebotSerial   = 0x10
	ninebotFirmware = 0x1A
)

var ninebotProtocol = protocol{
	vendor:  Ninebot,
	header:  [2]byte{0x5A, 0xA5},
	profile: ble.NinebotProfile,
	decode:  decodeNinebot,
	commands: commandSet{
		header:   [2]byte{0x5A, 0xA5},
		codePos:  4,
		dataPos:  5,
		checksum: true,
		codes: map[string]byte{
			"pedals-mode":       0x00,
			"lights":            0x01,
			"speed-alert":       0x02,
			"tiltback-alert":    0x03,
			"pedal-angle":       0x04,
			"horn":              0x05,
			"request-serial":    0x06,
			"ride-mode":         0x07,
			"request-status":    0x08,
			"request-live-data": 0x09,
			"calibrate":         0x0A,
		},
		pedalModes: []int{0, 1},
		alert:      alertRange,
		angleStep:  0.1,
	},
	battery: byModel(voltage.Ninebot, "default"),
}

// decodeNinebot verifies the trailing additive checksum before looking at
// the type byte.
func decodeNinebot(r *fieldReader) (Outcome, error) {
	last := len(r.b) - 1
	if want, got := sum8(r.b[:last]), r.b[last]; want != got {
		return Outcome{}, fmt.Errorf("%w: computed 0x%02x, frame 0x%02x", ErrChecksumMismatch, want, got)
	}

	switch t := r.u8(2); t {
	case ninebotLive:
		return Outcome{Kind: LiveData, Live: Telemetry{
			Speed:       r.signed(6, 100),
			Voltage:     r.scaled(8, 100),
			Current:     r.signed(10, 100),
			Distance:    r.distance(12),
			Temperature: r.scaled(16, 10),
		}}, nil
	case ninebotSerial:
		return Outcome{Kind: SerialNumber, Serial: r.text(3, 19)}, nil
	case ninebotFirmware:
		return Outcome{Kind: FirmwareVersion, Firmware: r.version(3)}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: 0x%02x", ErrUnknownResponseType, t)
	}
}
