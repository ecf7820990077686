package euc

import (
	"fmt"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/voltage"
)

const (
	veteranLive     = 0x00
	veteranSerial   = 0x01
	veteranFirmware = 0x02
)

var veteranProtocol = protocol{
	vendor:  Veteran,
	header:  [2]byte{0x55, 0xAA},
	profile: ble.VeteranProfile,
	decode:  decodeVeteran,
	commands: commandSet{
		header:  [2]byte{0x55, 0xAA},
		codePos: 8,
		dataPos: 9,
		codes: map[string]byte{
			"pedals-mode":    0xF1,
			"lights":         0xE7,
			"speed-alert":    0xE8,
			"horn":           0xE9,
			"request-serial": 0xEA,
			"request-status": 0xEB,
			"tiltback-alert": 0xEC,
			"pedal-angle":    0xF2,
			"ride-mode":      0xF3,
			"calibrate":      0xF4,
		},
		pedalModes: []int{0, 1, 2},
		alert:      alertLeveledRange,
	},
	table:   voltage.Veteran,
	battery: latchedRange(voltage.Veteran),
}

// latchedRange matches the pack by nearest voltage or by range and keeps the
// first match for the rest of the connection.
func latchedRange(table []voltage.Config) func(string) (voltage.Strategy, error) {
	return func(string) (voltage.Strategy, error) {
		return &voltage.Latched{Inner: voltage.Nearest{
			Table:      table,
			Tolerance:  voltage.Tolerance,
			MatchRange: true,
		}}, nil
	}
}

func decodeVeteran(r *fieldReader) (Outcome, error) {
	switch t := r.u8(16); t {
	case veteranLive:
		return Outcome{Kind: LiveData, Live: Telemetry{
			Voltage:     r.scaled(2, 100),
			Speed:       r.signed(4, 100),
			Current:     r.signed(6, 100),
			Distance:    r.distance(10),
			Temperature: r.scaled(14, 100),
		}}, nil
	case veteranSerial:
		return Outcome{Kind: SerialNumber, Serial: r.text(2, 16)}, nil
	case veteranFirmware:
		return Outcome{Kind: FirmwareVersion, Firmware: r.version(2)}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: 0x%02x", ErrUnknownResponseType, t)
	}
}
