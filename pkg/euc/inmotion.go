package euc

import (
	"fmt"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/voltage"
)

// InMotion response types, carried at byte 16.
const (
	inMotionLive     = 0x00
	inMotionSerial   = 0x01
	inMotionFirmware = 0x02
)

var inMotionProtocol = protocol{
	vendor:  InMotion,
	header:  [2]byte{0xAA, 0x55},
	profile: ble.InMotionProfile,
	decode:  decodeInMotion,
	commands: commandSet{
		header:  [2]byte{0xAA, 0x55},
		codePos: 2,
		dataPos: 3,
		codes: map[string]byte{
			"pedals-mode":       0x01,
			"lights":            0x02,
			"speed-alert":       0x03,
			"tiltback-alert":    0x04,
			"pedal-angle":       0x05,
			"horn":              0x06,
			"request-serial":    0x07,
			"ride-mode":         0x08,
			"request-status":    0x09,
			"request-live-data": 0x0A,
			"calibrate":         0x0B,
		},
		pedalModes: []int{0, 1, 2},
		alert:      alertRange,
	},
	battery: byModel(voltage.InMotion, "V10F"),
}

func decodeInMotion(r *fieldReader) (Outcome, error) {
	switch t := r.u8(16); t {
	case inMotionLive:
		return Outcome{Kind: LiveData, Live: Telemetry{
			Speed:       r.signed(2, 100),
			Voltage:     r.scaled(4, 100),
			Current:     r.signed(6, 100),
			Temperature: r.scaled(8, 100),
			Distance:    r.distance(10),
		}}, nil
	case inMotionSerial:
		return Outcome{Kind: SerialNumber, Serial: r.text(2, 16)}, nil
	case inMotionFirmware:
		return Outcome{Kind: FirmwareVersion, Firmware: r.version(2)}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: 0x%02x", ErrUnknownResponseType, t)
	}
}
