package euc

import (
	"fmt"
	"slices"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/voltage"
)

var gotwaySpeeds = []float64{20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70}

// GotwaySpeeds returns the alert and tilt-back speeds the firmware accepts.
func GotwaySpeeds() []float64 {
	return slices.Clone(gotwaySpeeds)
}

const (
	gotwayLive     = 0x00
	gotwaySerial   = 0x01
	gotwayFirmware = 0x02
)

var gotwayProtocol = protocol{
	vendor:  Gotway,
	header:  [2]byte{0x55, 0xAA},
	profile: ble.GotwayProfile,
	decode:  decodeGotway,
	commands: commandSet{
		header:  [2]byte{0x55, 0xAA},
		codePos: 8,
		dataPos: 9,
		codes: map[string]byte{
			"pedals-mode":    0x01,
			"lights":         0x02,
			"speed-alert":    0x03,
			"calibrate":      0x04,
			"pedal-angle":    0x05,
			"horn":           0x06,
			"request-serial": 0x07,
			"ride-mode":      0x08,
			"tiltback-alert": 0x09,
			"request-status": 0x0A,
		},
		pedalModes: []int{0, 1, 2},
		alert:      alertLevels,
		speeds:     gotwaySpeeds,
	},
	table:   voltage.Gotway,
	battery: nearest(voltage.Gotway),
}

func decodeGotway(r *fieldReader) (Outcome, error) {
	switch t := r.u8(16); t {
	case gotwayLive:
		return Outcome{Kind: LiveData, Live: Telemetry{
			Voltage:     r.scaled(2, 10),
			Speed:       r.signed(4, 10),
			Distance:    r.distance(6),
			Current:     r.signed(10, 10),
			Temperature: r.scaled(12, 10),
		}}, nil
	case gotwaySerial:
		return Outcome{Kind: SerialNumber, Serial: r.text(2, 16)}, nil
	case gotwayFirmware:
		return Outcome{Kind: FirmwareVersion, Firmware: r.version(2)}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: 0x%02x", ErrUnknownResponseType, t)
	}
}
