package euc

import (
	"slices"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/voltage"
)

var kingsongSpeeds = []float64{20, 25, 30, 35, 40, 45, 50}

// KingsongSpeeds returns the alert and tilt-back speeds the firmware accepts.
func KingsongSpeeds() []float64 {
	return slices.Clone(kingsongSpeeds)
}

// Kingsong frames carry no type byte; every frame is live data.
var kingsongProtocol = protocol{
	vendor:  Kingsong,
	header:  [2]byte{0xAA, 0x55},
	profile: ble.KingsongProfile,
	decode:  decodeKingsong,
	commands: commandSet{
		header:  [2]byte{0xAA, 0x55},
		codePos: 8,
		dataPos: 9,
		fixed:   map[int]byte{16: 0xE0},
		codes: map[string]byte{
			"pedals-mode":    0x87,
			"lights":         0x73,
			"speed-alert":    0x85,
			"tiltback-alert": 0x86,
			"horn":           0x88,
			"calibrate":      0x89,
			"pedal-angle":    0x8A,
			"ride-mode":      0x8B,
			"request-serial": 0x63,
			"request-status": 0x9B,
		},
		pedalModes: []int{0, 1, 2},
		alert:      alertLevels,
		speeds:     kingsongSpeeds,
	},
	table:   voltage.Kingsong,
	battery: nearest(voltage.Kingsong),
}

func decodeKingsong(r *fieldReader) (Outcome, error) {
	return Outcome{Kind: LiveData, Live: Telemetry{
		Speed:       r.signed(2, 10),
		Voltage:     r.scaled(4, 100),
		Distance:    r.distance(6),
		Current:     r.signed(10, 100),
		Temperature: r.scaled(12, 100),
	}}, nil
}
