// Package radio defines the BLE primitives the session drives. Backends live
// in subpackages.
package radio

import (
	"context"
	"errors"
	"time"

	"github.com/librescoot/euc-service/pkg/ble"
)

// Observation is one advertisement seen during a scan.
type Observation struct {
	Address string
	RSSI    int
	// Data is the raw advertising payload (AD structures).
	Data []byte
}

// State is a connection state reported through Event.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Event reports a connection state change. Reason is set when the link was
// lost or refused.
type Event struct {
	State  State
	Reason string
}

// ErrNotConnected is returned by backends asked to move data without a link.
var ErrNotConnected = errors.New("radio: not connected")

// Radio is the set of primitives a session needs. Callbacks run on the
// backend's goroutines and must not block.
type Radio interface {
	// Scan reports observations until window elapses or ctx is done.
	Scan(ctx context.Context, window time.Duration, observe func(Observation)) error
	// Connect starts connecting to address and subscribes to the profile's
	// notify characteristic. It may return before the link is up; events
	// reports the outcome.
	Connect(address string, profile ble.Profile, events func(Event)) error
	// Write sends p to the profile's write characteristic.
	Write(p []byte) error
	// Read returns the oldest pending notification, one per call, or
	// nil, nil when none are pending.
	Read() ([]byte, error)
	// Disconnect tears the link down. Calling it without a link is a no-op.
	Disconnect() error
}
