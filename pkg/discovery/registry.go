// Package discovery turns advertisement observations into a ranked,
// deduplicated list of candidate wheels.
package discovery

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/euc"
)

// Device is one wheel seen during the current scan window.
type Device struct {
	Address      string
	Name         string
	ServiceUUIDs []string
	RSSI         int
	Vendor       euc.Vendor
	Candidates   []euc.Vendor
	LastSeen     time.Time
}

// Registry holds the devices of one scan window, keyed by address. It is
// safe for concurrent use; radios deliver observations from their own
// goroutines.
type Registry struct {
	mu      sync.Mutex
	devices map[string]Device
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]Device), now: time.Now}
}

// Reset starts a new scan window.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.devices)
}

// Observe records one advertisement. It reports the stored device and
// whether the observation was accepted as new or superseding. Observations
// with an unparseable address, or with neither a name nor the Begode service
// UUID, are dropped.
func (r *Registry) Observe(address string, rssi int, raw []byte) (Device, bool) {
	addr, err := ble.NormalizeAddress(address)
	if err != nil {
		return Device{}, false
	}
	adv := ble.ParseAdvertisement(raw)
	if adv.Name == "" && !adv.HasService(ble.GotwayServiceUUID) {
		return Device{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if old, ok := r.devices[addr]; ok && !supersedes(old, adv.Name != "", rssi) {
		old.LastSeen = now
		r.devices[addr] = old
		return old, false
	}

	class := Classify(adv)
	d := Device{
		Address:      addr,
		Name:         adv.Name,
		ServiceUUIDs: adv.ServiceUUIDs,
		RSSI:         rssi,
		Vendor:       class.Vendor,
		Candidates:   class.Candidates,
		LastSeen:     now,
	}
	r.devices[addr] = d
	return d, true
}

// supersedes reports whether a new observation replaces old: a name where
// there was none, or a stronger signal with the same name presence.
func supersedes(old Device, named bool, rssi int) bool {
	hadName := old.Name != ""
	if named && !hadName {
		return true
	}
	return named == hadName && rssi > old.RSSI
}

// Lookup returns the device stored for address.
func (r *Registry) Lookup(address string) (Device, bool) {
	addr, err := ble.NormalizeAddress(address)
	if err != nil {
		return Device{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[addr]
	return d, ok
}

// Len returns the number of devices in the window.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Devices returns the ranked device list: decided vendors first, then
// PossibleGotway, each group by descending RSSI, ties by address.
func (r *Registry) Devices() []Device {
	r.mu.Lock()
	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	r.mu.Unlock()

	slices.SortFunc(out, func(a, b Device) int {
		if ra, rb := rank(a.Vendor), rank(b.Vendor); ra != rb {
			return ra - rb
		}
		if a.RSSI != b.RSSI {
			return b.RSSI - a.RSSI
		}
		return strings.Compare(a.Address, b.Address)
	})
	return out
}

func rank(v euc.Vendor) int {
	switch {
	case v.Decided():
		return 0
	case v == euc.PossibleGotway:
		return 1
	}
	return 2
}
