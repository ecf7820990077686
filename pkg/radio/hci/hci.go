// Package hci implements radio.Radio on the host Bluetooth controller using
// tinygo.org/x/bluetooth.
package hci

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/radio"
)

// maxPending caps queued notifications between Read calls; the oldest are
// dropped first.
const maxPending = 256

// ErrUnknownAddress is returned when connecting to an address that no scan
// has reported.
var ErrUnknownAddress = errors.New("hci: address not seen in a scan")

// Radio drives one adapter.
type Radio struct {
	adapter *bluetooth.Adapter
	log     zerolog.Logger

	mu      sync.Mutex
	seen    map[string]bluetooth.Address
	device  *bluetooth.Device
	write   bluetooth.DeviceCharacteristic
	events  func(radio.Event)
	gen     uint64 // bumped on every Connect and Disconnect
	pending [][]byte
}

var _ radio.Radio = (*Radio)(nil)

// New enables the default adapter.
func New(log zerolog.Logger) (*Radio, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("failed to enable adapter: %w", err)
	}
	r := &Radio{
		adapter: adapter,
		log:     log.With().Str("component", "hci").Logger(),
		seen:    make(map[string]bluetooth.Address),
	}
	adapter.SetConnectHandler(r.onConnectChange)
	return r, nil
}

func (r *Radio) Scan(ctx context.Context, window time.Duration, observe func(radio.Observation)) error {
	done := make(chan error, 1)
	go func() {
		done <- r.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			addr, err := ble.NormalizeAddress(result.Address.String())
			if err != nil {
				return
			}
			r.mu.Lock()
			r.seen[addr] = result.Address
			r.mu.Unlock()

			observe(radio.Observation{
				Address: addr,
				RSSI:    int(result.RSSI),
				Data:    advertisingData(result),
			})
		})
	}()

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
	case <-ctx.Done():
	}
	if err := r.adapter.StopScan(); err != nil {
		return fmt.Errorf("failed to stop scan: %w", err)
	}
	if err := <-done; err != nil {
		return err
	}
	return ctx.Err()
}

// advertisingData returns the raw payload when the platform exposes it and
// otherwise rebuilds the fields the classifier reads.
func advertisingData(result bluetooth.ScanResult) []byte {
	if raw := result.Bytes(); len(raw) > 0 {
		return raw
	}
	var services []string
	for _, s := range ble.KnownServices {
		u, err := bluetooth.ParseUUID(s)
		if err == nil && result.HasServiceUUID(u) {
			services = append(services, s)
		}
	}
	return ble.BuildAdvertisement(result.LocalName(), services)
}

// Connect runs the connection and GATT setup on a goroutine and reports the
// result through events.
func (r *Radio) Connect(address string, profile ble.Profile, events func(radio.Event)) error {
	svc, err := bluetooth.ParseUUID(profile.Service)
	if err != nil {
		return fmt.Errorf("service uuid: %w", err)
	}
	notify, err := bluetooth.ParseUUID(profile.Notify.UUID)
	if err != nil {
		return fmt.Errorf("notify uuid: %w", err)
	}
	write, err := bluetooth.ParseUUID(profile.Write.UUID)
	if err != nil {
		return fmt.Errorf("write uuid: %w", err)
	}

	r.mu.Lock()
	addr, ok := r.seen[address]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAddress, address)
	}
	r.gen++
	gen := r.gen
	r.events = events
	r.pending = nil
	r.mu.Unlock()

	go r.connect(gen, addr, svc, notify, write)
	return nil
}

func (r *Radio) connect(gen uint64, addr bluetooth.Address, svc, notify, write bluetooth.UUID) {
	fail := func(err error) {
		r.log.Warn().Err(err).Str("address", addr.String()).Msg("connect failed")
		r.emit(gen, radio.Event{State: radio.Disconnected, Reason: err.Error()})
	}

	device, err := r.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		fail(err)
		return
	}
	services, err := device.DiscoverServices([]bluetooth.UUID{svc})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		fail(fmt.Errorf("service discovery: %v", err))
		return
	}

	uuids := []bluetooth.UUID{notify}
	if write != notify {
		uuids = append(uuids, write)
	}
	chars, err := services[0].DiscoverCharacteristics(uuids)
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		fail(fmt.Errorf("characteristic discovery: %v", err))
		return
	}

	var notifyChar, writeChar *bluetooth.DeviceCharacteristic
	for i := range chars {
		if chars[i].UUID() == notify && notifyChar == nil {
			notifyChar = &chars[i]
		}
		if chars[i].UUID() == write {
			writeChar = &chars[i]
		}
	}
	if notifyChar == nil || writeChar == nil {
		device.Disconnect()
		fail(errors.New("characteristics not found"))
		return
	}

	if err := notifyChar.EnableNotifications(func(p []byte) { r.onNotify(gen, p) }); err != nil {
		device.Disconnect()
		fail(fmt.Errorf("enable notifications: %w", err))
		return
	}

	r.mu.Lock()
	if r.gen != gen {
		// disconnected or superseded while connecting
		r.mu.Unlock()
		device.Disconnect()
		return
	}
	r.device = &device
	r.write = *writeChar
	r.mu.Unlock()

	r.log.Info().Str("address", addr.String()).Msg("connected")
	r.emit(gen, radio.Event{State: radio.Connected})
}

func (r *Radio) emit(gen uint64, ev radio.Event) {
	r.mu.Lock()
	events := r.events
	current := r.gen == gen
	r.mu.Unlock()
	if current && events != nil {
		events(ev)
	}
}

func (r *Radio) onNotify(gen uint64, p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.pending = append(r.pending, slices.Clone(p))
	if over := len(r.pending) - maxPending; over > 0 {
		r.pending = r.pending[over:]
	}
}

func (r *Radio) onConnectChange(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	r.mu.Lock()
	if r.device == nil || r.device.Address != device.Address {
		r.mu.Unlock()
		return
	}
	gen := r.gen
	r.device = nil
	r.pending = nil
	r.mu.Unlock()

	r.emit(gen, radio.Event{State: radio.Disconnected, Reason: "link lost"})
}

func (r *Radio) Write(p []byte) error {
	r.mu.Lock()
	if r.device == nil {
		r.mu.Unlock()
		return radio.ErrNotConnected
	}
	char := r.write
	r.mu.Unlock()

	_, err := char.WriteWithoutResponse(p)
	return err
}

func (r *Radio) Read() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		if r.device == nil {
			return nil, radio.ErrNotConnected
		}
		return nil, nil
	}
	out := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return out, nil
}

func (r *Radio) Disconnect() error {
	r.mu.Lock()
	r.gen++
	device := r.device
	r.device = nil
	r.events = nil
	r.pending = nil
	r.mu.Unlock()

	if device == nil {
		return nil
	}
	return device.Disconnect()
}
