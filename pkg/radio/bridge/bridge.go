// Package bridge drives a BLE co-processor over the usock UART link. The
// co-processor owns the radio; the host exchanges CBOR maps with it.
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/radio"
	"github.com/librescoot/euc-service/pkg/usock"
)

// maxPending caps queued notifications between Read calls; the oldest are
// dropped first.
const maxPending = 256

// Link sends frames to the co-processor. *usock.USOCK implements it.
type Link interface {
	WriteFrame(id byte, payload []byte) error
}

// Bridge implements radio.Radio on top of a Link.
type Bridge struct {
	log zerolog.Logger

	mu        sync.Mutex
	link      Link
	observe   func(radio.Observation)
	scanDone  chan struct{}
	events    func(radio.Event)
	connected bool
	pending   [][]byte
}

var _ radio.Radio = (*Bridge)(nil)

// New returns a bridge without a link; call SetLink before use.
func New(log zerolog.Logger) *Bridge {
	return &Bridge{log: log.With().Str("component", "bridge").Logger()}
}

// SetLink sets the link frames are written to.
func (b *Bridge) SetLink(l Link) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.link = l
}

func (b *Bridge) send(id byte, m message) error {
	b.mu.Lock()
	link := b.link
	b.mu.Unlock()
	if link == nil {
		return fmt.Errorf("bridge: link is not initialized")
	}
	payload, err := encode(m)
	if err != nil {
		return err
	}
	return link.WriteFrame(id, payload)
}

// Scan asks the co-processor to scan for window and relays results until
// the window elapses, the co-processor reports completion, or ctx is done.
func (b *Bridge) Scan(ctx context.Context, window time.Duration, observe func(radio.Observation)) error {
	done := make(chan struct{})
	b.mu.Lock()
	b.observe = observe
	b.scanDone = done
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.observe = nil
		b.scanDone = nil
		b.mu.Unlock()
	}()

	if err := b.send(FrameScanStart, message{KeyWindowMS: window.Milliseconds()}); err != nil {
		return fmt.Errorf("scan start: %w", err)
	}

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	if err := b.send(FrameScanStop, nil); err != nil {
		return fmt.Errorf("scan stop: %w", err)
	}
	return ctx.Err()
}

// Connect asks the co-processor to connect and subscribe. The outcome
// arrives as a connection event.
func (b *Bridge) Connect(address string, profile ble.Profile, events func(radio.Event)) error {
	b.mu.Lock()
	b.events = events
	b.connected = false
	b.pending = nil
	b.mu.Unlock()

	return b.send(FrameConnect, message{
		KeyAddr:    address,
		KeyService: profile.Service,
		KeyChar:    profile.Notify.UUID,
		KeyWriteTo: profile.Write.UUID,
	})
}

func (b *Bridge) Write(p []byte) error {
	b.mu.Lock()
	connected := b.connected
	b.mu.Unlock()
	if !connected {
		return radio.ErrNotConnected
	}
	return b.send(FrameWrite, message{KeyData: p})
}

func (b *Bridge) Read() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		if !b.connected {
			return nil, radio.ErrNotConnected
		}
		return nil, nil
	}
	out := b.pending[0]
	b.pending[0] = nil
	b.pending = b.pending[1:]
	return out, nil
}

func (b *Bridge) Disconnect() error {
	b.mu.Lock()
	active := b.connected || b.events != nil
	b.connected = false
	b.events = nil
	b.pending = nil
	b.mu.Unlock()

	if !active {
		return nil
	}
	return b.send(FrameDisconnect, nil)
}

// HandleFrame processes one frame from the co-processor. It is the usock
// frame handler.
func (b *Bridge) HandleFrame(f usock.Frame) {
	m, err := decode(f.Payload)
	if err != nil {
		b.log.Warn().Err(err).Hex("id", []byte{f.ID}).Msg("dropping frame")
		return
	}

	switch f.ID {
	case FrameScanResult:
		b.handleScanResult(m)
	case FrameScanDone:
		b.mu.Lock()
		if b.scanDone != nil {
			close(b.scanDone)
			b.scanDone = nil
		}
		b.mu.Unlock()
	case FrameConnEvent:
		b.handleConnEvent(m)
	case FrameNotify:
		data, ok := m.bytes(KeyData)
		if !ok {
			b.log.Warn().Msg("notification without data")
			return
		}
		b.mu.Lock()
		if b.connected {
			b.pending = append(b.pending, data)
			if over := len(b.pending) - maxPending; over > 0 {
				b.pending = b.pending[over:]
			}
		}
		b.mu.Unlock()
	default:
		b.log.Debug().Hex("id", []byte{f.ID}).Msg("ignoring frame")
	}
}

func (b *Bridge) handleScanResult(m message) {
	addr, ok := m.string(KeyAddr)
	if !ok {
		b.log.Warn().Msg("scan result without address")
		return
	}
	rssi, _ := m.int(KeyRSSI)
	adv, _ := m.bytes(KeyAdv)

	b.mu.Lock()
	observe := b.observe
	b.mu.Unlock()
	if observe != nil {
		observe(radio.Observation{Address: addr, RSSI: rssi, Data: adv})
	}
}

func (b *Bridge) handleConnEvent(m message) {
	state, _ := m.string(KeyState)
	reason, _ := m.string(KeyReason)

	ev := radio.Event{State: radio.Disconnected, Reason: reason}
	if state == StateConnected {
		ev.State = radio.Connected
	}

	b.mu.Lock()
	events := b.events
	b.connected = ev.State == radio.Connected
	if !b.connected {
		b.pending = nil
	}
	b.mu.Unlock()

	b.log.Info().Str("state", state).Str("reason", reason).Msg("connection event")
	if events != nil {
		events(ev)
	}
}
