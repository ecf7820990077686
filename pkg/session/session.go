// Package session owns the single active wheel connection: it scans through
// the radio, picks the codec for the chosen vendor, feeds it notification
// bytes and writes its command frames.
//
// Callers must not scan while a connection is active; the radio is shared
// and the session does not arbitrate between the two.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/discovery"
	"github.com/librescoot/euc-service/pkg/euc"
	"github.com/librescoot/euc-service/pkg/radio"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultPollInterval   = 100 * time.Millisecond
)

// State is the connection state of a session.
type State int

const (
	Idle State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

// Status describes the session at a state change.
type Status struct {
	State   State
	ID      string // per connection, set once connected
	Address string
	Vendor  euc.Vendor
	Model   string
	// Reason explains an unrequested disconnect.
	Reason string
}

// Config tunes a session.
type Config struct {
	ConnectTimeout time.Duration
	PollInterval   time.Duration
	BufferLimit    int
	// OnStatus is called after every state change, outside the session lock.
	OnStatus func(Status)
}

// Session is safe for concurrent use.
type Session struct {
	radio    radio.Radio
	registry *discovery.Registry
	cfg      Config
	log      zerolog.Logger

	mu      sync.Mutex
	state   State
	status  Status
	codec   euc.Codec
	linkUp  bool
	linkErr string
}

// New returns an idle session on r.
func New(r radio.Radio, cfg Config, log zerolog.Logger) *Session {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Session{
		radio:    r,
		registry: discovery.NewRegistry(),
		cfg:      cfg,
		log:      log.With().Str("component", "session").Logger(),
	}
}

// Scan starts a new scan window and returns the ranked devices seen in it.
func (s *Session) Scan(ctx context.Context, window time.Duration) ([]discovery.Device, error) {
	s.registry.Reset()
	err := s.radio.Scan(ctx, window, func(o radio.Observation) {
		if d, ok := s.registry.Observe(o.Address, o.RSSI, o.Data); ok {
			s.log.Debug().
				Str("address", d.Address).
				Str("name", d.Name).
				Int("rssi", d.RSSI).
				Stringer("vendor", d.Vendor).
				Msg("device")
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, &ScanError{Err: err}
	}
	devices := s.registry.Devices()
	s.log.Info().Int("count", len(devices)).Msg("scan finished")
	return devices, nil
}

// Devices returns the ranked devices of the last scan window.
func (s *Session) Devices() []discovery.Device {
	return s.registry.Devices()
}

// Connect opens a connection to address using the codec for vendor. It
// waits for the link up to the configured timeout and does not retry.
func (s *Session) Connect(ctx context.Context, address string, vendor euc.Vendor, model string) error {
	addr, err := ble.NormalizeAddress(address)
	if err != nil {
		return &ConnectionError{Address: address, Reason: ErrBadAddress, Cause: err}
	}
	if vendor == euc.PossibleGotway {
		if vendor, err = s.resolvePossible(addr); err != nil {
			return &ConnectionError{Address: addr, Reason: ErrUnsupportedVendor, Cause: err}
		}
	}
	codec, err := euc.New(vendor, euc.Options{Model: model, BufferLimit: s.cfg.BufferLimit})
	if err != nil {
		return &ConnectionError{Address: addr, Reason: ErrUnsupportedVendor, Cause: err}
	}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return &ConnectionError{Address: addr, Reason: ErrAlreadyConnected}
	}
	s.state = Connecting
	s.codec = codec
	s.linkUp, s.linkErr = false, ""
	s.status = Status{State: Connecting, Address: addr, Vendor: codec.Vendor(), Model: model}
	status := s.status
	s.mu.Unlock()
	s.notify(status)

	s.log.Info().Str("address", addr).Stringer("vendor", codec.Vendor()).Msg("connecting")
	if err := s.radio.Connect(addr, codec.Profile(), s.onEvent); err != nil {
		s.abort("")
		return &ConnectionError{Address: addr, Reason: ErrConnectFailed, Cause: err}
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.cfg.ConnectTimeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		up, linkErr, state := s.linkUp, s.linkErr, s.state
		s.mu.Unlock()

		switch {
		case state != Connecting:
			return &ConnectionError{Address: addr, Reason: ErrConnectFailed, Cause: errors.New("disconnected while connecting")}
		case up:
			return s.established()
		case linkErr != "":
			s.abort(linkErr)
			return &ConnectionError{Address: addr, Reason: ErrConnectFailed, Cause: errors.New(linkErr)}
		}

		select {
		case <-ctx.Done():
			s.abort("")
			return &ConnectionError{Address: addr, Reason: ErrConnectFailed, Cause: ctx.Err()}
		case <-deadline.C:
			s.abort("")
			return &ConnectionError{Address: addr, Reason: ErrConnectTimeout}
		case <-ticker.C:
		}
	}
}

// resolvePossible accepts an undetermined device as Gotway only when the last
// scan saw it advertise the Begode service.
func (s *Session) resolvePossible(addr string) (euc.Vendor, error) {
	d, ok := s.registry.Lookup(addr)
	if !ok {
		return euc.Unknown, errors.New("vendor undetermined and device not seen in the last scan")
	}
	if !slices.Contains(d.ServiceUUIDs, ble.GotwayServiceUUID) {
		return euc.Unknown, errors.New("vendor undetermined and Begode service not advertised")
	}
	return euc.Gotway, nil
}

func (s *Session) established() error {
	s.mu.Lock()
	s.state = Connected
	s.status.State = Connected
	s.status.ID = ulid.Make().String()
	status := s.status
	s.mu.Unlock()

	s.log.Info().
		Str("address", status.Address).
		Stringer("vendor", status.Vendor).
		Str("session", status.ID).
		Msg("connected")
	s.notify(status)
	return nil
}

// abort drops a half-open connection.
func (s *Session) abort(reason string) {
	if err := s.radio.Disconnect(); err != nil {
		s.log.Warn().Err(err).Msg("disconnect after failed connect")
	}
	s.mu.Lock()
	status := s.teardown(reason)
	s.mu.Unlock()
	s.notify(status)
}

// teardown clears connection state. Callers hold s.mu.
func (s *Session) teardown(reason string) Status {
	if s.codec != nil {
		s.codec.Reset()
	}
	s.codec = nil
	s.state = Idle
	s.linkUp = false
	s.status = Status{State: Idle, Address: s.status.Address, Vendor: s.status.Vendor, Model: s.status.Model, Reason: reason}
	return s.status
}

func (s *Session) onEvent(ev radio.Event) {
	s.mu.Lock()
	switch s.state {
	case Connecting:
		if ev.State == radio.Connected {
			s.linkUp = true
		} else if s.linkErr = ev.Reason; s.linkErr == "" {
			s.linkErr = "connection refused"
		}
		s.mu.Unlock()
		return
	case Connected:
		if ev.State != radio.Disconnected {
			break
		}
		reason := ev.Reason
		if reason == "" {
			reason = "link lost"
		}
		status := s.teardown(reason)
		s.mu.Unlock()

		s.log.Warn().Str("address", status.Address).Str("reason", reason).Msg("connection lost")
		if err := s.radio.Disconnect(); err != nil {
			s.log.Debug().Err(err).Msg("radio disconnect after link loss")
		}
		s.notify(status)
		return
	}
	s.mu.Unlock()
}

func (s *Session) notify(st Status) {
	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(st)
	}
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the active codec's telemetry.
func (s *Session) Snapshot() (euc.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected {
		return euc.Snapshot{}, false
	}
	return s.codec.Snapshot(), true
}

// Read feeds the oldest pending notification to the codec and decodes at
// most one frame. Parse errors are returned as *euc.ParseError and leave the
// connection up.
func (s *Session) Read() (euc.Outcome, error) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return euc.Outcome{}, &CommunicationError{Op: "read", Err: ErrNotConnected}
	}
	data, err := s.radio.Read()
	if err != nil {
		status := s.teardown("read failed")
		s.mu.Unlock()
		s.forceDisconnect(status, err)
		return euc.Outcome{}, &CommunicationError{Op: "read", Err: err}
	}
	if len(data) > 0 {
		s.codec.Feed(data)
	}
	out, err := s.codec.Decode()
	s.mu.Unlock()

	if err != nil {
		s.log.Debug().Err(err).Msg("decode failed")
		return euc.Outcome{}, err
	}
	return out, nil
}

// Send validates and encodes cmd with the active codec and writes it.
// Validation failures are returned as *euc.CommandError and nothing is
// written.
func (s *Session) Send(cmd euc.Command) error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return &CommunicationError{Op: "write", Err: ErrNotConnected}
	}
	frame, err := s.codec.Encode(cmd)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.radio.Write(frame); err != nil {
		status := s.teardown("write failed")
		s.mu.Unlock()
		s.forceDisconnect(status, err)
		return &CommunicationError{Op: "write", Err: err}
	}
	s.mu.Unlock()

	s.log.Debug().Str("command", cmd.Name()).Hex("frame", frame).Msg("sent")
	return nil
}

func (s *Session) forceDisconnect(status Status, cause error) {
	s.log.Warn().Err(cause).Str("address", status.Address).Msg("radio failure, disconnecting")
	if err := s.radio.Disconnect(); err != nil {
		s.log.Debug().Err(err).Msg("radio disconnect")
	}
	s.notify(status)
}

// Disconnect closes the active connection. It is a no-op when idle.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return nil
	}
	status := s.teardown("")
	s.mu.Unlock()

	err := s.radio.Disconnect()
	s.log.Info().Str("address", status.Address).Msg("disconnected")
	s.notify(status)
	return err
}
