package euc

import (
	"fmt"
	"time"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/voltage"
)

// Codec decodes one vendor's notification stream and encodes its commands.
// A Codec belongs to a single connection and is not safe for concurrent use.
type Codec interface {
	Vendor() Vendor
	Profile() ble.Profile
	// Feed appends notification bytes to the receive buffer.
	Feed(p []byte)
	// Decode attempts one frame. It returns Incomplete with a nil error
	// while fewer than MinFrameLen bytes are buffered.
	Decode() (Outcome, error)
	// Snapshot returns a copy of the accumulated telemetry.
	Snapshot() Snapshot
	// Encode validates cmd and returns the frame to write.
	Encode(cmd Command) ([]byte, error)
	// Reset clears the buffer, the snapshot and any latched pack config.
	Reset()
}

// Options tune codec construction.
type Options struct {
	// Model selects the pack config for vendors keyed by model name. Empty
	// picks the vendor default.
	Model string
	// BufferLimit overrides DefaultBufferLimit.
	BufferLimit int
	// Battery overrides the vendor's voltage strategy.
	Battery voltage.Strategy
	// Now is the snapshot clock; defaults to time.Now.
	Now func() time.Time
}

// protocol is the static description of one vendor.
type protocol struct {
	vendor   Vendor
	header   [2]byte
	profile  ble.Profile
	decode   func(r *fieldReader) (Outcome, error)
	commands commandSet
	// table is consulted for the fallback maximum speed.
	table []voltage.Config
	// battery builds the default strategy for a model.
	battery func(model string) (voltage.Strategy, error)
}

var protocols = map[Vendor]protocol{
	InMotion: inMotionProtocol,
	Kingsong: kingsongProtocol,
	Gotway:   gotwayProtocol,
	Ninebot:  ninebotProtocol,
	Veteran:  veteranProtocol,
}

// New builds the codec for vendor v. Only decided vendors have a codec;
// PossibleGotway must be resolved by the caller first.
func New(v Vendor, opts Options) (Codec, error) {
	p, ok := protocols[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVendor, v)
	}
	strategy := opts.Battery
	if strategy == nil {
		s, err := p.battery(opts.Model)
		if err != nil {
			return nil, err
		}
		strategy = s
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &codec{
		p:       p,
		buf:     NewFrameBuffer(opts.BufferLimit),
		battery: strategy,
		now:     now,
	}
	c.resetConfig()
	return c, nil
}

// byModel returns a battery builder that looks the model up in table,
// defaulting to def.
func byModel(table map[string]voltage.Config, def string) func(string) (voltage.Strategy, error) {
	return func(model string) (voltage.Strategy, error) {
		if model == "" {
			model = def
		}
		cfg, ok := voltage.Lookup(table, model)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
		}
		return voltage.Fixed{Config: cfg}, nil
	}
}

// nearest returns a battery builder that matches the pack by voltage.
func nearest(table []voltage.Config) func(string) (voltage.Strategy, error) {
	return func(string) (voltage.Strategy, error) {
		return voltage.Nearest{Table: table, Tolerance: voltage.Tolerance}, nil
	}
}

type codec struct {
	p       protocol
	buf     *FrameBuffer
	battery voltage.Strategy
	// config is the last resolved pack; nil until one is known.
	config *voltage.Config
	snap   Snapshot
	now    func() time.Time
}

func (c *codec) Vendor() Vendor       { return c.p.vendor }
func (c *codec) Profile() ble.Profile { return c.p.profile }
func (c *codec) Feed(p []byte)        { c.buf.Feed(p) }
func (c *codec) Snapshot() Snapshot   { return c.snap }

func (c *codec) Decode() (Outcome, error) {
	b, err := c.buf.Frame(c.p.header)
	if err != nil {
		return Outcome{}, &ParseError{Vendor: c.p.vendor, Err: err}
	}
	if b == nil {
		return Outcome{Kind: Incomplete}, nil
	}

	r := &fieldReader{b: b}
	out, err := c.p.decode(r)
	if err == nil {
		err = r.err
	}
	c.buf.Reset()
	if err != nil {
		return Outcome{}, &ParseError{Vendor: c.p.vendor, Err: err}
	}

	if out.Kind == LiveData {
		out.Live.Battery = c.percent(out.Live.Voltage)
	}
	c.snap.apply(out, c.now())
	return out, nil
}

func (c *codec) percent(v float64) int {
	cfg, ok := c.battery.Resolve(v)
	if !ok {
		return 0
	}
	c.config = &cfg
	return cfg.Percent(v)
}

func (c *codec) Encode(cmd Command) ([]byte, error) {
	return c.p.commands.encode(c.p.vendor, cmd, c.limits())
}

func (c *codec) limits() limits {
	if c.config != nil && c.config.MaxSpeed > 0 {
		return limits{maxSpeed: c.config.MaxSpeed, angle: c.config.Angle()}
	}
	return limits{maxSpeed: voltage.SlowestMaxSpeed(c.p.table), angle: voltage.DefaultAngle}
}

func (c *codec) Reset() {
	c.buf.Reset()
	c.snap = Snapshot{}
	if r, ok := c.battery.(interface{ Reset() }); ok {
		r.Reset()
	}
	c.resetConfig()
}

// resetConfig seeds config from a fixed strategy so model-keyed vendors have
// their limits before the first live frame.
func (c *codec) resetConfig() {
	c.config = nil
	if f, ok := c.battery.(voltage.Fixed); ok && f.Config.Valid() {
		cfg := f.Config
		c.config = &cfg
	}
}
