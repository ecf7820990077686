package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/euc"
	"github.com/librescoot/euc-service/pkg/radio"
	"github.com/librescoot/euc-service/pkg/session"
)

type published struct {
	key, message string
}

type fakeStore struct {
	mu        sync.Mutex
	hashes    map[string]map[string]interface{}
	published []published
	deleted   []string
	queue     chan string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes: make(map[string]map[string]interface{}),
		queue:  make(chan string, 8),
	}
}

func (f *fakeStore) WriteHash(_ context.Context, key string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := f.hashes[key]
	if h == nil {
		h = make(map[string]interface{})
		f.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (f *fakeStore) WriteAndPublish(ctx context.Context, key string, fields map[string]interface{}, message string) error {
	f.WriteHash(ctx, key, fields)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{key, message})
	return nil
}

func (f *fakeStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.hashes, k)
		f.deleted = append(f.deleted, k)
	}
	return nil
}

func (f *fakeStore) BRPop(ctx context.Context, timeout time.Duration, key string) ([]string, error) {
	select {
	case v := <-f.queue:
		return []string{key, v}, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeStore) hash(key string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]interface{}, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out
}

func (f *fakeStore) messages(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.published {
		if p.key == key {
			out = append(out, p.message)
		}
	}
	return out
}

// fakeRadio connects immediately and hands out queued notifications.
type fakeRadio struct {
	mu      sync.Mutex
	adverts []radio.Observation
	inbound [][]byte
	written [][]byte
}

func (f *fakeRadio) Scan(_ context.Context, _ time.Duration, observe func(radio.Observation)) error {
	f.mu.Lock()
	adverts := f.adverts
	f.mu.Unlock()
	for _, o := range adverts {
		observe(o)
	}
	return nil
}

func (f *fakeRadio) Connect(_ string, _ ble.Profile, events func(radio.Event)) error {
	go events(radio.Event{State: radio.Connected})
	return nil
}

func (f *fakeRadio) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, p)
	return nil
}

func (f *fakeRadio) Read() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbound) == 0 {
		return nil, nil
	}
	p := f.inbound[0]
	f.inbound = f.inbound[1:]
	return p, nil
}

func (f *fakeRadio) Disconnect() error { return nil }

func (f *fakeRadio) push(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbound = append(f.inbound, p)
}

func (f *fakeRadio) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

const wheel = "f8:33:31:dd:5c:32"

func newService(r *fakeRadio, store *fakeStore, publishRate float64) *Service {
	return New(r, store, Config{
		Session: session.Config{
			ConnectTimeout: time.Second,
			PollInterval:   5 * time.Millisecond,
		},
		PublishRate: publishRate,
	}, zerolog.Nop())
}

func gotwayFrame(kind byte) []byte {
	f := make([]byte, 20)
	f[0], f[1] = 0x55, 0xAA
	f[16] = kind
	return f
}

func TestScanPublishesDevices(t *testing.T) {
	r := &fakeRadio{adverts: []radio.Observation{
		{Address: "00:00:00:00:00:01", RSSI: -70, Data: ble.BuildAdvertisement("KS-S22", nil)},
		{Address: "00:00:00:00:00:02", RSSI: -50, Data: ble.BuildAdvertisement("Unbranded", nil)},
	}}
	store := newFakeStore()
	svc := newService(r, store, 0)

	require.NoError(t, svc.Handle(context.Background(), "scan 1"))
	assert.Equal(t, []string{ScanScanning, "devices"}, store.messages(KeyScan))

	scan := store.hash(KeyScan)
	assert.Equal(t, ScanIdle, scan["state"])
	assert.Equal(t, 2, scan["count"])
	assert.Equal(t, "00:00:00:00:00:01,00:00:00:00:00:02", scan["devices"])

	ks := store.hash(KeyDevice("00:00:00:00:00:01"))
	assert.Equal(t, "KS-S22", ks["name"])
	assert.Equal(t, "kingsong", ks["vendor"])
	assert.Equal(t, -70, ks["rssi"])

	clone := store.hash(KeyDevice("00:00:00:00:00:02"))
	assert.Equal(t, "possible-gotway", clone["vendor"])
	assert.Equal(t, "gotway", clone["candidates"])

	// a second scan drops devices that are gone
	r.mu.Lock()
	r.adverts = r.adverts[:1]
	r.mu.Unlock()
	require.NoError(t, svc.Handle(context.Background(), "scan 1"))
	assert.Empty(t, store.hash(KeyDevice("00:00:00:00:00:02")))
	assert.NotEmpty(t, store.hash(KeyDevice("00:00:00:00:00:01")))
	assert.Equal(t, 1, store.hash(KeyScan)["count"])
}

func TestConnectPublishesState(t *testing.T) {
	store := newFakeStore()
	svc := newService(&fakeRadio{}, store, 0)
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, "connect F8:33:31:DD:5C:32 gotway"))
	conn := store.hash(KeyConnection)
	assert.Equal(t, "connected", conn["state"])
	assert.Equal(t, wheel, conn["address"])
	assert.Equal(t, "gotway", conn["vendor"])
	assert.Len(t, conn["session-id"], 26)
	assert.Equal(t, []string{"connecting", "connected"}, store.messages(KeyConnection))

	err := svc.Handle(ctx, "scan")
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, svc.Handle(ctx, "disconnect"))
	conn = store.hash(KeyConnection)
	assert.Equal(t, "disconnected", conn["state"])
	assert.Equal(t, "", conn["session-id"])
	assert.Contains(t, store.deleted, KeyTelemetry)
}

func TestWheelCommands(t *testing.T) {
	r := &fakeRadio{}
	svc := newService(r, newFakeStore(), 0)
	ctx := context.Background()

	err := svc.Handle(ctx, "horn")
	assert.ErrorIs(t, err, session.ErrNotConnected)

	require.NoError(t, svc.Handle(ctx, "connect "+wheel+" kingsong"))
	require.NoError(t, svc.Handle(ctx, "pedals-mode 1"))
	require.NoError(t, svc.Handle(ctx, "speed-alert 1 35"))
	assert.Equal(t, 2, r.writes())

	err = svc.Handle(ctx, "request-live-data")
	assert.ErrorIs(t, err, euc.ErrUnsupportedCommand)
	err = svc.Handle(ctx, "lights 3")
	assert.ErrorIs(t, err, euc.ErrInvalidParameter)
	assert.Equal(t, 2, r.writes())
}

func TestPollPublishesTelemetry(t *testing.T) {
	r := &fakeRadio{}
	store := newFakeStore()
	svc := newService(r, store, 0.001)
	ctx := context.Background()
	require.NoError(t, svc.Handle(ctx, "connect "+wheel+" gotway"))

	live := gotwayFrame(0x00)
	live[2], live[3] = 0x03, 0x48 // 84.0 V
	r.push(live)
	svc.pollOnce(ctx)

	tel := store.hash(KeyTelemetry)
	assert.Equal(t, 84.0, tel["voltage"])
	assert.Equal(t, 100, tel["battery"])
	assert.NotContains(t, tel, "serial-number")

	// throttled
	r.push(live)
	svc.pollOnce(ctx)
	assert.Equal(t, []string{"live"}, store.messages(KeyTelemetry))

	serial := gotwayFrame(0x01)
	copy(serial[2:], "GW1234")
	r.push(serial)
	svc.pollOnce(ctx)
	assert.Equal(t, []string{"live", "serial-number"}, store.messages(KeyTelemetry))
	assert.Equal(t, "GW1234", store.hash(KeyTelemetry)["serial-number"])

	// parse errors are dropped quietly
	r.push(make([]byte, 20))
	svc.pollOnce(ctx)
	assert.Len(t, store.messages(KeyTelemetry), 2)
	assert.Equal(t, session.Connected, svc.Session().Status().State)
}

func TestRunExecutesQueuedCommands(t *testing.T) {
	store := newFakeStore()
	svc := newService(&fakeRadio{}, store, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	store.queue <- "connect " + wheel + " veteran"
	assert.Eventually(t, func() bool {
		return svc.Session().Status().State == session.Connected
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, session.Idle, svc.Session().Status().State)
	assert.Equal(t, "disconnected", store.hash(KeyConnection)["state"])
}

func TestPollDrainsQueuedNotifications(t *testing.T) {
	r := &fakeRadio{}
	store := newFakeStore()
	svc := newService(r, store, 0)
	ctx := context.Background()
	require.NoError(t, svc.Handle(ctx, "connect "+wheel+" gotway"))

	serial := gotwayFrame(0x01)
	copy(serial[2:], "GW1234")
	firmware := gotwayFrame(0x02)
	firmware[2], firmware[3] = 2, 5
	r.push(serial)
	r.push(firmware)

	svc.pollOnce(ctx)
	assert.Equal(t, []string{"serial-number", "firmware-version"}, store.messages(KeyTelemetry))
	tel := store.hash(KeyTelemetry)
	assert.Equal(t, "GW1234", tel["serial-number"])
	assert.Equal(t, "2.5", tel["firmware-version"])
}
