package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/radio"
	"github.com/librescoot/euc-service/pkg/usock"
)

type sentFrame struct {
	id  byte
	msg map[string]interface{}
}

type fakeLink struct {
	mu     sync.Mutex
	frames []sentFrame
	onSend func(id byte)
}

func (l *fakeLink) WriteFrame(id byte, payload []byte) error {
	var m map[string]interface{}
	if err := cbor.Unmarshal(payload, &m); err != nil {
		return err
	}
	l.mu.Lock()
	l.frames = append(l.frames, sentFrame{id: id, msg: m})
	onSend := l.onSend
	l.mu.Unlock()
	if onSend != nil {
		onSend(id)
	}
	return nil
}

func (l *fakeLink) sent() []sentFrame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sentFrame(nil), l.frames...)
}

func frame(t *testing.T, id byte, m map[string]interface{}) usock.Frame {
	t.Helper()
	payload, err := cbor.Marshal(m)
	require.NoError(t, err)
	return usock.Frame{ID: id, Payload: payload}
}

func newBridge() (*Bridge, *fakeLink) {
	b := New(zerolog.Nop())
	l := &fakeLink{}
	b.SetLink(l)
	return b, l
}

func TestScanRelaysResultsUntilDone(t *testing.T) {
	b, l := newBridge()
	adv := ble.BuildAdvertisement("KS-16X", nil)
	l.onSend = func(id byte) {
		if id != FrameScanStart {
			return
		}
		go func() {
			b.HandleFrame(frame(t, FrameScanResult, map[string]interface{}{
				KeyAddr: "f8:33:31:dd:5c:32", KeyRSSI: -61, KeyAdv: adv,
			}))
			b.HandleFrame(frame(t, FrameScanDone, nil))
		}()
	}

	var got []radio.Observation
	var mu sync.Mutex
	err := b.Scan(context.Background(), 5*time.Second, func(o radio.Observation) {
		mu.Lock()
		got = append(got, o)
		mu.Unlock()
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, radio.Observation{Address: "f8:33:31:dd:5c:32", RSSI: -61, Data: adv}, got[0])

	sent := l.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, FrameScanStart, sent[0].id)
	assert.EqualValues(t, 5000, sent[0].msg[KeyWindowMS])
}

func TestScanStopsAfterWindow(t *testing.T) {
	b, l := newBridge()
	require.NoError(t, b.Scan(context.Background(), 10*time.Millisecond, func(radio.Observation) {}))

	sent := l.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, FrameScanStop, sent[1].id)
}

func TestConnectWriteReadDisconnect(t *testing.T) {
	b, l := newBridge()

	var events []radio.Event
	require.NoError(t, b.Connect("f8:33:31:dd:5c:32", ble.GotwayProfile, func(e radio.Event) {
		events = append(events, e)
	}))
	assert.ErrorIs(t, b.Write([]byte{0x01}), radio.ErrNotConnected)

	b.HandleFrame(frame(t, FrameConnEvent, map[string]interface{}{KeyState: StateConnected}))
	require.Len(t, events, 1)
	assert.Equal(t, radio.Connected, events[0].State)

	data, err := b.Read()
	require.NoError(t, err)
	assert.Nil(t, data)

	b.HandleFrame(frame(t, FrameNotify, map[string]interface{}{KeyData: []byte{0x55, 0xAA}}))
	b.HandleFrame(frame(t, FrameNotify, map[string]interface{}{KeyData: []byte{0x01}}))
	data, err = b.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0xAA}, data)
	data, err = b.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, data)
	data, err = b.Read()
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, b.Write([]byte{0x55, 0xAA, 0x00}))
	require.NoError(t, b.Disconnect())
	require.NoError(t, b.Disconnect())

	sent := l.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, FrameConnect, sent[0].id)
	assert.Equal(t, ble.GotwayServiceUUID, sent[0].msg[KeyService])
	assert.Equal(t, ble.GotwayCharUUID, sent[0].msg[KeyChar])
	assert.Equal(t, FrameWrite, sent[1].id)
	assert.Equal(t, []byte{0x55, 0xAA, 0x00}, sent[1].msg[KeyData])
	assert.Equal(t, FrameDisconnect, sent[2].id)

	_, err = b.Read()
	assert.ErrorIs(t, err, radio.ErrNotConnected)
}

func TestNotificationQueueDropsOldest(t *testing.T) {
	b, _ := newBridge()
	require.NoError(t, b.Connect("f8:33:31:dd:5c:32", ble.GotwayProfile, func(radio.Event) {}))
	b.HandleFrame(frame(t, FrameConnEvent, map[string]interface{}{KeyState: StateConnected}))

	for i := 0; i < maxPending+2; i++ {
		b.HandleFrame(frame(t, FrameNotify, map[string]interface{}{KeyData: []byte{byte(i)}}))
	}
	data, err := b.Read()
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, data)

	n := 1
	for {
		data, err = b.Read()
		require.NoError(t, err)
		if data == nil {
			break
		}
		n++
	}
	assert.Equal(t, maxPending, n)
}

func TestConnectionLostEvent(t *testing.T) {
	b, _ := newBridge()
	var last radio.Event
	require.NoError(t, b.Connect("f8:33:31:dd:5c:32", ble.InMotionProfile, func(e radio.Event) { last = e }))
	b.HandleFrame(frame(t, FrameConnEvent, map[string]interface{}{KeyState: StateConnected}))
	b.HandleFrame(frame(t, FrameConnEvent, map[string]interface{}{KeyState: StateDisconnected, KeyReason: "supervision timeout"}))

	assert.Equal(t, radio.Event{State: radio.Disconnected, Reason: "supervision timeout"}, last)
	assert.ErrorIs(t, b.Write([]byte{0x00}), radio.ErrNotConnected)
}

func TestHandleFrameIgnoresGarbage(t *testing.T) {
	b, _ := newBridge()
	b.HandleFrame(usock.Frame{ID: FrameNotify, Payload: []byte{0xFF, 0xFF}})
	b.HandleFrame(frame(t, 0x99, map[string]interface{}{}))
}

func TestSendWithoutLink(t *testing.T) {
	b := New(zerolog.Nop())
	assert.Error(t, b.Connect("f8:33:31:dd:5c:32", ble.InMotionProfile, nil))
}
