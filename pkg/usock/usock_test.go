package usock

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16ARCCheckValue(t *testing.T) {
	assert.Equal(t, uint16(0xBB3D), CRC16([]byte("123456789")))
	assert.Equal(t, uint16(0), CRC16(nil))
}

func TestEncodeLayout(t *testing.T) {
	raw, err := Encode(0x04, []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Len(t, raw, 5+2+2+2)
	assert.Equal(t, []byte{0xF6, 0xD9, 0x04, 0x02, 0x00}, raw[:5])

	hcrc := CRC16(raw[:5])
	assert.Equal(t, []byte{byte(hcrc), byte(hcrc >> 8)}, raw[5:7])
	assert.Equal(t, []byte{0x01, 0x02}, raw[7:9])

	_, err = Encode(0x04, make([]byte, MaxPayloadLength+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func collect(d *Decoder) (*[]Frame, *[]error) {
	var frames []Frame
	var errs []error
	d.OnFrame = func(f Frame) { frames = append(frames, f) }
	d.OnError = func(err error) { errs = append(errs, err) }
	return &frames, &errs
}

func TestDecoderRoundTripWithNoise(t *testing.T) {
	var d Decoder
	frames, errs := collect(&d)

	a, err := Encode(0x84, []byte("hello"))
	require.NoError(t, err)
	b, err := Encode(0x82, nil)
	require.NoError(t, err)

	stream := append([]byte{0x00, 0xF6, 0x11}, a...)
	stream = append(stream, 0xF6)
	stream = append(stream, b...)
	// split across writes
	d.Write(stream[:7])
	d.Write(stream[7:])

	require.Len(t, *frames, 2)
	assert.Equal(t, Frame{ID: 0x84, Payload: []byte("hello")}, (*frames)[0])
	assert.Equal(t, byte(0x82), (*frames)[1].ID)
	assert.Empty(t, (*frames)[1].Payload)
	assert.Empty(t, *errs)
	assert.Equal(t, StateSync1, d.State())
}

func TestDecoderRejectsBadCRCs(t *testing.T) {
	var d Decoder
	frames, errs := collect(&d)

	raw, err := Encode(0x01, []byte{0xAA, 0xBB})
	require.NoError(t, err)

	badHeader := append([]byte(nil), raw...)
	badHeader[5] ^= 0xFF
	d.Write(badHeader)

	badPayload := append([]byte(nil), raw...)
	badPayload[len(badPayload)-1] ^= 0xFF
	d.Write(badPayload)

	assert.Empty(t, *frames)
	require.Len(t, *errs, 2)
	assert.ErrorIs(t, (*errs)[0], ErrHeaderCRC)
	assert.ErrorIs(t, (*errs)[1], ErrPayloadCRC)

	d.Write(raw)
	assert.Len(t, *frames, 1)
}

func TestDecoderRejectsOversizeLength(t *testing.T) {
	var d Decoder
	_, errs := collect(&d)
	d.Write([]byte{0xF6, 0xD9, 0x01, 0x01, 0x08})
	require.Len(t, *errs, 1)
	assert.ErrorIs(t, (*errs)[0], ErrPayloadTooLarge)
}

func TestUSOCKOverPipe(t *testing.T) {
	local, remote := net.Pipe()
	got := make(chan Frame, 1)
	u := New(local, func(f Frame) { got <- f }, zerolog.Nop())
	defer u.Close()

	raw, err := Encode(0x84, []byte{0x55, 0xAA})
	require.NoError(t, err)
	go remote.Write(raw)

	select {
	case f := <-got:
		assert.Equal(t, byte(0x84), f.ID)
		assert.Equal(t, []byte{0x55, 0xAA}, f.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}

	sent := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 9)
		if _, err := io.ReadFull(remote, buf); err == nil {
			sent <- buf
		}
	}()
	require.NoError(t, u.WriteFrame(0x05, nil))
	select {
	case buf := <-sent:
		want, _ := Encode(0x05, nil)
		assert.Equal(t, want, buf)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not written")
	}
}
