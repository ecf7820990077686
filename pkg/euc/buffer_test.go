package euc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gotwayHeader = [2]byte{0x55, 0xAA}

func TestFrameBufferWaitsForMinimumLength(t *testing.T) {
	b := NewFrameBuffer(0)
	assert.Equal(t, DefaultBufferLimit, b.Limit())
	assert.Equal(t, BufferEmpty, b.State())

	b.Feed(make([]byte, MinFrameLen-1))
	f, err := b.Frame(gotwayHeader)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, MinFrameLen-1, b.Len())
	assert.Equal(t, BufferAccumulating, b.State())
}

func TestFrameBufferCompletesAcrossFeeds(t *testing.T) {
	b := NewFrameBuffer(64)
	first := make([]byte, 12)
	first[0], first[1] = 0x55, 0xAA
	b.Feed(first)
	b.Feed(make([]byte, 8))

	f, err := b.Frame(gotwayHeader)
	require.NoError(t, err)
	assert.Len(t, f, 20)
	assert.Equal(t, BufferComplete, b.State())
}

func TestFrameBufferClearsOnBadHeader(t *testing.T) {
	b := NewFrameBuffer(64)
	junk := make([]byte, 20)
	junk[0] = 0xAA
	b.Feed(junk)

	_, err := b.Frame(gotwayHeader)
	assert.ErrorIs(t, err, ErrInvalidHeader)
	assert.Zero(t, b.Len())
	assert.Equal(t, BufferInvalid, b.State())
}

func TestFrameBufferOverflowCheckedFirst(t *testing.T) {
	b := NewFrameBuffer(32)
	good := make([]byte, 33)
	good[0], good[1] = 0x55, 0xAA
	b.Feed(good)

	_, err := b.Frame(gotwayHeader)
	assert.ErrorIs(t, err, ErrBufferOverflow)
	assert.Zero(t, b.Len())
	assert.Equal(t, BufferOverflow, b.State())
}

func TestFieldReaderTruncation(t *testing.T) {
	r := &fieldReader{b: make([]byte, 10)}
	assert.Zero(t, r.u32(8))
	require.ErrorIs(t, r.err, ErrTruncatedFrame)

	// the first fault sticks
	assert.Zero(t, r.u8(0))
	assert.ErrorIs(t, r.err, ErrTruncatedFrame)
}

func TestRecoverSigned(t *testing.T) {
	assert.Equal(t, -1.0, recoverSigned(654.36, 100))
	assert.Equal(t, -1.0, recoverSigned(6552.6, 10))
	assert.Equal(t, 327.67, recoverSigned(327.67, 100))
	assert.Equal(t, 12.5, recoverSigned(12.5, 10))
}
