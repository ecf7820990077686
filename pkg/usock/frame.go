package usock

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	MaxPayloadLength = 1024
	SyncByte1        = 0xF6
	SyncByte2        = 0xD9

	headerLen = 5 // sync, sync, id, len lo, len hi
)

// Decoder states
const (
	StateSync1 State = iota
	StateSync2
	StateFrameID
	StatePayloadLen1
	StatePayloadLen2
	StateHeaderCRC1
	StateHeaderCRC2
	StatePayload
	StatePayloadCRC1
	StatePayloadCRC2
)

// State is a position in the frame decoder.
type State int

var (
	ErrPayloadTooLarge = errors.New("usock: payload exceeds maximum length")
	ErrHeaderCRC       = errors.New("usock: header crc mismatch")
	ErrPayloadCRC      = errors.New("usock: payload crc mismatch")
)

// Frame is one decoded link frame.
type Frame struct {
	ID      byte
	Payload []byte
}

// Encode builds the wire form of a frame:
// F6 D9 | id | len (LE16) | header crc (LE16) | payload | payload crc (LE16).
func Encode(id byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), MaxPayloadLength)
	}
	out := make([]byte, 0, headerLen+2+len(payload)+2)
	out = append(out, SyncByte1, SyncByte2, id)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(payload)))
	out = binary.LittleEndian.AppendUint16(out, CRC16(out))
	out = append(out, payload...)
	out = binary.LittleEndian.AppendUint16(out, CRC16(payload))
	return out, nil
}

// Decoder reassembles frames from a byte stream. It resynchronises on the
// sync bytes after any fault. Not safe for concurrent use.
type Decoder struct {
	state   State
	id      byte
	length  uint16
	crc     uint16
	header  []byte
	payload []byte

	// OnFrame receives every frame whose CRCs check out. The payload is a
	// fresh copy.
	OnFrame func(Frame)
	// OnError receives framing faults; optional.
	OnError func(error)
}

// Write feeds p through the state machine. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		d.step(b)
	}
	return len(p), nil
}

// State returns the current decoder state.
func (d *Decoder) State() State { return d.state }

func (d *Decoder) fault(err error) {
	d.state = StateSync1
	if d.OnError != nil {
		d.OnError(err)
	}
}

func (d *Decoder) step(b byte) {
	switch d.state {
	case StateSync1:
		if b == SyncByte1 {
			d.header = append(d.header[:0], b)
			d.state = StateSync2
		}
	case StateSync2:
		switch b {
		case SyncByte2:
			d.header = append(d.header, b)
			d.state = StateFrameID
		case SyncByte1:
			// F6 F6 D9: stay aligned on the second F6
		default:
			d.state = StateSync1
		}
	case StateFrameID:
		d.id = b
		d.header = append(d.header, b)
		d.state = StatePayloadLen1
	case StatePayloadLen1:
		d.length = uint16(b)
		d.header = append(d.header, b)
		d.state = StatePayloadLen2
	case StatePayloadLen2:
		d.length |= uint16(b) << 8
		d.header = append(d.header, b)
		if d.length > MaxPayloadLength {
			d.fault(fmt.Errorf("%w: %d", ErrPayloadTooLarge, d.length))
			return
		}
		d.state = StateHeaderCRC1
	case StateHeaderCRC1:
		d.crc = uint16(b)
		d.state = StateHeaderCRC2
	case StateHeaderCRC2:
		d.crc |= uint16(b) << 8
		if want := CRC16(d.header); want != d.crc {
			d.fault(fmt.Errorf("%w: calculated 0x%04x, received 0x%04x", ErrHeaderCRC, want, d.crc))
			return
		}
		d.payload = d.payload[:0]
		if d.length == 0 {
			d.state = StatePayloadCRC1
			return
		}
		d.state = StatePayload
	case StatePayload:
		d.payload = append(d.payload, b)
		if len(d.payload) >= int(d.length) {
			d.state = StatePayloadCRC1
		}
	case StatePayloadCRC1:
		d.crc = uint16(b)
		d.state = StatePayloadCRC2
	case StatePayloadCRC2:
		d.crc |= uint16(b) << 8
		if want := CRC16(d.payload); want != d.crc {
			d.fault(fmt.Errorf("%w: frame 0x%02x calculated 0x%04x, received 0x%04x", ErrPayloadCRC, d.id, want, d.crc))
			return
		}
		d.state = StateSync1
		if d.OnFrame != nil {
			d.OnFrame(Frame{ID: d.id, Payload: append([]byte(nil), d.payload...)})
		}
	}
}
