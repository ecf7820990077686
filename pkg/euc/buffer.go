package euc

const (
	// MinFrameLen is the shortest buffer any vendor decodes.
	MinFrameLen = 20
	// FrameLen is the fixed size of outbound command frames.
	FrameLen = 20
	// DefaultBufferLimit caps the receive buffer of one connection.
	DefaultBufferLimit = 1024
)

// BufferState describes where a FrameBuffer stands after the last check.
type BufferState int

const (
	// BufferEmpty holds no bytes.
	BufferEmpty BufferState = iota
	// BufferAccumulating holds fewer than MinFrameLen bytes.
	BufferAccumulating
	// BufferComplete holds a full frame with a matching header.
	BufferComplete
	// BufferOverflow went past the ceiling and was cleared.
	BufferOverflow
	// BufferInvalid had a header mismatch and was cleared.
	BufferInvalid
)

// FrameBuffer accumulates notification bytes for one connection until a
// whole frame is present. It is owned by a single codec.
type FrameBuffer struct {
	data  []byte
	limit int
	state BufferState
}

// NewFrameBuffer returns a buffer with the given ceiling; a ceiling below
// MinFrameLen selects DefaultBufferLimit.
func NewFrameBuffer(limit int) *FrameBuffer {
	if limit < MinFrameLen {
		limit = DefaultBufferLimit
	}
	return &FrameBuffer{data: make([]byte, 0, MinFrameLen*2), limit: limit}
}

// Feed appends p.
func (b *FrameBuffer) Feed(p []byte) {
	if len(p) == 0 {
		return
	}
	b.data = append(b.data, p...)
	b.state = BufferAccumulating
}

// Len returns the number of buffered bytes.
func (b *FrameBuffer) Len() int { return len(b.data) }

// Limit returns the ceiling.
func (b *FrameBuffer) Limit() int { return b.limit }

// State returns the state reached by the last Feed, Frame or Reset.
func (b *FrameBuffer) State() BufferState { return b.state }

// Reset drops all buffered bytes.
func (b *FrameBuffer) Reset() {
	b.data = b.data[:0]
	b.state = BufferEmpty
}

// Frame checks the buffer against the ceiling, the minimum length and the
// header magic. It returns nil, nil while more bytes are needed. On overflow
// or header mismatch the buffer is cleared and the fault returned. The
// returned slice aliases the buffer and is valid until the next Feed/Reset.
func (b *FrameBuffer) Frame(header [2]byte) ([]byte, error) {
	if len(b.data) > b.limit {
		b.Reset()
		b.state = BufferOverflow
		return nil, ErrBufferOverflow
	}
	if len(b.data) < MinFrameLen {
		return nil, nil
	}
	if b.data[0] != header[0] || b.data[1] != header[1] {
		b.Reset()
		b.state = BufferInvalid
		return nil, ErrInvalidHeader
	}
	b.state = BufferComplete
	return b.data, nil
}
