package euc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// fieldReader reads big-endian fields out of one frame. The first read past
// the end sticks as err and every later read returns zero.
type fieldReader struct {
	b   []byte
	err error
}

func (r *fieldReader) span(from, to int) []byte {
	if r.err != nil {
		return nil
	}
	if from < 0 || to > len(r.b) || from > to {
		r.err = fmt.Errorf("%w: need bytes [%d:%d] of %d", ErrTruncatedFrame, from, to, len(r.b))
		return nil
	}
	return r.b[from:to]
}

func (r *fieldReader) u8(off int) byte {
	if s := r.span(off, off+1); s != nil {
		return s[0]
	}
	return 0
}

func (r *fieldReader) u16(off int) uint16 {
	if s := r.span(off, off+2); s != nil {
		return binary.BigEndian.Uint16(s)
	}
	return 0
}

func (r *fieldReader) u32(off int) uint32 {
	if s := r.span(off, off+4); s != nil {
		return binary.BigEndian.Uint32(s)
	}
	return 0
}

// scaled reads an unsigned 16-bit field and divides it.
func (r *fieldReader) scaled(off int, div float64) float64 {
	return float64(r.u16(off)) / div
}

// signed reads a 16-bit field that encodes a negative value as its two's
// complement and recovers the sign in the scaled domain.
func (r *fieldReader) signed(off int, div float64) float64 {
	return recoverSigned(r.scaled(off, div), div)
}

// distance reads a 32-bit metre counter as kilometres.
func (r *fieldReader) distance(off int) float64 {
	return float64(r.u32(off)) / 1000
}

// text returns bytes [from:to] with zero bytes removed.
func (r *fieldReader) text(from, to int) string {
	s := r.span(from, to)
	out := make([]byte, 0, len(s))
	for _, c := range s {
		if c != 0 {
			out = append(out, c)
		}
	}
	return string(out)
}

// version formats two bytes as major.minor.
func (r *fieldReader) version(off int) string {
	major, minor := r.u8(off), r.u8(off+1)
	return fmt.Sprintf("%d.%d", major, minor)
}

// recoverSigned maps a scaled 16-bit value above the positive half-range back
// to its negative counterpart. The result is rounded to the precision of div
// so -1.00 comes out exact.
func recoverSigned(v, div float64) float64 {
	if v > 32767/div {
		v -= 65536 / div
	}
	return math.Round(v*div) / div
}

// sum8 is the 8-bit additive checksum of b.
func sum8(b []byte) byte {
	var s byte
	for _, c := range b {
		s += c
	}
	return s
}
