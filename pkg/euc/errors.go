package euc

import (
	"errors"
	"fmt"
)

// Parse faults. Every one of them leaves the receive buffer empty.
var (
	ErrInvalidHeader       = errors.New("euc: invalid header")
	ErrBufferOverflow      = errors.New("euc: buffer overflow")
	ErrUnknownResponseType = errors.New("euc: unknown response type")
	ErrChecksumMismatch    = errors.New("euc: checksum mismatch")
	ErrTruncatedFrame      = errors.New("euc: truncated frame")
)

// Command faults. A frame that fails validation is never produced.
var (
	ErrInvalidParameter   = errors.New("euc: invalid command parameter")
	ErrUnsupportedCommand = errors.New("euc: command not supported by vendor")
)

// Codec construction faults.
var (
	ErrUnsupportedVendor = errors.New("euc: unsupported vendor")
	ErrUnknownModel      = errors.New("euc: unknown model")
)

// ParseError reports a frame that could not be decoded. The session stays
// usable; the caller may keep reading.
type ParseError struct {
	Vendor Vendor
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Vendor, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CommandError reports a command rejected before encoding.
type CommandError struct {
	Vendor  Vendor
	Command string
	Err     error
	Detail  string
}

func (e *CommandError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s %s: %v", e.Vendor, e.Command, e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %s", e.Vendor, e.Command, e.Err, e.Detail)
}

func (e *CommandError) Unwrap() error { return e.Err }

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsCommandError reports whether err carries a *CommandError.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
