package session

import (
	"errors"
	"fmt"
)

// Connection failure reasons.
var (
	ErrBadAddress        = errors.New("session: malformed address")
	ErrUnsupportedVendor = errors.New("session: unsupported vendor")
	ErrAlreadyConnected  = errors.New("session: already connected")
	ErrConnectTimeout    = errors.New("session: connect timed out")
	ErrConnectFailed     = errors.New("session: connect failed")
)

// ErrNotConnected is the CommunicationError reason for I/O without a link.
var ErrNotConnected = errors.New("session: not connected")

// ScanError wraps a radio scan failure.
type ScanError struct {
	Err error
}

func (e *ScanError) Error() string { return fmt.Sprintf("scan failed: %v", e.Err) }
func (e *ScanError) Unwrap() error { return e.Err }

// ConnectionError reports why a connect attempt was refused or failed.
// Reason is one of the Err* connection sentinels; Cause is the underlying
// error, if any.
type ConnectionError struct {
	Address string
	Reason  error
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("connect %s: %v", e.Address, e.Reason)
	}
	return fmt.Sprintf("connect %s: %v: %v", e.Address, e.Reason, e.Cause)
}

func (e *ConnectionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}

// CommunicationError reports a failed read or write. Radio failures are
// reported only after the session has disconnected.
type CommunicationError struct {
	Op  string
	Err error
}

func (e *CommunicationError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *CommunicationError) Unwrap() error { return e.Err }
