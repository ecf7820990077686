package bridge

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// Frame IDs. Host to co-processor below 0x80, replies and events above.
const (
	FrameScanStart  byte = 0x01
	FrameScanStop   byte = 0x02
	FrameConnect    byte = 0x03
	FrameWrite      byte = 0x04
	FrameDisconnect byte = 0x05

	FrameScanResult byte = 0x81
	FrameScanDone   byte = 0x82
	FrameConnEvent  byte = 0x83
	FrameNotify     byte = 0x84
)

// Message keys.
const (
	KeyWindowMS = "window_ms"
	KeyAddr     = "addr"
	KeyRSSI     = "rssi"
	KeyAdv      = "adv"
	KeyService  = "service"
	KeyChar     = "char"
	KeyWriteTo  = "write"
	KeyState    = "state"
	KeyReason   = "reason"
	KeyData     = "data"
)

// Connection event states.
const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
)

type message map[string]interface{}

func encode(m message) ([]byte, error) {
	if m == nil {
		m = message{}
	}
	data, err := cbor.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CBOR: %w", err)
	}
	return data, nil
}

func decode(data []byte) (message, error) {
	var m message
	if len(data) == 0 {
		return message{}, nil
	}
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	return m, nil
}

func (m message) int(key string) (int, bool) {
	return convertToInt(m[key])
}

func (m message) string(key string) (string, bool) {
	return convertToString(m[key])
}

func (m message) bytes(key string) ([]byte, bool) {
	return convertToBytes(m[key])
}

// convertToInt accepts any CBOR integer that fits an int.
func convertToInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case int32:
		return int(v), true
	case uint32:
		return int(v), true
	}
	return 0, false
}

func convertToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

func convertToBytes(value interface{}) ([]byte, bool) {
	v, ok := value.([]byte)
	return v, ok
}
