package ble

import (
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// bluetoothBase is 00000000-0000-1000-8000-00805F9B34FB.
var bluetoothBase = uuid.UUID{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
	0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB,
}

// Advertisement holds the fields of an advertising payload the classifier
// cares about.
type Advertisement struct {
	Name         string
	ServiceUUIDs []string
}

// HasService reports whether the advertisement lists the given UUID.
func (a Advertisement) HasService(id string) bool {
	for _, u := range a.ServiceUUIDs {
		if strings.EqualFold(u, id) {
			return true
		}
	}
	return false
}

// ParseAdvertisement walks the length-type-value structures of raw
// advertising data. Parsing stops at the first malformed structure; what was
// read up to that point is kept.
func ParseAdvertisement(raw []byte) Advertisement {
	var adv Advertisement
	for i := 0; i+1 < len(raw); {
		length := int(raw[i])
		if length == 0 || i+1+length > len(raw) {
			break
		}
		typ := ADType(raw[i+1])
		data := raw[i+2 : i+1+length]

		switch typ {
		case ADShortLocalName, ADCompleteLocalName:
			adv.Name = decodeName(data)
		case ADIncomplete16BitUUIDs, ADComplete16BitUUIDs:
			for j := 0; j+2 <= len(data); j += 2 {
				adv.ServiceUUIDs = appendUnique(adv.ServiceUUIDs, UUID16(uint16(data[j])|uint16(data[j+1])<<8))
			}
		case ADIncomplete128BitUUIDs, ADComplete128BitUUIDs:
			for j := 0; j+16 <= len(data); j += 16 {
				adv.ServiceUUIDs = appendUnique(adv.ServiceUUIDs, UUID128LE(data[j:j+16]))
			}
		}
		i += 1 + length
	}
	return adv
}

func decodeName(b []byte) string {
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimRight(s, "\x00")
}

func appendUnique(list []string, id string) []string {
	for _, u := range list {
		if u == id {
			return list
		}
	}
	return append(list, id)
}

// UUID16 expands a 16-bit assigned number into the Bluetooth base UUID.
func UUID16(short uint16) string {
	u := bluetoothBase
	u[2] = byte(short >> 8)
	u[3] = byte(short)
	return strings.ToUpper(u.String())
}

// UUID128LE formats a 128-bit UUID transmitted least significant byte first.
func UUID128LE(b []byte) string {
	var u uuid.UUID
	for i := range u {
		u[i] = b[len(u)-1-i]
	}
	return strings.ToUpper(u.String())
}

// NormalizeUUID parses any textual UUID form (including 4-hex-digit short
// forms) and returns the canonical uppercase hyphenated string.
func NormalizeUUID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) == 4 {
		var short uint16
		if _, err := fmt.Sscanf(s, "%04x", &short); err != nil {
			return "", fmt.Errorf("ble: invalid short uuid %q: %w", s, err)
		}
		return UUID16(short), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("ble: invalid uuid %q: %w", s, err)
	}
	return strings.ToUpper(u.String()), nil
}

// BuildAdvertisement encodes a name and a set of 128-bit service UUIDs as
// advertising data. Radios that expose parsed fields instead of raw bytes
// use it so every observation goes through ParseAdvertisement.
func BuildAdvertisement(name string, services []string) []byte {
	var out []byte
	if name != "" {
		n := []byte(name)
		if len(n) > 253 {
			n = n[:253]
		}
		out = append(out, byte(len(n)+1), byte(ADCompleteLocalName))
		out = append(out, n...)
	}
	for _, s := range services {
		u, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		out = append(out, 17, byte(ADComplete128BitUUIDs))
		for i := len(u) - 1; i >= 0; i-- {
			out = append(out, u[i])
		}
	}
	return out
}

// NormalizeAddress returns the canonical lowercase colon-separated form of a
// 6-byte hardware address.
func NormalizeAddress(addr string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(addr))
	if err != nil {
		return "", err
	}
	if len(hw) != 6 {
		return "", fmt.Errorf("ble: address %q is not 6 bytes", addr)
	}
	return strings.ToLower(hw.String()), nil
}
