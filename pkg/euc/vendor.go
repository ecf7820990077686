package euc

import "strings"

// Vendor identifies a wheel manufacturer protocol family.
type Vendor int

const (
	Unknown Vendor = iota
	InMotion
	Kingsong
	Gotway
	Ninebot
	Veteran
	// PossibleGotway marks an advertisement that fits no name pattern and
	// lacks the Begode service UUID. Many Begode clones advertise this way.
	PossibleGotway
)

var vendorNames = map[Vendor]string{
	Unknown:        "unknown",
	InMotion:       "inmotion",
	Kingsong:       "kingsong",
	Gotway:         "gotway",
	Ninebot:        "ninebot",
	Veteran:        "veteran",
	PossibleGotway: "possible-gotway",
}

func (v Vendor) String() string {
	if s, ok := vendorNames[v]; ok {
		return s
	}
	return "unknown"
}

// Decided reports whether v names a concrete protocol family.
func (v Vendor) Decided() bool {
	switch v {
	case InMotion, Kingsong, Gotway, Ninebot, Veteran:
		return true
	}
	return false
}

// ParseVendor accepts the String form plus a few common aliases.
func ParseVendor(s string) Vendor {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inmotion":
		return InMotion
	case "kingsong", "ks":
		return Kingsong
	case "gotway", "begode":
		return Gotway
	case "ninebot", "segway":
		return Ninebot
	case "veteran", "leaperkim":
		return Veteran
	case "possible-gotway", "possiblebegode", "possible-begode":
		return PossibleGotway
	}
	return Unknown
}
