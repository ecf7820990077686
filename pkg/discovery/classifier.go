package discovery

import (
	"regexp"

	"github.com/librescoot/euc-service/pkg/ble"
	"github.com/librescoot/euc-service/pkg/euc"
)

type namePattern struct {
	vendor euc.Vendor
	// full must match the whole name to decide the vendor.
	full *regexp.Regexp
	// partial marks the vendor as a candidate.
	partial *regexp.Regexp
}

// namePatterns are evaluated in order; the first full match decides.
var namePatterns = []namePattern{
	{
		vendor:  euc.InMotion,
		full:    regexp.MustCompile(`^V\d{1,2}[A-Za-z]+-[0-9A-Za-z]{8}$`),
		partial: regexp.MustCompile(`V\d{1,2}[A-Za-z]+-`),
	},
	{
		vendor:  euc.Kingsong,
		full:    regexp.MustCompile(`^KS-`),
		partial: regexp.MustCompile(`KS-`),
	},
	{
		vendor:  euc.Veteran,
		full:    regexp.MustCompile(`^LK\d{1,8}$`),
		partial: regexp.MustCompile(`LK\d`),
	},
	{
		vendor:  euc.Ninebot,
		full:    regexp.MustCompile(`^(Segway-)?Ninebot([ _-]?[0-9A-Za-z]+)*$`),
		partial: regexp.MustCompile(`Ninebot`),
	},
}

// Classification is the outcome of Classify.
type Classification struct {
	Vendor     euc.Vendor
	Candidates []euc.Vendor
}

// Classify decides the vendor of an advertisement. A name that fully matches
// a vendor pattern decides; otherwise the Begode service UUID decides
// Gotway, and anything else is PossibleGotway. Partial name matches are
// returned as candidates. Gotway accepts any name, so it only shows up as a
// candidate of a named PossibleGotway device.
func Classify(adv ble.Advertisement) Classification {
	var c Classification
	if adv.Name != "" {
		for _, p := range namePatterns {
			switch {
			case c.Vendor == euc.Unknown && p.full.MatchString(adv.Name):
				c.Vendor = p.vendor
			case p.partial.MatchString(adv.Name):
				c.Candidates = append(c.Candidates, p.vendor)
			}
		}
	}
	if c.Vendor != euc.Unknown {
		return c
	}

	if adv.HasService(ble.GotwayServiceUUID) {
		c.Vendor = euc.Gotway
		return c
	}
	c.Vendor = euc.PossibleGotway
	if adv.Name != "" {
		c.Candidates = append(c.Candidates, euc.Gotway)
	}
	return c
}
