package ble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdvertisementNameAndShortUUID(t *testing.T) {
	raw := []byte{
		0x02, 0x01, 0x06, // flags
		0x03, 0x03, 0xF0, 0xFF, // complete 16-bit: FFF0
		0x0E, 0x09, 'V', '1', '0', 'F', '-', 'A', 'E', '8', '6', '0', '2', '7', 'D',
	}
	adv := ParseAdvertisement(raw)
	assert.Equal(t, "V10F-AE86027D", adv.Name)
	assert.Equal(t, []string{GotwayServiceUUID}, adv.ServiceUUIDs)
	assert.True(t, adv.HasService("0000fff0-0000-1000-8000-00805f9b34fb"))
}

func TestParseAdvertisement128BitIsReversed(t *testing.T) {
	// 6E400001-B5A3-F393-E0A9-E50E24DCCA9E on the wire, LSB first.
	wire := []byte{
		0x9E, 0xCA, 0xDC, 0x24, 0x0E, 0xE5, 0xA9, 0xE0,
		0x93, 0xF3, 0xA3, 0xB5, 0x01, 0x00, 0x40, 0x6E,
	}
	raw := append([]byte{0x11, 0x07}, wire...)
	adv := ParseAdvertisement(raw)
	require.Len(t, adv.ServiceUUIDs, 1)
	assert.Equal(t, InMotionServiceUUID, adv.ServiceUUIDs[0])
}

func TestParseAdvertisementStopsAtMalformedRecord(t *testing.T) {
	raw := []byte{0x04, 0x09, 'L', 'K', '1', 0x09, 0x03, 0xF0}
	adv := ParseAdvertisement(raw)
	assert.Equal(t, "LK1", adv.Name)
	assert.Empty(t, adv.ServiceUUIDs)

	assert.Equal(t, Advertisement{}, ParseAdvertisement(nil))
	assert.Equal(t, Advertisement{}, ParseAdvertisement([]byte{0x00, 0x09}))
}

func TestBuildAdvertisementRoundTrip(t *testing.T) {
	raw := BuildAdvertisement("KS-16X", []string{KingsongServiceUUID, InMotionServiceUUID})
	adv := ParseAdvertisement(raw)
	assert.Equal(t, "KS-16X", adv.Name)
	assert.Equal(t, []string{KingsongServiceUUID, InMotionServiceUUID}, adv.ServiceUUIDs)
}

func TestNormalizeUUID(t *testing.T) {
	got, err := NormalizeUUID("fff0")
	require.NoError(t, err)
	assert.Equal(t, GotwayServiceUUID, got)

	got, err = NormalizeUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	require.NoError(t, err)
	assert.Equal(t, InMotionServiceUUID, got)

	_, err = NormalizeUUID("nope")
	assert.Error(t, err)
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("F8:33:31:DD:5C:32")
	require.NoError(t, err)
	assert.Equal(t, "f8:33:31:dd:5c:32", got)

	_, err = NormalizeAddress("f8:33:31:dd:5c")
	assert.Error(t, err)
	_, err = NormalizeAddress("00:00:00:00:fe:80:00:00")
	assert.Error(t, err)
}
