package ble

// ADType is the type byte of an advertising data structure.
type ADType uint8

const (
	ADIncomplete16BitUUIDs  ADType = 0x02
	ADComplete16BitUUIDs    ADType = 0x03
	ADIncomplete128BitUUIDs ADType = 0x06
	ADComplete128BitUUIDs   ADType = 0x07
	ADShortLocalName        ADType = 0x08
	ADCompleteLocalName     ADType = 0x09
)

// Service and characteristic UUIDs used by the supported wheels.
const (
	InMotionServiceUUID = "6E400001-B5A3-F393-E0A9-E50E24DCCA9E"
	InMotionWriteUUID   = "6E400002-B5A3-F393-E0A9-E50E24DCCA9E"
	InMotionNotifyUUID  = "6E400003-B5A3-F393-E0A9-E50E24DCCA9E"
	KingsongServiceUUID = "0000FFE0-0000-1000-8000-00805F9B34FB"
	KingsongCharUUID    = "0000FFE1-0000-1000-8000-00805F9B34FB"
	GotwayServiceUUID   = "0000FFF0-0000-1000-8000-00805F9B34FB"
	GotwayCharUUID      = "0000FFF1-0000-1000-8000-00805F9B34FB"
	NinebotServiceUUID  = KingsongServiceUUID
	NinebotCharUUID     = KingsongCharUUID
	VeteranServiceUUID  = GotwayServiceUUID
	VeteranCharUUID     = GotwayCharUUID
)

// Characteristic describes a GATT characteristic and its properties.
type Characteristic struct {
	UUID        string
	Name        string
	IsReadable  bool
	IsWritable  bool
	IsNotifying bool
}

// Profile is the GATT surface a codec talks through: one service, one
// characteristic for notifications and one for writes (often the same).
type Profile struct {
	Service string
	Notify  Characteristic
	Write   Characteristic
}

var (
	InMotionProfile = Profile{
		Service: InMotionServiceUUID,
		Notify:  Characteristic{UUID: InMotionNotifyUUID, Name: "InMotion TX", IsNotifying: true},
		Write:   Characteristic{UUID: InMotionWriteUUID, Name: "InMotion RX", IsWritable: true},
	}

	KingsongProfile = Profile{
		Service: KingsongServiceUUID,
		Notify:  Characteristic{UUID: KingsongCharUUID, Name: "Kingsong Data", IsReadable: true, IsWritable: true, IsNotifying: true},
		Write:   Characteristic{UUID: KingsongCharUUID, Name: "Kingsong Data", IsReadable: true, IsWritable: true, IsNotifying: true},
	}

	GotwayProfile = Profile{
		Service: GotwayServiceUUID,
		Notify:  Characteristic{UUID: GotwayCharUUID, Name: "Begode Data", IsReadable: true, IsWritable: true, IsNotifying: true},
		Write:   Characteristic{UUID: GotwayCharUUID, Name: "Begode Data", IsReadable: true, IsWritable: true, IsNotifying: true},
	}

	NinebotProfile = Profile{
		Service: NinebotServiceUUID,
		Notify:  Characteristic{UUID: NinebotCharUUID, Name: "Ninebot Data", IsReadable: true, IsWritable: true, IsNotifying: true},
		Write:   Characteristic{UUID: NinebotCharUUID, Name: "Ninebot Data", IsReadable: true, IsWritable: true, IsNotifying: true},
	}

	VeteranProfile = Profile{
		Service: VeteranServiceUUID,
		Notify:  Characteristic{UUID: VeteranCharUUID, Name: "Veteran Data", IsReadable: true, IsWritable: true, IsNotifying: true},
		Write:   Characteristic{UUID: VeteranCharUUID, Name: "Veteran Data", IsReadable: true, IsWritable: true, IsNotifying: true},
	}
)

// KnownServices lists every vendor service UUID, used by radios that can
// only test for service presence rather than enumerate advertised UUIDs.
var KnownServices = []string{
	InMotionServiceUUID,
	KingsongServiceUUID,
	GotwayServiceUUID,
}
