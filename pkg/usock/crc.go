package usock

// CRC-16/ARC: reflected polynomial 0xA001, zero init, no final xor.
var crc16Table [256]uint16

func init() {
	for i := range crc16Table {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
		crc16Table[i] = crc
	}
}

// CRC16 returns the CRC-16/ARC of data.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc>>8 ^ crc16Table[byte(crc)^b]
	}
	return crc
}
