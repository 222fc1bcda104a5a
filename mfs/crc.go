package mfs

import "mfs/internal/crc16"

// crc16Seed is the seed shared by every CRC-16 computation in this package
// (bank headers, record headers, payloads). Spec section 6: "CRC-16 uses
// the CCITT polynomial with the same seed used by the flash adapter
// helper... must be consistent between writer and reader" — fixing one
// package-wide seed is what makes that consistency automatic.
var crc16Seed = crc16.Seed()

func crc16Checksum(data []byte, seed uint16) uint16 {
	return crc16.Checksum(data, seed)
}
