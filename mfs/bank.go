package mfs

import "encoding/binary"

// BankMagic1 and BankMagic2 identify a valid MFS bank header. Two separate
// 32-bit constants, rather than one 64-bit one, match the original driver's
// struct layout and give a scan two independent chances to reject garbage
// before it even looks at the CRC.
const (
	BankMagic1 uint32 = 0xEC705ADE
	BankMagic2 uint32 = 0xF0339CC5
)

// Bank header field sizes and offsets, in on-flash order.
const (
	bankMagic1Size  = 4
	bankMagic2Size  = 4
	bankCounterSize = 4
	bankNextSize    = 4
	bankCRCSize     = 2

	bankMagic1Start  = 0
	bankMagic2Start  = bankMagic1Start + bankMagic1Size
	bankCounterStart = bankMagic2Start + bankMagic2Size
	bankNextStart    = bankCounterStart + bankCounterSize
	bankCRCStart     = bankNextStart + bankNextSize

	// BankHeaderCoreSize is the number of bytes actually covered by the
	// bank header fields, before alignment padding.
	BankHeaderCoreSize = bankCRCStart + bankCRCSize
)

// BankHeader is the fixed structure at the start of every bank (spec
// section 3, "Bank header"). It is written exactly once per bank
// lifetime, immediately after the bank is erased to become current.
type BankHeader struct {
	Magic1  uint32
	Magic2  uint32
	Counter uint32
	Next    uint32
	CRC     uint16
}

// IsValidMagic reports whether both magic fields match the constants a
// genuine MFS bank header carries.
func (h BankHeader) IsValidMagic() bool {
	return h.Magic1 == BankMagic1 && h.Magic2 == BankMagic2
}

// encodeWithoutCRC returns the header fields that the CRC covers, in their
// on-flash positions.
func (h BankHeader) encodeWithoutCRC() []byte {
	buf := make([]byte, bankCRCStart)
	binary.LittleEndian.PutUint32(buf[bankMagic1Start:], h.Magic1)
	binary.LittleEndian.PutUint32(buf[bankMagic2Start:], h.Magic2)
	binary.LittleEndian.PutUint32(buf[bankCounterStart:], h.Counter)
	binary.LittleEndian.PutUint32(buf[bankNextStart:], h.Next)
	return buf
}

// Encode serializes the bank header, including its CRC, into a
// BankHeaderCoreSize-byte little-endian buffer. CRC is computed fresh from
// the other fields, so a caller never has to keep h.CRC in sync by hand.
func (h BankHeader) Encode(seed uint16) []byte {
	body := h.encodeWithoutCRC()
	crc := crc16Checksum(body, seed)
	buf := make([]byte, BankHeaderCoreSize)
	copy(buf, body)
	binary.LittleEndian.PutUint16(buf[bankCRCStart:], crc)
	return buf
}

// DecodeBankHeader parses a BankHeaderCoreSize-byte buffer. It does not
// validate the magics or the CRC; callers check those with IsValidMagic
// and VerifyCRC against the scan context.
func DecodeBankHeader(buf []byte) BankHeader {
	return BankHeader{
		Magic1:  binary.LittleEndian.Uint32(buf[bankMagic1Start:]),
		Magic2:  binary.LittleEndian.Uint32(buf[bankMagic2Start:]),
		Counter: binary.LittleEndian.Uint32(buf[bankCounterStart:]),
		Next:    binary.LittleEndian.Uint32(buf[bankNextStart:]),
		CRC:     binary.LittleEndian.Uint16(buf[bankCRCStart:]),
	}
}

// VerifyCRC reports whether h.CRC matches the CRC computed over h's other
// fields with the given seed.
func (h BankHeader) VerifyCRC(seed uint16) bool {
	return crc16Checksum(h.encodeWithoutCRC(), seed) == h.CRC
}
