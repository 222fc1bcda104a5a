// Package record defines the on-flash record header that precedes every
// payload in an MFS bank, and its wire encoding.
package record

import "encoding/binary"

// HeaderMagic identifies a valid record header. It must be the last field
// programmed when writing a header (see the interrupted-write design
// note): a header whose magic reads back correctly but whose other fields
// are garbage would otherwise be mistaken for a complete record.
const HeaderMagic uint16 = 0x5FAE

// TombstoneID is never a valid application-assigned identifier. Erasing id
// X appends a header with ID == X and Size == 0; because 0 can never be a
// live id, there is no ambiguity between an "id 0" tombstone scheme and a
// "size 0" tombstone scheme for any id an application can actually use.
const TombstoneID uint32 = 0

// Field sizes, in the order they appear on flash.
const (
	MagicSize      = 2
	CRCSize        = 2
	IDSize         = 4
	SizeSize       = 4
	PrevHeaderSize = 4

	MagicStart      = 0
	CRCStart        = MagicStart + MagicSize
	IDStart         = CRCStart + CRCSize
	SizeStart       = IDStart + IDSize
	PrevHeaderStart = SizeStart + SizeSize

	// HeaderSize is the total size of a serialized record header, not
	// including payload or alignment padding.
	HeaderSize = PrevHeaderStart + PrevHeaderSize
)

// Header is the fixed-size structure placed immediately before every
// record payload in a bank's append-only log.
//
//	+--------+------+--------+--------+-------------+
//	| Magic  | CRC  |   ID   |  Size  | PrevHeader  |
//	| 2B     | 2B   |   4B   |  4B    |  4B         |
//	+--------+------+--------+--------+-------------+
//
// CRC covers the payload only, not the header fields themselves (spec
// section 4.2); a corrupted header is instead detected by Magic or by the
// chain it produces failing to resolve.
type Header struct {
	Magic      uint16
	CRC        uint16
	ID         uint32
	Size       uint32
	PrevHeader uint32
}

// IsTombstone reports whether this header marks id's erasure rather than
// carrying a live payload.
func (h Header) IsTombstone() bool {
	return h.Size == 0
}

// Encode serializes the header into a HeaderSize-byte little-endian
// buffer.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[MagicStart:], h.Magic)
	binary.LittleEndian.PutUint16(buf[CRCStart:], h.CRC)
	binary.LittleEndian.PutUint32(buf[IDStart:], h.ID)
	binary.LittleEndian.PutUint32(buf[SizeStart:], h.Size)
	binary.LittleEndian.PutUint32(buf[PrevHeaderStart:], h.PrevHeader)
	return buf
}

// EncodeWithoutMagic returns the header fields other than Magic, in their
// on-flash positions, with the Magic field left as zero bytes. Paired with
// MagicBytes, this lets a writer program the body first and the magic
// second, so an interrupted program never leaves a header whose magic
// validates but whose body is garbage.
func (h Header) EncodeWithoutMagic() []byte {
	buf := h.Encode()
	buf[MagicStart] = 0
	buf[MagicStart+1] = 0
	return buf
}

// MagicBytes returns HeaderMagic encoded as it appears on flash.
func MagicBytes() []byte {
	buf := make([]byte, MagicSize)
	binary.LittleEndian.PutUint16(buf, HeaderMagic)
	return buf
}

// Decode parses a HeaderSize-byte buffer into a Header. It does not
// validate Magic or CRC; callers validate those against the surrounding
// scan context (see package mfs's scanner).
func Decode(buf []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint16(buf[MagicStart:]),
		CRC:        binary.LittleEndian.Uint16(buf[CRCStart:]),
		ID:         binary.LittleEndian.Uint32(buf[IDStart:]),
		Size:       binary.LittleEndian.Uint32(buf[SizeStart:]),
		PrevHeader: binary.LittleEndian.Uint32(buf[PrevHeaderStart:]),
	}
}

// PaddedSize rounds size up to the next multiple of granularity, the way
// payloads are padded so the following header stays aligned to the flash
// program granularity (spec section 4.2).
func PaddedSize(size, granularity uint32) uint32 {
	if granularity <= 1 {
		return size
	}
	rem := size % granularity
	if rem == 0 {
		return size
	}
	return size + (granularity - rem)
}
