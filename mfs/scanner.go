package mfs

import (
	"fmt"

	"mfs/flash"
	"mfs/model/record"
)

// Classification is the result of scanning a single bank (spec section 3,
// "Bank classification").
type Classification int

const (
	// ClassErased means every byte of the header region reads as 0xFF.
	ClassErased Classification = iota
	// ClassOK means the header and every record in the chain are valid.
	ClassOK
	// ClassPartial means the header is valid but the chain ends in a
	// corrupted or partially written header or payload.
	ClassPartial
	// ClassGarbage means the header itself is invalid and the bank is
	// not fully erased.
	ClassGarbage
)

func (c Classification) String() string {
	switch c {
	case ClassErased:
		return "erased"
	case ClassOK:
		return "ok"
	case ClassPartial:
		return "partial"
	case ClassGarbage:
		return "garbage"
	default:
		return "unknown"
	}
}

// scanEntry is one accepted record header, in the order the scan
// encountered it (oldest first). Several entries may share an id; the
// last one in the slice is authoritative.
type scanEntry struct {
	id     uint32
	offset uint32
	size   uint32
}

// scanResult is everything a bank scan discovers (spec section 4.3, C3).
// All offsets are relative to the bank's own start, not the flash
// device's absolute address space.
type scanResult struct {
	state      Classification
	header     BankHeader
	nextOffset uint32
	lastOffset uint32
	usedSpace  uint32
	entries    []scanEntry
}

// erasedTerminator is the magic value a fully-erased record slot reads
// back as: two 0xFF bytes, i.e. the uint16 read as all-ones.
const erasedTerminator uint16 = 0xFFFF

// scanBank walks one bank on a (start, size) byte range and classifies it.
// It never writes to the adapter; it is the single source of truth for
// bank state (spec section 4.3).
func scanBank(a flash.Adapter, start, size, granularity uint32) (scanResult, error) {
	headerBuf, err := a.Read(start, BankHeaderCoreSize)
	if err != nil {
		return scanResult{}, fmt.Errorf("mfs: read bank header at %d: %w", start, err)
	}

	if allErased(headerBuf) {
		return scanResult{
			state:      ClassErased,
			nextOffset: record.PaddedSize(BankHeaderCoreSize, granularity),
		}, nil
	}

	header := DecodeBankHeader(headerBuf)
	if !header.IsValidMagic() || !header.VerifyCRC(crc16Seed) {
		return scanResult{state: ClassGarbage}, nil
	}

	result := scanResult{state: ClassOK, header: header, usedSpace: header.Next}

	offset := header.Next
	for {
		if offset >= size {
			result.nextOffset = offset
			break
		}
		if offset+record.HeaderSize > size {
			result.state = ClassPartial
			result.nextOffset = offset
			break
		}

		headerBytes, err := a.Read(start+offset, record.HeaderSize)
		if err != nil {
			return scanResult{}, fmt.Errorf("mfs: read record header at %d: %w", start+offset, err)
		}

		rh := record.Decode(headerBytes)

		if rh.Magic == erasedTerminator {
			if allErased(headerBytes) {
				result.nextOffset = offset
				break
			}
			result.state = ClassPartial
			result.nextOffset = offset
			break
		}

		if rh.Magic != record.HeaderMagic {
			result.state = ClassPartial
			result.nextOffset = offset
			break
		}

		padded := record.PaddedSize(rh.Size, granularity)
		recordTotal := uint32(record.HeaderSize) + padded
		if offset+recordTotal > size {
			result.state = ClassPartial
			result.nextOffset = offset
			break
		}

		if rh.Size > 0 {
			payload, err := a.Read(start+offset+record.HeaderSize, rh.Size)
			if err != nil {
				return scanResult{}, fmt.Errorf("mfs: read payload at %d: %w", start+offset+record.HeaderSize, err)
			}
			if crc16Checksum(payload, crc16Seed) != rh.CRC {
				result.state = ClassPartial
				result.nextOffset = offset
				break
			}
		}

		result.entries = append(result.entries, scanEntry{id: rh.ID, offset: offset, size: rh.Size})
		result.lastOffset = offset
		result.usedSpace += recordTotal
		offset += recordTotal
	}

	return result, nil
}

func allErased(buf []byte) bool {
	for _, b := range buf {
		if b != flash.Erased {
			return false
		}
	}
	return true
}
