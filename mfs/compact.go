package mfs

import (
	"bytes"
	"fmt"

	"mfs/flash"
	"mfs/model/record"
)

// bankGeometry is a bank's sector range translated once into byte terms,
// so the rest of the package never has to re-derive it from Adapter calls.
type bankGeometry struct {
	sectorStart uint32
	sectorCount uint32
	byteStart   uint32
	byteSize    uint32
}

func (e *Engine) verifiedProgram(offset uint32, data []byte) error {
	if err := e.cfg.Flash.Program(offset, data); err != nil {
		return err
	}
	if !e.cfg.Tunables.WriteVerify {
		return nil
	}
	got, err := e.cfg.Flash.Read(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	if !bytes.Equal(got, data) {
		return fmt.Errorf("mfs: verify at %d: %w", offset, flash.ErrVerifyFailed)
	}
	return nil
}

// programRecordLast writes a record's non-magic fields and payload first,
// then its magic value last (spec sections 5 and 9: magic is a MUST be the
// last field programmed). Flash bits only move from erased (all 1s) toward
// their programmed value, never back, so leaving the magic bytes untouched
// until the body is durably written means a crash in between leaves them
// still reading 0xFFFF — scanBank's erased-terminator check then correctly
// classifies the bank PARTIAL instead of accepting a header whose magic
// validates but whose body is garbage.
func (e *Engine) programRecordLast(offset uint32, rh record.Header, paddedPayload []byte) error {
	body := rh.EncodeWithoutMagic()
	rest := make([]byte, 0, len(body)-record.MagicSize+len(paddedPayload))
	rest = append(rest, body[record.MagicSize:]...)
	rest = append(rest, paddedPayload...)
	if err := e.verifiedProgram(offset+record.MagicSize, rest); err != nil {
		return err
	}
	return e.verifiedProgram(offset, record.MagicBytes())
}

func (e *Engine) eraseBank(g bankGeometry) error {
	for s := g.sectorStart; s < g.sectorStart+g.sectorCount; s++ {
		if err := e.cfg.Flash.EraseSector(s); err != nil {
			return fmt.Errorf("mfs: erase sector %d: %w", s, err)
		}
	}
	return nil
}

// liveEntries filters a bank's raw scan entries down to the chronological,
// deduplicated set of entries whose id they are still authoritative for,
// dropping tombstones — the "build the live view from src" step shared by
// Compact and repair (spec section 4.4, Compact step 3).
func liveEntries(entries []scanEntry) []scanEntry {
	latest := make(map[uint32]int, len(entries))
	for i, e := range entries {
		latest[e.id] = i
	}

	live := make([]scanEntry, 0, len(entries))
	for i, e := range entries {
		if latest[e.id] != i {
			continue
		}
		if e.size == 0 {
			continue
		}
		live = append(live, e)
	}
	return live
}

// compactResult is the new state of the destination bank after a
// successful Compact.
type compactResult struct {
	header     BankHeader
	entries    []scanEntry
	nextOffset uint32
	lastOffset uint32
	usedSpace  uint32
}

// compact copies the live records of src into dst, making dst the new
// current bank (spec section 4.4, "Compact(src, dst)"). dst is erased
// first and its header is written before any record is copied, so that a
// crash mid-compaction always leaves dst classified PARTIAL and src
// untouched and still authoritative (spec section 5).
//
// compact does not erase src on success; the caller does that only after
// confirming compact returned without error, matching the spec's "on
// success, erase src" as the final, separate step.
func (e *Engine) compact(src, dst bankGeometry, srcEntries []scanEntry, srcCounter, dstExistingCounter uint32) (compactResult, error) {
	newCounter := srcCounter
	if dstExistingCounter > newCounter {
		newCounter = dstExistingCounter
	}
	newCounter++

	if err := e.eraseBank(dst); err != nil {
		return compactResult{}, err
	}

	live := liveEntries(srcEntries)

	dataStart := record.PaddedSize(BankHeaderCoreSize, e.granularity)
	header := BankHeader{Magic1: BankMagic1, Magic2: BankMagic2, Counter: newCounter, Next: dataStart}
	if err := e.verifiedProgram(dst.byteStart, header.Encode(crc16Seed)); err != nil {
		return compactResult{}, fmt.Errorf("mfs: program bank header: %w", err)
	}

	offset := dataStart
	lastOffset := uint32(0)
	used := dataStart
	newEntries := make([]scanEntry, 0, len(live))

	for _, le := range live {
		payload, err := e.cfg.Flash.Read(src.byteStart+le.offset+record.HeaderSize, le.size)
		if err != nil {
			return compactResult{}, fmt.Errorf("mfs: read live payload for id %d: %w", le.id, err)
		}

		rh := record.Header{
			Magic:      record.HeaderMagic,
			CRC:        crc16Checksum(payload, crc16Seed),
			ID:         le.id,
			Size:       le.size,
			PrevHeader: lastOffset,
		}

		padded := record.PaddedSize(le.size, e.granularity)
		total := uint32(record.HeaderSize) + padded

		paddedPayload := make([]byte, padded)
		copy(paddedPayload, payload)

		if err := e.programRecordLast(dst.byteStart+offset, rh, paddedPayload); err != nil {
			return compactResult{}, fmt.Errorf("mfs: program record id %d: %w", le.id, err)
		}

		newEntries = append(newEntries, scanEntry{id: le.id, offset: offset, size: le.size})
		lastOffset = offset
		used += total
		offset += total
	}

	return compactResult{
		header:     header,
		entries:    newEntries,
		nextOffset: offset,
		lastOffset: lastOffset,
		usedSpace:  used,
	}, nil
}
