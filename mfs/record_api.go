package mfs

import "mfs/model/record"

// ReadRecord returns id's current payload (spec section 4.6). The
// returned slice is a fresh copy the caller owns.
func (e *Engine) ReadRecord(id uint32) ([]byte, Result) {
	if e.state != StateMounted {
		e.log.Error("ReadRecord called outside mounted state", "state", e.state)
		return nil, InternalError
	}
	e.state = StateActive
	defer func() { e.state = StateMounted }()

	loc, ok := e.index.Get(id)
	if !ok {
		var found bool
		loc, found = e.backwardWalk(id)
		if !found {
			return nil, IdNotFound
		}
		e.index.Put(id, loc)
	}

	g := e.geometry(e.current)
	payload, err := e.cfg.Flash.Read(g.byteStart+loc.offset+record.HeaderSize, loc.size)
	if err != nil {
		e.log.Error("ReadRecord: read payload failed", "id", id, "err", err)
		return nil, FlashFailure
	}

	headerBuf, err := e.cfg.Flash.Read(g.byteStart+loc.offset, record.HeaderSize)
	if err != nil {
		e.log.Error("ReadRecord: read header failed", "id", id, "err", err)
		return nil, FlashFailure
	}
	rh := record.Decode(headerBuf)

	if crc16Checksum(payload, crc16Seed) != rh.CRC {
		return nil, CrcError
	}
	return payload, Ok
}

// UpdateRecord appends a new version of id's record, compacting to the
// other bank first if it would not otherwise fit (spec section 4.6).
// id must be non-zero and bytes must be non-empty; both are caller
// preconditions, not runtime conditions this engine reports as a Result.
func (e *Engine) UpdateRecord(id uint32, payload []byte) Result {
	if id == record.TombstoneID {
		panic("mfs: UpdateRecord id must not be zero")
	}
	if len(payload) == 0 {
		panic("mfs: UpdateRecord payload must not be empty")
	}
	if e.state != StateMounted {
		e.log.Error("UpdateRecord called outside mounted state", "state", e.state)
		return InternalError
	}
	e.state = StateActive
	defer func() { e.state = StateMounted }()

	size := uint32(len(payload))
	total := uint32(record.HeaderSize) + record.PaddedSize(size, e.granularity)

	warning := Ok
	g := e.geometry(e.current)
	if e.nextOffset+total > g.byteSize {
		if err := e.runGC(); err != nil {
			e.log.Error("UpdateRecord: gc failed", "id", id, "err", err)
			return FlashFailure
		}
		warning = GcWarning
		g = e.geometry(e.current)
		if e.nextOffset+total > g.byteSize {
			return FlashFailure
		}
	}

	rh := record.Header{
		Magic:      record.HeaderMagic,
		CRC:        crc16Checksum(payload, crc16Seed),
		ID:         id,
		Size:       size,
		PrevHeader: e.lastOffset,
	}
	paddedPayload := make([]byte, total-record.HeaderSize)
	copy(paddedPayload, payload)

	if err := e.programRecordLast(g.byteStart+e.nextOffset, rh, paddedPayload); err != nil {
		e.log.Error("UpdateRecord: program failed", "id", id, "err", err)
		return FlashFailure
	}

	e.lastOffset = e.nextOffset
	e.nextOffset += total
	e.usedSpace += total
	e.index.Put(id, recordLocation{offset: e.lastOffset, size: size})

	return warning
}

// EraseRecord tombstones id, removing it from the live view (spec section
// 4.6). id must be non-zero.
func (e *Engine) EraseRecord(id uint32) Result {
	if id == record.TombstoneID {
		panic("mfs: EraseRecord id must not be zero")
	}
	if e.state != StateMounted {
		e.log.Error("EraseRecord called outside mounted state", "state", e.state)
		return InternalError
	}
	e.state = StateActive
	defer func() { e.state = StateMounted }()

	if _, ok := e.index.Get(id); !ok {
		if _, found := e.backwardWalk(id); !found {
			return IdNotFound
		}
	}

	total := uint32(record.HeaderSize)
	warning := Ok
	g := e.geometry(e.current)
	if e.nextOffset+total > g.byteSize {
		if err := e.runGC(); err != nil {
			e.log.Error("EraseRecord: gc failed", "id", id, "err", err)
			return FlashFailure
		}
		warning = GcWarning
		g = e.geometry(e.current)
		if e.nextOffset+total > g.byteSize {
			return FlashFailure
		}
		if _, ok := e.index.Get(id); !ok {
			if _, found := e.backwardWalk(id); !found {
				return IdNotFound
			}
		}
	}

	rh := record.Header{
		Magic:      record.HeaderMagic,
		CRC:        0,
		ID:         id,
		Size:       0,
		PrevHeader: e.lastOffset,
	}
	if err := e.programRecordLast(g.byteStart+e.nextOffset, rh, nil); err != nil {
		e.log.Error("EraseRecord: program failed", "id", id, "err", err)
		return FlashFailure
	}

	e.lastOffset = e.nextOffset
	e.nextOffset += total
	e.usedSpace += total
	e.index.Remove(id)

	return warning
}

// runGC compacts the current bank into the other bank and makes the other
// bank current (spec section 4.6 step 1, the "Compact" invoked from
// update/erase rather than from mount).
func (e *Engine) runGC() error {
	g := e.geometry(e.current)
	scan, err := scanBank(e.cfg.Flash, g.byteStart, g.byteSize, e.granularity)
	if err != nil {
		return err
	}

	other := e.current.Other()
	src := g
	dst := e.geometry(other)

	cr, err := e.compact(src, dst, scan.entries, e.header.Counter, 0)
	if err != nil {
		return err
	}
	if err := e.eraseBank(src); err != nil {
		return err
	}
	e.setCurrentFromCompact(other, cr)
	return nil
}

// backwardWalk falls back to a linear walk of the header chain when id is
// not in the cache (spec section 4.5). It returns the first match walking
// backward from lastOffset, which is always the authoritative one.
func (e *Engine) backwardWalk(id uint32) (recordLocation, bool) {
	g := e.geometry(e.current)
	offset := e.lastOffset
	for offset != 0 {
		headerBuf, err := e.cfg.Flash.Read(g.byteStart+offset, record.HeaderSize)
		if err != nil {
			return recordLocation{}, false
		}
		rh := record.Decode(headerBuf)
		if rh.ID == id {
			if rh.IsTombstone() {
				return recordLocation{}, false
			}
			return recordLocation{offset: offset, size: rh.Size}, true
		}
		offset = rh.PrevHeader
	}
	return recordLocation{}, false
}
