package mfs

import (
	"fmt"

	retry "github.com/avast/retry-go"

	"mfs/model/bankid"
	"mfs/model/record"
)

// mountPlan is the decision a mount resolves to, computed purely from the
// two banks' classifications (spec section 4.4's outcome table). Applying
// the plan is a separate step, since applying can fail partway through and
// needs to be retried; deciding never does.
type mountPlan struct {
	kind       mountPlanKind
	current    bankid.ID
	recoverSrc bankid.ID
	warning    bool
}

type mountPlanKind int

const (
	planFormatFresh mountPlanKind = iota
	planUseAsIs
	planEraseOther
	planRecover
)

// resolveMountPlan implements spec section 4.4's outcome table. Pairs the
// table does not name are resolved by symmetry where a bank holds data:
// GARBAGE/OK keeps bank 1 and erases bank 0, and GARBAGE/PARTIAL recovers
// bank 1 into bank 0. ERASED/GARBAGE and GARBAGE/ERASED are resolved the
// same way as GARBAGE/GARBAGE (reformat bank 0), since neither bank holds
// recoverable data.
func resolveMountPlan(s0, s1 scanResult) mountPlan {
	switch {
	case s0.state == ClassErased && s1.state == ClassErased:
		return mountPlan{kind: planFormatFresh, current: bankid.Bank0}

	case s0.state == ClassErased && s1.state == ClassOK:
		return mountPlan{kind: planUseAsIs, current: bankid.Bank1}
	case s0.state == ClassOK && s1.state == ClassErased:
		return mountPlan{kind: planUseAsIs, current: bankid.Bank0}

	case s0.state == ClassErased && s1.state == ClassPartial:
		return mountPlan{kind: planRecover, current: bankid.Bank0, recoverSrc: bankid.Bank1, warning: true}
	case s0.state == ClassPartial && s1.state == ClassErased:
		return mountPlan{kind: planRecover, current: bankid.Bank1, recoverSrc: bankid.Bank0, warning: true}

	case s0.state == ClassOK && s1.state == ClassOK:
		if s1.header.Counter > s0.header.Counter {
			return mountPlan{kind: planEraseOther, current: bankid.Bank1, warning: true}
		}
		return mountPlan{kind: planEraseOther, current: bankid.Bank0, warning: true}

	case s0.state == ClassOK && (s1.state == ClassPartial || s1.state == ClassGarbage):
		return mountPlan{kind: planEraseOther, current: bankid.Bank0, warning: true}
	case s1.state == ClassOK && (s0.state == ClassPartial || s0.state == ClassGarbage):
		return mountPlan{kind: planEraseOther, current: bankid.Bank1, warning: true}

	case s0.state == ClassPartial:
		return mountPlan{kind: planRecover, current: bankid.Bank1, recoverSrc: bankid.Bank0, warning: true}
	case s1.state == ClassPartial:
		return mountPlan{kind: planRecover, current: bankid.Bank0, recoverSrc: bankid.Bank1, warning: true}

	default:
		return mountPlan{kind: planFormatFresh, current: bankid.Bank0, warning: true}
	}
}

// Mount scans both banks, repairs or reformats as needed, and populates the
// record index (spec section 4.7). It is idempotent: calling it again
// while already Mounted returns Ok without re-scanning.
func (e *Engine) Mount() Result {
	if e.state == StateMounted {
		return Ok
	}
	if e.state != StateReady {
		e.log.Error("mount called outside ready state", "state", e.state)
		return InternalError
	}

	scan0, err := scanBank(e.cfg.Flash, e.bank0.byteStart, e.bank0.byteSize, e.granularity)
	if err != nil {
		e.log.Error("mount: scan bank0 failed", "err", err)
		return FlashFailure
	}
	scan1, err := scanBank(e.cfg.Flash, e.bank1.byteStart, e.bank1.byteSize, e.granularity)
	if err != nil {
		e.log.Error("mount: scan bank1 failed", "err", err)
		return FlashFailure
	}

	plan := resolveMountPlan(scan0, scan1)

	attempts := uint(e.cfg.Tunables.MaxRepairAttempts)
	err = retry.Do(
		func() error { return e.applyMountPlan(plan, scan0, scan1) },
		retry.Attempts(attempts),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		e.log.Error("mount: exceeded repair attempts", "attempts", attempts, "err", err)
		return InternalError
	}

	e.state = StateMounted
	if plan.warning {
		e.log.Warn("mount repaired a bank", "current", e.current, "counter", e.header.Counter)
		return RepairWarning
	}
	e.log.Info("mount ok", "current", e.current, "counter", e.header.Counter)
	return Ok
}

func (e *Engine) applyMountPlan(plan mountPlan, scan0, scan1 scanResult) error {
	switch plan.kind {
	case planFormatFresh:
		if err := e.eraseBank(e.bank0); err != nil {
			return err
		}
		if err := e.eraseBank(e.bank1); err != nil {
			return err
		}
		g := e.geometry(plan.current)
		dataStart := record.PaddedSize(BankHeaderCoreSize, e.granularity)
		header := BankHeader{Magic1: BankMagic1, Magic2: BankMagic2, Counter: 1, Next: dataStart}
		if err := e.verifiedProgram(g.byteStart, header.Encode(crc16Seed)); err != nil {
			return fmt.Errorf("mfs: format bank %s: %w", plan.current, err)
		}
		e.setCurrentFresh(plan.current, header, dataStart)
		return nil

	case planUseAsIs:
		e.setCurrentFromScan(plan.current, e.scanFor(plan.current, scan0, scan1))
		return nil

	case planEraseOther:
		other := plan.current.Other()
		if err := e.eraseBank(e.geometry(other)); err != nil {
			return err
		}
		e.setCurrentFromScan(plan.current, e.scanFor(plan.current, scan0, scan1))
		return nil

	case planRecover:
		srcScan := e.scanFor(plan.recoverSrc, scan0, scan1)
		src := e.geometry(plan.recoverSrc)
		dst := e.geometry(plan.current)
		cr, err := e.compact(src, dst, srcScan.entries, srcScan.header.Counter, 0)
		if err != nil {
			return err
		}
		if err := e.eraseBank(src); err != nil {
			return err
		}
		e.setCurrentFromCompact(plan.current, cr)
		return nil

	default:
		return fmt.Errorf("mfs: unknown mount plan kind %d", plan.kind)
	}
}

func (e *Engine) scanFor(id bankid.ID, scan0, scan1 scanResult) scanResult {
	if id == bankid.Bank0 {
		return scan0
	}
	return scan1
}

func (e *Engine) setCurrentFresh(id bankid.ID, header BankHeader, dataStart uint32) {
	e.current = id
	e.header = header
	e.nextOffset = dataStart
	e.lastOffset = 0
	e.usedSpace = dataStart
	e.index.Reset()
}

func (e *Engine) setCurrentFromScan(id bankid.ID, s scanResult) {
	e.current = id
	e.header = s.header
	e.nextOffset = s.nextOffset
	e.lastOffset = s.lastOffset
	e.usedSpace = s.usedSpace
	e.rebuildIndex(s.entries)
}

func (e *Engine) setCurrentFromCompact(id bankid.ID, cr compactResult) {
	e.current = id
	e.header = cr.header
	e.nextOffset = cr.nextOffset
	e.lastOffset = cr.lastOffset
	e.usedSpace = cr.usedSpace
	e.index.Reset()
	for _, ent := range cr.entries {
		e.index.Put(ent.id, recordLocation{offset: ent.offset, size: ent.size})
	}
}

func (e *Engine) rebuildIndex(entries []scanEntry) {
	e.index.Reset()
	for _, ent := range liveEntries(entries) {
		e.index.Put(ent.id, recordLocation{offset: ent.offset, size: ent.size})
	}
}

// Unmount transitions Mounted -> Ready. Calling it when not mounted is a
// no-op that returns Ok.
func (e *Engine) Unmount() Result {
	if e.state != StateMounted {
		return Ok
	}
	e.state = StateReady
	return Ok
}
