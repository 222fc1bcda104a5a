// Package mfs implements a Managed Flash Storage engine: a dual-bank,
// log-structured, CRC-protected, wear-leveled record store for a raw
// flash-like device, with garbage collection and crash recovery on mount.
package mfs

import (
	"fmt"

	"github.com/charmbracelet/log"

	"mfs/flash"
	"mfs/model/bankid"
)

// EngineState is the driver's lifecycle state (spec section 4.7, C7).
type EngineState int

const (
	StateUninit EngineState = iota
	StateStop
	StateReady
	StateMounted
	// StateActive is entered for the duration of a read/update/erase
	// call and left before the call returns; it is observable only to
	// debug assertions, never to callers, matching spec section 4.7.
	StateActive
)

func (s EngineState) String() string {
	switch s {
	case StateUninit:
		return "uninit"
	case StateStop:
		return "stop"
	case StateReady:
		return "ready"
	case StateMounted:
		return "mounted"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Engine is an MFS driver instance. Unlike the teacher codebase's
// package-level singletons (GetBlockManager, GetConfig via sync.Once),
// an Engine is an explicit value the caller constructs, starts, and
// mounts — there is no module-level state (spec section 9).
//
// An Engine is not safe for concurrent use: it assumes the caller
// serializes every call, the same cooperative-single-threaded model the
// spec's concurrency section describes (section 5).
type Engine struct {
	state EngineState
	cfg   Config
	log   *log.Logger

	granularity uint32
	bank0       bankGeometry
	bank1       bankGeometry

	current    bankid.ID
	header     BankHeader
	nextOffset uint32
	lastOffset uint32
	usedSpace  uint32

	index *recordIndex
}

// NewEngine returns an Engine in the Uninit state, exactly as if it had
// just been declared. Call ObjectInit before Start.
func NewEngine() *Engine {
	return &Engine{state: StateUninit, log: newDiscardLogger()}
}

// SetLogger overrides the engine's logger. Passing nil restores the
// default discarding logger; tests and callers that don't care about
// observability never need to call this.
func (e *Engine) SetLogger(l *log.Logger) {
	if l == nil {
		l = newDiscardLogger()
	}
	e.log = l
}

// ObjectInit zeroes the instance and transitions Uninit -> Stop. It
// performs no flash I/O (spec section 4.7).
func (e *Engine) ObjectInit() {
	l := e.log
	if l == nil {
		l = newDiscardLogger()
	}
	*e = Engine{state: StateStop, log: l}
}

// Start validates config and transitions Stop -> Ready. It performs no
// flash I/O (spec section 4.7); Mount is what touches the device.
func (e *Engine) Start(cfg Config) error {
	if e.state != StateStop {
		return fmt.Errorf("mfs: Start called in state %s, want stop", e.state)
	}

	if cfg.Tunables == (Tunables{}) {
		cfg.Tunables = DefaultTunables()
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	bank0, err := newBankGeometry(cfg.Flash, cfg.Bank0Start, cfg.Bank0Sectors)
	if err != nil {
		return fmt.Errorf("mfs: bank0 geometry: %w", err)
	}
	bank1, err := newBankGeometry(cfg.Flash, cfg.Bank1Start, cfg.Bank1Sectors)
	if err != nil {
		return fmt.Errorf("mfs: bank1 geometry: %w", err)
	}

	e.cfg = cfg
	e.granularity = cfg.Flash.ProgramGranularity()
	e.bank0 = bank0
	e.bank1 = bank1
	e.index = newRecordIndex(cfg.Tunables.IDCacheSize)
	e.state = StateReady
	return nil
}

// Stop releases no dynamic resources (there are none to release); it
// transitions any later state back to Stop (spec section 4.7).
func (e *Engine) Stop() {
	e.state = StateStop
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() EngineState {
	return e.state
}

func newBankGeometry(a flash.Adapter, sectorStart, sectorCount uint32) (bankGeometry, error) {
	byteStart, _, err := a.SectorBounds(sectorStart)
	if err != nil {
		return bankGeometry{}, err
	}
	byteSize, err := sectorRangeBytes(a, sectorStart, sectorCount)
	if err != nil {
		return bankGeometry{}, err
	}
	return bankGeometry{
		sectorStart: sectorStart,
		sectorCount: sectorCount,
		byteStart:   byteStart,
		byteSize:    byteSize,
	}, nil
}

func (e *Engine) geometry(id bankid.ID) bankGeometry {
	if id == bankid.Bank0 {
		return e.bank0
	}
	return e.bank1
}
