// Package flash defines the collaborator the MFS engine expects from the
// underlying storage medium, plus reference implementations used to test
// and demonstrate the engine.
//
// The real flash driver is out of scope for the engine itself (spec
// purpose/scope, "external collaborators") — an embedding system supplies
// its own Adapter wrapping a NOR flash controller. The implementations in
// this package (Memory, File) exist so the engine has something concrete
// to mount, scan, and compact against in tests.
package flash

import "errors"

// ErrVerifyFailed is returned by Program when write-back verification
// detects that the bytes read back do not match what was requested.
var ErrVerifyFailed = errors.New("flash: program verify failed")

// ErrOutOfRange is returned when an operation addresses bytes outside the
// adapter's backing storage.
var ErrOutOfRange = errors.New("flash: address out of range")

// ErrOneWayViolation is returned by simulated adapters when a program call
// would change a byte that no longer holds the erased value, which real
// NOR/NAND flash does not support without an erase.
var ErrOneWayViolation = errors.New("flash: cannot program over non-erased bytes")

// Erased is the byte value flash reads as after an erase.
const Erased byte = 0xFF

// Adapter is the abstraction the MFS engine programs against. An Adapter
// instance owns a flat address space divided into equal-size sectors; the
// engine addresses it by sector index for erase, and by absolute byte
// offset for program/read.
//
// Implementations MUST honor the one-way-writable property: a byte can
// only move from the erased value (0xFF) to some other value; programming
// a byte that already holds a different value is undefined on real flash,
// and reference implementations in this package reject it with
// ErrOneWayViolation so tests catch layout bugs that would corrupt real
// hardware.
type Adapter interface {
	// SectorBounds returns the byte offset and size of sector i.
	SectorBounds(sector uint32) (offset uint32, size uint32, err error)

	// SectorCount reports the total number of sectors the adapter manages.
	SectorCount() uint32

	// EraseSector resets every byte of sector i to Erased.
	EraseSector(sector uint32) error

	// Program writes data at offset. If the adapter is configured to
	// verify writes, it reads the range back afterward and returns
	// ErrVerifyFailed on mismatch.
	Program(offset uint32, data []byte) error

	// Read returns a copy of length bytes starting at offset.
	Read(offset uint32, length uint32) ([]byte, error)

	// ProgramGranularity is the minimum number of bytes the device can
	// program atomically; record headers and payloads are padded to this
	// boundary so the next header is always aligned.
	ProgramGranularity() uint32
}
