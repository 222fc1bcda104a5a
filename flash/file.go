package flash

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is an Adapter backed by a regular file on disk, standing in for a
// memory-mapped NOR part. Every Program call is read back and compared
// when verifyWrites is set, matching spec section 4.1's "program call
// MUST verify by reading back and comparing when verification is
// configured".
//
// File takes an exclusive flock on the backing file for its lifetime,
// modeling the "engine exclusively owns this range for its mounted
// lifetime" ownership rule from the concurrency model (spec section 5) —
// a second process opening the same file fails fast instead of silently
// racing the first.
type File struct {
	f            *os.File
	sectorSize   uint32
	sectorCount  uint32
	granularity  uint32
	verifyWrites bool

	// failAfter mirrors Memory.failAfter: when non-negative, the next
	// Program call writes only its first failAfter bytes and then
	// returns an error, modeling an interrupted write. Reset to -1
	// after firing once.
	failAfter int
}

// InjectPartialWrite arms the adapter so that the next Program call writes
// only the first n bytes of its payload and then returns an error,
// simulating power loss mid-program.
func (a *File) InjectPartialWrite(n int) {
	a.failAfter = n
}

// OpenFile opens (creating if necessary) path as a File adapter with the
// given geometry. The file is grown and erased-filled if it is smaller
// than sectorCount*sectorSize.
func OpenFile(path string, sectorCount, sectorSize, granularity uint32, verifyWrites bool) (*File, error) {
	if granularity == 0 {
		granularity = 1
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("flash: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("flash: lock %s: %w", path, err)
	}

	wantSize := int64(sectorCount) * int64(sectorSize)
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("flash: stat %s: %w", path, err)
	}

	if info.Size() < wantSize {
		fill := make([]byte, wantSize-info.Size())
		for i := range fill {
			fill[i] = Erased
		}
		if _, err := f.WriteAt(fill, info.Size()); err != nil {
			f.Close()
			return nil, fmt.Errorf("flash: grow %s: %w", path, err)
		}
	}

	return &File{
		f:            f,
		sectorSize:   sectorSize,
		sectorCount:  sectorCount,
		granularity:  granularity,
		verifyWrites: verifyWrites,
		failAfter:    -1,
	}, nil
}

// Close releases the file lock and closes the backing file.
func (a *File) Close() error {
	return a.f.Close()
}

func (a *File) SectorCount() uint32 {
	return a.sectorCount
}

func (a *File) ProgramGranularity() uint32 {
	return a.granularity
}

func (a *File) SectorBounds(sector uint32) (uint32, uint32, error) {
	if sector >= a.sectorCount {
		return 0, 0, ErrOutOfRange
	}
	return sector * a.sectorSize, a.sectorSize, nil
}

func (a *File) EraseSector(sector uint32) error {
	offset, size, err := a.SectorBounds(sector)
	if err != nil {
		return err
	}
	fill := make([]byte, size)
	for i := range fill {
		fill[i] = Erased
	}
	if _, err := a.f.WriteAt(fill, int64(offset)); err != nil {
		return fmt.Errorf("flash: erase sector %d: %w", sector, err)
	}
	return nil
}

func (a *File) Program(offset uint32, data []byte) error {
	if uint64(offset)+uint64(len(data)) > uint64(a.sectorCount)*uint64(a.sectorSize) {
		return ErrOutOfRange
	}

	existing, err := a.Read(offset, uint32(len(data)))
	if err != nil {
		return err
	}
	for i, b := range data {
		if existing[i] != Erased && existing[i] != b {
			return ErrOneWayViolation
		}
	}

	n := len(data)
	if a.failAfter >= 0 {
		if a.failAfter < n {
			n = a.failAfter
		}
		a.failAfter = -1
	}

	if _, err := a.f.WriteAt(data[:n], int64(offset)); err != nil {
		return fmt.Errorf("flash: program at %d: %w", offset, err)
	}

	if n < len(data) {
		return ErrVerifyFailed
	}

	if a.verifyWrites {
		readBack, err := a.Read(offset, uint32(len(data)))
		if err != nil {
			return err
		}
		for i := range data {
			if readBack[i] != data[i] {
				return ErrVerifyFailed
			}
		}
	}
	return nil
}

func (a *File) Read(offset uint32, length uint32) ([]byte, error) {
	if uint64(offset)+uint64(length) > uint64(a.sectorCount)*uint64(a.sectorSize) {
		return nil, ErrOutOfRange
	}
	buf := make([]byte, length)
	if _, err := a.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("flash: read at %d: %w", offset, err)
	}
	return buf, nil
}
