package flash

import (
	"sync"
)

// Memory is an in-RAM Adapter backed by a single byte slice. It enforces
// the one-way-writable property explicitly, which makes it useful for
// catching layout bugs that a real NOR part would silently corrupt on.
//
// Memory is safe for concurrent use, though the MFS engine itself never
// calls an Adapter from more than one goroutine at a time (see the
// concurrency model in the engine package).
type Memory struct {
	mu           sync.RWMutex
	data         []byte
	sectorSize   uint32
	granularity  uint32
	verifyWrites bool

	// failAfter, when non-negative, causes the next Program call to write
	// only the first failAfter bytes before returning an error, modeling
	// an interrupted write for crash-recovery tests. It is reset to -1
	// after firing once.
	failAfter int
}

// NewMemory creates a Memory adapter with sectorCount sectors of
// sectorSize bytes each, all initialized to the erased state.
func NewMemory(sectorCount, sectorSize, granularity uint32, verifyWrites bool) *Memory {
	if granularity == 0 {
		granularity = 1
	}
	data := make([]byte, uint64(sectorCount)*uint64(sectorSize))
	for i := range data {
		data[i] = Erased
	}
	return &Memory{
		data:         data,
		sectorSize:   sectorSize,
		granularity:  granularity,
		verifyWrites: verifyWrites,
		failAfter:    -1,
	}
}

// InjectPartialWrite arms the adapter so that the next Program call writes
// only the first n bytes of its payload and then returns an error,
// simulating power loss mid-program.
func (m *Memory) InjectPartialWrite(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

func (m *Memory) SectorCount() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint32(len(m.data)) / m.sectorSize
}

func (m *Memory) SectorBounds(sector uint32) (uint32, uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sector >= uint32(len(m.data))/m.sectorSize {
		return 0, 0, ErrOutOfRange
	}
	return sector * m.sectorSize, m.sectorSize, nil
}

func (m *Memory) ProgramGranularity() uint32 {
	return m.granularity
}

func (m *Memory) EraseSector(sector uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := uint64(sector) * uint64(m.sectorSize)
	if start+uint64(m.sectorSize) > uint64(len(m.data)) {
		return ErrOutOfRange
	}
	for i := uint64(0); i < uint64(m.sectorSize); i++ {
		m.data[start+i] = Erased
	}
	return nil
}

func (m *Memory) Program(offset uint32, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := uint64(offset) + uint64(len(src))
	if end > uint64(len(m.data)) {
		return ErrOutOfRange
	}

	n := len(src)
	if m.failAfter >= 0 {
		if m.failAfter < n {
			n = m.failAfter
		}
		m.failAfter = -1
	}

	for i := 0; i < n; i++ {
		pos := uint64(offset) + uint64(i)
		if m.data[pos] != Erased && m.data[pos] != src[i] {
			return ErrOneWayViolation
		}
		m.data[pos] = src[i]
	}

	if n < len(src) {
		return ErrVerifyFailed
	}

	if m.verifyWrites {
		for i := 0; i < n; i++ {
			if m.data[uint64(offset)+uint64(i)] != src[i] {
				return ErrVerifyFailed
			}
		}
	}
	return nil
}

func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	end := uint64(offset) + uint64(length)
	if end > uint64(len(m.data)) {
		return nil, ErrOutOfRange
	}
	out := make([]byte, length)
	copy(out, m.data[offset:end])
	return out, nil
}
