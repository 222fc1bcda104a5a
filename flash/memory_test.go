package flash

import (
	"bytes"
	"testing"
)

func TestMemory_EraseFillsWithErasedValue(t *testing.T) {
	m := NewMemory(2, 64, 1, true)
	if err := m.EraseSector(0); err != nil {
		t.Fatalf("EraseSector: %v", err)
	}
	data, err := m.Read(0, 64)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range data {
		if b != Erased {
			t.Fatalf("byte %d = %#x, want %#x", i, b, Erased)
		}
	}
}

func TestMemory_ProgramThenRead(t *testing.T) {
	m := NewMemory(1, 64, 1, true)
	payload := []byte("hello flash")
	if err := m.Program(4, payload); err != nil {
		t.Fatalf("Program: %v", err)
	}
	got, err := m.Read(4, uint32(len(payload)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Read() = %q, want %q", got, payload)
	}
}

func TestMemory_ProgramRejectsOverwriteOfProgrammedByte(t *testing.T) {
	m := NewMemory(1, 64, 1, true)
	if err := m.Program(0, []byte{0x01}); err != nil {
		t.Fatalf("first Program: %v", err)
	}
	if err := m.Program(0, []byte{0x02}); err != ErrOneWayViolation {
		t.Errorf("second Program error = %v, want %v", err, ErrOneWayViolation)
	}
}

func TestMemory_ProgramAllowsRewritingSameValue(t *testing.T) {
	m := NewMemory(1, 64, 1, true)
	if err := m.Program(0, []byte{0x01}); err != nil {
		t.Fatalf("first Program: %v", err)
	}
	if err := m.Program(0, []byte{0x01}); err != nil {
		t.Errorf("rewriting identical byte should succeed, got %v", err)
	}
}

func TestMemory_ProgramOutOfRange(t *testing.T) {
	m := NewMemory(1, 64, 1, true)
	if err := m.Program(60, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != ErrOutOfRange {
		t.Errorf("Program() error = %v, want %v", err, ErrOutOfRange)
	}
}

func TestMemory_InjectPartialWriteInterruptsExactlyOnce(t *testing.T) {
	m := NewMemory(1, 64, 1, true)
	m.InjectPartialWrite(3)

	err := m.Program(0, []byte{1, 2, 3, 4, 5})
	if err != ErrVerifyFailed {
		t.Fatalf("Program() error = %v, want %v", err, ErrVerifyFailed)
	}
	got, _ := m.Read(0, 5)
	want := []byte{1, 2, 3, Erased, Erased}
	if !bytes.Equal(got, want) {
		t.Errorf("after interrupted write, data = %v, want %v", got, want)
	}

	// Second call is not interrupted.
	if err := m.EraseSector(0); err != nil {
		t.Fatalf("EraseSector: %v", err)
	}
	if err := m.Program(0, []byte{9, 9, 9, 9, 9}); err != nil {
		t.Errorf("second Program should not be interrupted, got %v", err)
	}
}

func TestMemory_SectorBounds(t *testing.T) {
	m := NewMemory(4, 128, 1, true)
	offset, size, err := m.SectorBounds(2)
	if err != nil {
		t.Fatalf("SectorBounds: %v", err)
	}
	if offset != 256 || size != 128 {
		t.Errorf("SectorBounds(2) = (%d, %d), want (256, 128)", offset, size)
	}
	if _, _, err := m.SectorBounds(4); err != ErrOutOfRange {
		t.Errorf("SectorBounds(4) error = %v, want %v", err, ErrOutOfRange)
	}
}
