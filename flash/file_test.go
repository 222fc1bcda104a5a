package flash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFile_ProgramAndReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank0.bin")
	a, err := OpenFile(path, 2, 64, 1, true)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Program(8, []byte("persisted")))

	got, err := a.Read(8, 9)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got)
}

func TestFile_SecondOpenIsLockedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank0.bin")
	a, err := OpenFile(path, 2, 64, 1, true)
	require.NoError(t, err)
	defer a.Close()

	_, err = OpenFile(path, 2, 64, 1, true)
	require.Error(t, err, "a second adapter over the same file should fail to acquire the lock")
}

func TestFile_SurvivesReopenAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank0.bin")

	a, err := OpenFile(path, 1, 64, 1, true)
	require.NoError(t, err)
	require.NoError(t, a.Program(0, []byte("durable")))
	require.NoError(t, a.Close())

	b, err := OpenFile(path, 1, 64, 1, true)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Read(0, 7)
	require.NoError(t, err)
	require.Equal(t, []byte("durable"), got)
}

func TestFile_ProgramRejectsOneWayViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank0.bin")
	a, err := OpenFile(path, 1, 64, 1, true)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Program(0, []byte{0x11}))
	err = a.Program(0, []byte{0x22})
	require.ErrorIs(t, err, ErrOneWayViolation)
}

func TestFile_InjectPartialWriteInterruptsExactlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank0.bin")
	a, err := OpenFile(path, 1, 64, 1, true)
	require.NoError(t, err)
	defer a.Close()

	a.InjectPartialWrite(3)
	err = a.Program(0, []byte{1, 2, 3, 4, 5})
	require.ErrorIs(t, err, ErrVerifyFailed)

	got, err := a.Read(0, 5)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, Erased, Erased}, got)

	// Second call is not interrupted.
	require.NoError(t, a.EraseSector(0))
	require.NoError(t, a.Program(0, []byte{9, 9, 9, 9, 9}))
}
