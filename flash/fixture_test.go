package flash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadSnapshot_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	bankPath := filepath.Join(dir, "bank0.bin")
	snapshotPath := filepath.Join(dir, "bank0.snapshot")

	a, err := OpenFile(bankPath, 2, 64, 1, true)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Program(0, []byte("before crash")))
	require.NoError(t, SaveSnapshot(a, snapshotPath))

	require.NoError(t, a.EraseSector(0))
	require.NoError(t, a.Program(0, []byte("after crash!")))

	require.NoError(t, LoadSnapshot(a, snapshotPath))

	got, err := a.Read(0, 12)
	require.NoError(t, err)
	require.Equal(t, []byte("before crash"), got)
}

func TestLoadSnapshot_RejectsMismatchedGeometry(t *testing.T) {
	dir := t.TempDir()
	bankPath := filepath.Join(dir, "bank0.bin")
	snapshotPath := filepath.Join(dir, "bank0.snapshot")

	small, err := OpenFile(bankPath, 1, 32, 1, true)
	require.NoError(t, err)
	require.NoError(t, SaveSnapshot(small, snapshotPath))
	require.NoError(t, small.Close())

	big, err := OpenFile(filepath.Join(dir, "bank1.bin"), 2, 64, 1, true)
	require.NoError(t, err)
	defer big.Close()

	err = LoadSnapshot(big, snapshotPath)
	require.Error(t, err)
}
