package flash

import (
	"bytes"
	"fmt"
	"os"

	atomicfile "github.com/natefinch/atomic"
)

// SaveSnapshot writes the full contents of a File adapter's backing file
// to snapshotPath as a single atomic rename, so a test harness that is
// itself interrupted mid-snapshot never leaves a half-written fixture
// behind to confuse the next run. Used by the property test in the mfs
// package that replays "crash after N programmed bytes" at every byte
// offset of a record write.
func SaveSnapshot(a *File, snapshotPath string) error {
	data := make([]byte, int64(a.sectorCount)*int64(a.sectorSize))
	if _, err := a.f.ReadAt(data, 0); err != nil {
		return fmt.Errorf("flash: read snapshot source: %w", err)
	}
	if err := atomicfile.WriteFile(snapshotPath, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("flash: write snapshot %s: %w", snapshotPath, err)
	}
	return nil
}

// LoadSnapshot restores a File adapter's backing contents from a snapshot
// previously written by SaveSnapshot.
func LoadSnapshot(a *File, snapshotPath string) error {
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return fmt.Errorf("flash: read snapshot %s: %w", snapshotPath, err)
	}
	if int64(len(data)) != int64(a.sectorCount)*int64(a.sectorSize) {
		return fmt.Errorf("flash: snapshot %s size %d does not match adapter geometry", snapshotPath, len(data))
	}
	if _, err := a.f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("flash: restore snapshot: %w", err)
	}
	return nil
}
