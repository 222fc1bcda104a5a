package mfs

import (
	"os"
	"path/filepath"
	"testing"

	"mfs/flash"
)

func TestDefaultTunables_Valid(t *testing.T) {
	if err := DefaultTunables().Validate(); err != nil {
		t.Fatalf("DefaultTunables().Validate() = %v, want nil", err)
	}
}

func TestTunables_ValidateRejectsOutOfRangeRepairAttempts(t *testing.T) {
	tu := DefaultTunables()
	tu.MaxRepairAttempts = 0
	if err := tu.Validate(); err == nil {
		t.Fatalf("Validate() = nil for MaxRepairAttempts=0, want error")
	}

	tu.MaxRepairAttempts = 11
	if err := tu.Validate(); err == nil {
		t.Fatalf("Validate() = nil for MaxRepairAttempts=11, want error")
	}
}

func TestLoadTunablesFile_OverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tunables.hujson")
	content := `{
		// id cache left at default
		"max_repair_attempts": 5,
		"write_verify": false, // trailing comma tolerated below
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := LoadTunablesFile(path)
	if err != nil {
		t.Fatalf("LoadTunablesFile: %v", err)
	}
	want := Tunables{IDCacheSize: DefaultTunables().IDCacheSize, MaxRepairAttempts: 5, WriteVerify: false}
	if got != want {
		t.Fatalf("LoadTunablesFile() = %+v, want %+v", got, want)
	}
}

func TestLoadTunablesFile_MissingFile(t *testing.T) {
	if _, err := LoadTunablesFile(filepath.Join(t.TempDir(), "missing.hujson")); err == nil {
		t.Fatalf("LoadTunablesFile() = nil error for missing file, want error")
	}
}

func TestConfig_ValidateRejectsMismatchedBankCapacity(t *testing.T) {
	mem := flash.NewMemory(4, 32, 4, true)
	cfg := Config{
		Flash:        mem,
		Bank0Start:   0,
		Bank0Sectors: 2,
		Bank1Start:   2,
		Bank1Sectors: 1,
		Tunables:     DefaultTunables(),
	}
	if err := cfg.validate(); err == nil {
		t.Fatalf("validate() = nil for mismatched bank sizes, want error")
	}
}

func TestConfig_ValidateRejectsNilFlash(t *testing.T) {
	cfg := Config{Tunables: DefaultTunables()}
	if err := cfg.validate(); err == nil {
		t.Fatalf("validate() = nil for nil Flash, want error")
	}
}
