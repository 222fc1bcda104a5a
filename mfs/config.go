package mfs

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"mfs/flash"
)

// Config names the flash adapter and the two bank sector ranges an Engine
// mounts. Both banks must have equal total byte capacity. This struct is
// filled in by the caller; MFS never loads it from a file or flags — that
// glue belongs to the embedding application.
type Config struct {
	Flash flash.Adapter

	Bank0Start   uint32
	Bank0Sectors uint32
	Bank1Start   uint32
	Bank1Sectors uint32

	// Tunables are the compile-time tunables from spec section 6. Zero
	// value uses DefaultTunables.
	Tunables Tunables
}

// Tunables are the driver's compile-time knobs. They mirror mfs.h's
// MFS_CFG_ID_CACHE_SIZE / MFS_CFG_MAX_REPAIR_ATTEMPTS / MFS_CFG_WRITE_VERIFY
// `#define`s, generalized into a validated struct instead of preprocessor
// constants.
type Tunables struct {
	// IDCacheSize is the capacity of the record index's LRU cache. 0
	// disables the cache (every read falls back to a backward chain walk).
	IDCacheSize uint32

	// MaxRepairAttempts bounds how many times mount retries a compaction
	// before giving up with InternalError. Must be in 1..10.
	MaxRepairAttempts int

	// WriteVerify causes every Program call to be read back and compared.
	WriteVerify bool
}

// DefaultTunables matches mfs.h's defaults: a 16-entry cache, 3 repair
// attempts, and write verification enabled.
func DefaultTunables() Tunables {
	return Tunables{
		IDCacheSize:       16,
		MaxRepairAttempts: 3,
		WriteVerify:       true,
	}
}

// Validate checks the tunables against the bounds mfs.h enforces at
// compile time via #error directives.
func (t Tunables) Validate() error {
	if t.MaxRepairAttempts < 1 || t.MaxRepairAttempts > 10 {
		return fmt.Errorf("mfs: MaxRepairAttempts must be in 1..10, got %d", t.MaxRepairAttempts)
	}
	return nil
}

// LoadTunablesFile reads tunables from a JSON-with-comments file (trailing
// commas and // comments are tolerated, the way a hand-edited,
// checked-in tuning file tends to accumulate them). Fields absent from the
// file keep their DefaultTunables value.
func LoadTunablesFile(path string) (Tunables, error) {
	t := DefaultTunables()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tunables{}, fmt.Errorf("mfs: read tunables file %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return Tunables{}, fmt.Errorf("mfs: parse tunables file %s: %w", path, err)
	}

	var overrides struct {
		IDCacheSize       *uint32 `json:"id_cache_size"`
		MaxRepairAttempts *int    `json:"max_repair_attempts"`
		WriteVerify       *bool   `json:"write_verify"`
	}
	if err := json.Unmarshal(standardized, &overrides); err != nil {
		return Tunables{}, fmt.Errorf("mfs: decode tunables file %s: %w", path, err)
	}

	if overrides.IDCacheSize != nil {
		t.IDCacheSize = *overrides.IDCacheSize
	}
	if overrides.MaxRepairAttempts != nil {
		t.MaxRepairAttempts = *overrides.MaxRepairAttempts
	}
	if overrides.WriteVerify != nil {
		t.WriteVerify = *overrides.WriteVerify
	}

	if err := t.Validate(); err != nil {
		return Tunables{}, err
	}
	return t, nil
}

// validate checks that both banks agree on total byte capacity (spec
// section 6, "Both banks MUST have equal total byte capacity").
func (c Config) validate() error {
	if c.Flash == nil {
		return fmt.Errorf("mfs: Config.Flash is required")
	}

	bank0Bytes, err := sectorRangeBytes(c.Flash, c.Bank0Start, c.Bank0Sectors)
	if err != nil {
		return fmt.Errorf("mfs: bank0 sector range: %w", err)
	}
	bank1Bytes, err := sectorRangeBytes(c.Flash, c.Bank1Start, c.Bank1Sectors)
	if err != nil {
		return fmt.Errorf("mfs: bank1 sector range: %w", err)
	}
	if bank0Bytes != bank1Bytes {
		return fmt.Errorf("mfs: bank0 (%d bytes) and bank1 (%d bytes) must have equal capacity", bank0Bytes, bank1Bytes)
	}

	return c.Tunables.Validate()
}

func sectorRangeBytes(a flash.Adapter, start, count uint32) (uint32, error) {
	var total uint32
	for i := uint32(0); i < count; i++ {
		_, size, err := a.SectorBounds(start + i)
		if err != nil {
			return 0, err
		}
		total += size
	}
	return total, nil
}
