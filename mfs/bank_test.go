package mfs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestBankHeader_EncodeDecodeRoundTrips(t *testing.T) {
	h := BankHeader{Magic1: BankMagic1, Magic2: BankMagic2, Counter: 7, Next: 24}
	buf := h.Encode(crc16Seed)
	if len(buf) != BankHeaderCoreSize {
		t.Fatalf("len(Encode()) = %d, want %d", len(buf), BankHeaderCoreSize)
	}

	got := DecodeBankHeader(buf)
	// CRC is populated by Encode/Decode but isn't part of the logical
	// value being round-tripped; compare it separately below.
	if diff := cmp.Diff(h, got, cmpopts.IgnoreFields(BankHeader{}, "CRC")); diff != "" {
		t.Fatalf("Decode(Encode(%+v)) mismatch (-want +got):\n%s", h, diff)
	}
	if !got.VerifyCRC(crc16Seed) {
		t.Fatalf("VerifyCRC() = false, want true")
	}
	if !got.IsValidMagic() {
		t.Fatalf("IsValidMagic() = false, want true")
	}
}

func TestBankHeader_VerifyCRC_DetectsCorruption(t *testing.T) {
	h := BankHeader{Magic1: BankMagic1, Magic2: BankMagic2, Counter: 1, Next: 20}
	buf := h.Encode(crc16Seed)
	buf[8] ^= 0xFF // flip a byte inside Counter

	got := DecodeBankHeader(buf)
	if got.VerifyCRC(crc16Seed) {
		t.Fatalf("VerifyCRC() = true after corruption, want false")
	}
}

func TestBankHeader_IsValidMagic_RejectsWrongMagic(t *testing.T) {
	h := BankHeader{Magic1: 0x11111111, Magic2: BankMagic2}
	if h.IsValidMagic() {
		t.Fatalf("IsValidMagic() = true for wrong magic1, want false")
	}
}
