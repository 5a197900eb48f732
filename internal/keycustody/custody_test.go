package keycustody

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/escrowdesk/backend/internal/models"
)

// mustBech32 builds a syntactically valid segwit address for the given HRP so
// checksum-sensitive cases don't depend on hardcoded strings.
func mustBech32(t *testing.T, hrp string) string {
	t.Helper()
	program := make([]byte, 20)
	conv, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		t.Fatalf("ConvertBits: %v", err)
	}
	addr, err := bech32.Encode(hrp, append([]byte{0}, conv...))
	if err != nil {
		t.Fatalf("bech32.Encode: %v", err)
	}
	return addr
}

const testMasterKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(testMasterKey)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestNewServiceRejectsBadKeys(t *testing.T) {
	if _, err := NewService("not-hex"); err == nil {
		t.Error("expected error for non-hex master key")
	}
	if _, err := NewService("abcd"); err == nil {
		t.Error("expected error for short master key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	s := newTestService(t)

	plaintext := []byte("e9873d79c6d87dc0fb6a5778633389f4453213303da61f20bd67fc233aa33262")
	blob, err := s.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !strings.Contains(blob, ":") {
		t.Fatalf("blob missing nonce separator: %s", blob)
	}

	got, err := s.Decrypt(blob)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	s := newTestService(t)

	plaintext := []byte("same key material")
	a, err := s.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := s.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestDecryptFailures(t *testing.T) {
	s := newTestService(t)
	blob, err := s.Encrypt([]byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	cases := map[string]string{
		"no separator":     strings.ReplaceAll(blob, ":", ""),
		"garbage":          "zz:zz",
		"empty":            "",
		"truncated cipher": blob[:len(blob)-4],
		"flipped bit":      blob[:len(blob)-1] + flipHexDigit(blob[len(blob)-1:]),
	}
	for name, bad := range cases {
		if _, err := s.Decrypt(bad); err != ErrDecryptionFailed {
			t.Errorf("%s: got %v, want ErrDecryptionFailed", name, err)
		}
	}

	// Wrong master key must not return garbage.
	other, err := NewService("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if _, err := other.Decrypt(blob); err != ErrDecryptionFailed {
		t.Errorf("wrong key: got %v, want ErrDecryptionFailed", err)
	}
}

func flipHexDigit(s string) string {
	if s == "0" {
		return "1"
	}
	return "0"
}

func TestGenerateKeypair(t *testing.T) {
	s := newTestService(t)

	for _, asset := range models.AllAssets() {
		kp, err := s.GenerateKeypair(asset)
		if err != nil {
			t.Fatalf("GenerateKeypair(%s): %v", asset, err)
		}
		if !s.ValidatePrivateKey(kp.PrivateKeyHex) {
			t.Errorf("%s: generated private key failed validation", asset)
		}
		if err := ValidateAddress(kp.Address, asset); err != nil {
			t.Errorf("%s: generated address %q failed validation: %v", asset, kp.Address, err)
		}
		if raw, err := hex.DecodeString(kp.PrivateKeyHex); err != nil || len(raw) != 32 {
			t.Errorf("%s: private key is not 32 bytes of hex", asset)
		}
	}

	// Address prefixes follow the version byte table.
	btc, _ := s.GenerateKeypair(models.AssetBTC)
	if !strings.HasPrefix(btc.Address, "1") {
		t.Errorf("BTC P2PKH address should start with 1, got %s", btc.Address)
	}
	ltc, _ := s.GenerateKeypair(models.AssetLTC)
	if !strings.HasPrefix(ltc.Address, "L") && !strings.HasPrefix(ltc.Address, "M") {
		t.Errorf("LTC P2PKH address should start with L or M, got %s", ltc.Address)
	}

	if _, err := s.GenerateKeypair(models.Asset("DOGE")); err == nil {
		t.Error("expected error for unsupported asset")
	}
}

func TestValidatePrivateKey(t *testing.T) {
	s := newTestService(t)

	valid := "e9873d79c6d87dc0fb6a5778633389f4453213303da61f20bd67fc233aa33262"
	if !s.ValidatePrivateKey(valid) {
		t.Error("valid key rejected")
	}

	invalid := []string{
		"",
		"abc",
		strings.Repeat("0", 64),                 // zero scalar
		strings.Repeat("f", 64),                 // above curve order
		strings.Repeat("g", 64),                 // not hex
		valid + "00",                            // too long
	}
	for _, k := range invalid {
		if s.ValidatePrivateKey(k) {
			t.Errorf("invalid key accepted: %q", k)
		}
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		address string
		asset   models.Asset
		ok      bool
	}{
		{"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", models.AssetBTC, true},
		{"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", models.AssetBTC, true},
		{"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", models.AssetBTC, true},
		{"LM2WMpR1Rp6j3Sa59cMXMs1SPzj9eXpGc1", models.AssetLTC, true},
		{mustBech32(t, "ltc"), models.AssetLTC, true},

		// Cross-asset confusion must be rejected.
		{"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2", models.AssetLTC, false},
		{"LM2WMpR1Rp6j3Sa59cMXMs1SPzj9eXpGc1", models.AssetBTC, false},
		{"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", models.AssetLTC, false},

		// Corrupt checksum / nonsense.
		{"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN3", models.AssetBTC, false},
		{"", models.AssetBTC, false},
		{"hello", models.AssetBTC, false},
	}

	for _, tt := range tests {
		err := ValidateAddress(tt.address, tt.asset)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateAddress(%q, %s) = %v, want ok=%v", tt.address, tt.asset, err, tt.ok)
		}
	}
}
