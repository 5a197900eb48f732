package keycustody

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/escrowdesk/backend/internal/models"
)

// ValidateAddress checks an address against the asset's parameters. Legacy
// addresses must base58check-decode to a 20-byte hash with the asset's
// version byte (P2PKH) or a known script-hash version; segwit addresses must
// bech32-decode with the asset's HRP.
func ValidateAddress(address string, asset models.Asset) error {
	if !asset.Valid() {
		return fmt.Errorf("unsupported asset %q", asset)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("address is empty")
	}
	params := asset.Params()

	if strings.HasPrefix(strings.ToLower(address), params.Bech32HRP+"1") {
		hrp, _, err := bech32.Decode(address)
		if err != nil {
			return fmt.Errorf("invalid %s segwit address", asset)
		}
		if hrp != params.Bech32HRP {
			return fmt.Errorf("wrong network prefix %q for %s", hrp, asset)
		}
		return nil
	}

	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return fmt.Errorf("invalid %s address", asset)
	}
	if len(payload) != 20 {
		return fmt.Errorf("invalid %s address payload", asset)
	}
	if version != params.PubKeyHashVersion && version != scriptHashVersion(asset) {
		return fmt.Errorf("wrong version byte 0x%02x for %s", version, asset)
	}
	return nil
}

// P2SH version bytes; kept out of AssetParams because the engine never
// generates script-hash addresses, only accepts them from users.
func scriptHashVersion(asset models.Asset) byte {
	switch asset {
	case models.AssetBTC:
		return 0x05
	case models.AssetLTC:
		return 0x32
	}
	return 0xff
}
