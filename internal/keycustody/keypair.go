package keycustody

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/escrowdesk/backend/internal/models"
)

// Keypair is a freshly generated escrow keypair. PrivateKeyHex must never be
// persisted or logged; callers encrypt it immediately.
type Keypair struct {
	PrivateKeyHex string
	PrivateKeyWIF string
	Address       string
}

// GenerateKeypair produces a secp256k1 keypair and the asset's P2PKH address
// (compressed public key, base58check with the asset's version byte).
func (s *Service) GenerateKeypair(asset models.Asset) (*Keypair, error) {
	if !asset.Valid() {
		return nil, fmt.Errorf("unsupported asset %q", asset)
	}
	params := asset.Params()

	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}

	pubKey := priv.PubKey().SerializeCompressed()
	pubKeyHash := btcutil.Hash160(pubKey)
	address := base58.CheckEncode(pubKeyHash, params.PubKeyHashVersion)

	privBytes := priv.Serialize()
	wif := base58.CheckEncode(append(privBytes, 0x01), params.WIFVersion)

	return &Keypair{
		PrivateKeyHex: hex.EncodeToString(privBytes),
		PrivateKeyWIF: wif,
		Address:       address,
	}, nil
}

var privKeyHexPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

// ValidatePrivateKey confirms a 32-byte hex scalar within the secp256k1
// curve-order range.
func (s *Service) ValidatePrivateKey(privateKeyHex string) bool {
	if !privKeyHexPattern.MatchString(privateKeyHex) {
		return false
	}
	k, ok := new(big.Int).SetString(privateKeyHex, 16)
	if !ok {
		return false
	}
	return k.Sign() > 0 && k.Cmp(btcec.S256().N) < 0
}
