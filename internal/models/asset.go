package models

import "fmt"

// Asset is the closed set of supported cryptocurrencies.
type Asset string

const (
	AssetBTC Asset = "BTC"
	AssetLTC Asset = "LTC"
)

// AssetParams carries per-asset chain parameters so address generation,
// validation and signing stay generic. Adding an asset is a table change.
type AssetParams struct {
	PubKeyHashVersion byte   // base58check version byte for P2PKH addresses
	WIFVersion        byte   // base58check version byte for WIF private keys
	Bech32HRP         string // human-readable part for segwit addresses
}

var assetParams = map[Asset]AssetParams{
	AssetBTC: {PubKeyHashVersion: 0x00, WIFVersion: 0x80, Bech32HRP: "bc"},
	AssetLTC: {PubKeyHashVersion: 0x30, WIFVersion: 0xb0, Bech32HRP: "ltc"},
}

func ParseAsset(s string) (Asset, error) {
	switch Asset(s) {
	case AssetBTC:
		return AssetBTC, nil
	case AssetLTC:
		return AssetLTC, nil
	}
	return "", fmt.Errorf("unsupported asset %q", s)
}

func (a Asset) Params() AssetParams {
	return assetParams[a]
}

func (a Asset) Valid() bool {
	_, ok := assetParams[a]
	return ok
}

func AllAssets() []Asset {
	return []Asset{AssetBTC, AssetLTC}
}
