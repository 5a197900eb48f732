package chain

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/escrowdesk/backend/internal/models"
)

// Outputs below this are unspendable in practice and are folded into the
// network fee instead of producing change.
const DustLimitSats = 546

type Output struct {
	Address   string
	ValueSats int64
}

type SignedTransfer struct {
	RawHex      string
	TxID        string
	ChangeIndex int   // -1 when no change output was added
	ChangeSats  int64 // 0 when no change output was added
}

// BuildSignedTransfer builds and signs a transaction spending escrow UTXOs
// (P2PKH at fromAddress) to the given outputs, returning any change above
// dust to fromAddress. BTC and LTC share script and wire formats, so the
// asset only selects address parameters.
func BuildSignedTransfer(privateKeyHex, fromAddress string, utxos []UTXO, outputs []Output, feeSats int64, asset models.Asset) (*SignedTransfer, error) {
	keyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil || len(keyBytes) != 32 {
		return nil, fmt.Errorf("invalid private key material")
	}
	privKey, _ := btcec.PrivKeyFromBytes(keyBytes)

	fromScript, err := payToAddrScript(fromAddress, asset)
	if err != nil {
		return nil, fmt.Errorf("escrow address: %w", err)
	}

	var sendSats int64
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, out := range outputs {
		if out.ValueSats <= 0 {
			return nil, fmt.Errorf("non-positive output value %d", out.ValueSats)
		}
		script, err := payToAddrScript(out.Address, asset)
		if err != nil {
			return nil, fmt.Errorf("output address %s: %w", out.Address, err)
		}
		tx.AddTxOut(wire.NewTxOut(out.ValueSats, script))
		sendSats += out.ValueSats
	}

	required := sendSats + feeSats

	// Coin selection: accumulate UTXOs in order until inputs cover outputs
	// plus the network fee.
	var inputSats int64
	for _, utxo := range utxos {
		if inputSats >= required {
			break
		}
		hash, err := chainhash.NewHashFromStr(utxo.TxID)
		if err != nil {
			return nil, fmt.Errorf("bad utxo txid %q: %w", utxo.TxID, err)
		}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, utxo.Vout), nil, nil))
		inputSats += utxo.Value
	}
	if inputSats < required {
		return nil, fmt.Errorf("insufficient escrow balance: have %d sats, need %d", inputSats, required)
	}

	changeIndex := -1
	var changeSats int64
	if change := inputSats - required; change > DustLimitSats {
		tx.AddTxOut(wire.NewTxOut(change, fromScript))
		changeIndex = len(tx.TxOut) - 1
		changeSats = change
	}

	for i := range tx.TxIn {
		sigScript, err := txscript.SignatureScript(tx, i, fromScript, txscript.SigHashAll, privKey, true)
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", i, err)
		}
		tx.TxIn[i].SignatureScript = sigScript
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	return &SignedTransfer{
		RawHex:      hex.EncodeToString(buf.Bytes()),
		TxID:        tx.TxHash().String(),
		ChangeIndex: changeIndex,
		ChangeSats:  changeSats,
	}, nil
}

// payToAddrScript builds the locking script for a legacy (P2PKH/P2SH) or
// native segwit address of the given asset.
func payToAddrScript(address string, asset models.Asset) ([]byte, error) {
	params := asset.Params()

	if strings.HasPrefix(strings.ToLower(address), params.Bech32HRP+"1") {
		hrp, data, err := bech32.Decode(address)
		if err != nil {
			return nil, fmt.Errorf("invalid segwit address")
		}
		if hrp != params.Bech32HRP {
			return nil, fmt.Errorf("wrong network prefix %q", hrp)
		}
		if len(data) < 1 {
			return nil, fmt.Errorf("empty witness program")
		}
		version := data[0]
		program, err := bech32.ConvertBits(data[1:], 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("invalid witness program")
		}
		op := txscript.OP_0
		if version > 0 {
			op = txscript.OP_1 + int(version) - 1
		}
		return txscript.NewScriptBuilder().AddOp(byte(op)).AddData(program).Script()
	}

	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address")
	}
	if len(payload) != 20 {
		return nil, fmt.Errorf("invalid address payload length %d", len(payload))
	}

	switch version {
	case params.PubKeyHashVersion:
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).
			AddData(payload).
			AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG).
			Script()
	case scriptHashVersion(asset):
		return txscript.NewScriptBuilder().
			AddOp(txscript.OP_HASH160).AddData(payload).AddOp(txscript.OP_EQUAL).
			Script()
	}
	return nil, fmt.Errorf("unexpected version byte 0x%02x for %s", version, asset)
}

func scriptHashVersion(asset models.Asset) byte {
	switch asset {
	case models.AssetBTC:
		return 0x05
	case models.AssetLTC:
		return 0x32
	}
	return 0xff
}
