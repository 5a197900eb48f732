package chain

import (
	"strings"
	"testing"

	"github.com/escrowdesk/backend/internal/models"
)

// Deterministic fixture: a valid secp256k1 scalar and the P2PKH addresses it
// would control are not needed for builder tests, only well-formed inputs.
const testPrivKey = "e9873d79c6d87dc0fb6a5778633389f4453213303da61f20bd67fc233aa33262"

const (
	testFromBTC = "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"
	testToBTC   = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
)

func testUTXOs(values ...int64) []UTXO {
	utxos := make([]UTXO, len(values))
	for i, v := range values {
		utxos[i] = UTXO{
			TxID:  "aa" + strings.Repeat("0", 60) + "bb",
			Vout:  uint32(i),
			Value: v,
		}
	}
	return utxos
}

func TestBuildSignedTransfer(t *testing.T) {
	st, err := BuildSignedTransfer(testPrivKey, testFromBTC, testUTXOs(100000), []Output{
		{Address: testToBTC, ValueSats: 50000},
	}, 1000, models.AssetBTC)
	if err != nil {
		t.Fatalf("BuildSignedTransfer: %v", err)
	}
	if st.RawHex == "" || st.TxID == "" {
		t.Fatal("empty raw tx or txid")
	}
	if st.ChangeIndex != 1 {
		t.Errorf("change index = %d, want 1", st.ChangeIndex)
	}
	if st.ChangeSats != 49000 {
		t.Errorf("change = %d sats, want 49000", st.ChangeSats)
	}
}

func TestBuildSignedTransferNoDustChange(t *testing.T) {
	// inputs - outputs - fee = 500 sats, below dust: folded into the fee.
	st, err := BuildSignedTransfer(testPrivKey, testFromBTC, testUTXOs(51500), []Output{
		{Address: testToBTC, ValueSats: 50000},
	}, 1000, models.AssetBTC)
	if err != nil {
		t.Fatalf("BuildSignedTransfer: %v", err)
	}
	if st.ChangeIndex != -1 || st.ChangeSats != 0 {
		t.Errorf("expected no change output, got index %d / %d sats", st.ChangeIndex, st.ChangeSats)
	}
}

func TestBuildSignedTransferSelectsEnoughInputs(t *testing.T) {
	st, err := BuildSignedTransfer(testPrivKey, testFromBTC, testUTXOs(30000, 30000, 30000), []Output{
		{Address: testToBTC, ValueSats: 50000},
	}, 1000, models.AssetBTC)
	if err != nil {
		t.Fatalf("BuildSignedTransfer: %v", err)
	}
	// Two inputs cover 51000; the third must not be spent.
	if st.ChangeSats != 9000 {
		t.Errorf("change = %d sats, want 9000", st.ChangeSats)
	}
}

func TestBuildSignedTransferErrors(t *testing.T) {
	if _, err := BuildSignedTransfer(testPrivKey, testFromBTC, testUTXOs(1000), []Output{
		{Address: testToBTC, ValueSats: 50000},
	}, 1000, models.AssetBTC); err == nil {
		t.Error("expected insufficient balance error")
	}

	if _, err := BuildSignedTransfer("zz", testFromBTC, testUTXOs(100000), []Output{
		{Address: testToBTC, ValueSats: 50000},
	}, 1000, models.AssetBTC); err == nil {
		t.Error("expected invalid key error")
	}

	if _, err := BuildSignedTransfer(testPrivKey, testFromBTC, testUTXOs(100000), []Output{
		{Address: "not-an-address", ValueSats: 50000},
	}, 1000, models.AssetBTC); err == nil {
		t.Error("expected invalid output address error")
	}

	if _, err := BuildSignedTransfer(testPrivKey, testFromBTC, testUTXOs(100000), []Output{
		{Address: testToBTC, ValueSats: 0},
	}, 1000, models.AssetBTC); err == nil {
		t.Error("expected non-positive value error")
	}

	// LTC builder must reject a BTC-versioned destination.
	if _, err := BuildSignedTransfer(testPrivKey, testFromBTC, testUTXOs(100000), []Output{
		{Address: testToBTC, ValueSats: 50000},
	}, 1000, models.AssetLTC); err == nil {
		t.Error("expected version byte mismatch for LTC")
	}
}
