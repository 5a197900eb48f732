package models

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Happy path
		{DealStatusPending, DealStatusWaitingPayment, true},
		{DealStatusWaitingPayment, DealStatusFunded, true},
		{DealStatusFunded, DealStatusReleased, true},

		// Cancellation and expiry
		{DealStatusPending, DealStatusCancelled, true},
		{DealStatusWaitingPayment, DealStatusCancelled, true},
		{DealStatusWaitingPayment, DealStatusExpired, true},

		// Funded deals cannot be cancelled or expired, only released
		{DealStatusFunded, DealStatusCancelled, false},
		{DealStatusFunded, DealStatusExpired, false},

		// No resurrection from terminal states
		{DealStatusReleased, DealStatusFunded, false},
		{DealStatusExpired, DealStatusFunded, false},
		{DealStatusExpired, DealStatusWaitingPayment, false},
		{DealStatusCancelled, DealStatusPending, false},

		// No skipping
		{DealStatusPending, DealStatusFunded, false},
		{DealStatusPending, DealStatusReleased, false},
		{DealStatusWaitingPayment, DealStatusReleased, false},

		{"nonexistent", DealStatusPending, false},
		{DealStatusPending, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	terminal := []string{DealStatusReleased, DealStatusCancelled, DealStatusExpired}
	for _, status := range terminal {
		if !IsTerminalStatus(status) {
			t.Errorf("status %q should be terminal", status)
		}
		if transitions := ValidDealTransitions[status]; len(transitions) != 0 {
			t.Errorf("terminal status %q should have no transitions, got %v", status, transitions)
		}
	}
	for _, status := range []string{DealStatusPending, DealStatusWaitingPayment, DealStatusFunded} {
		if IsTerminalStatus(status) {
			t.Errorf("status %q should not be terminal", status)
		}
	}
}

func TestParseAsset(t *testing.T) {
	if a, err := ParseAsset("BTC"); err != nil || a != AssetBTC {
		t.Fatalf("ParseAsset(BTC) = %v, %v", a, err)
	}
	if a, err := ParseAsset("LTC"); err != nil || a != AssetLTC {
		t.Fatalf("ParseAsset(LTC) = %v, %v", a, err)
	}
	if _, err := ParseAsset("DOGE"); err == nil {
		t.Fatal("ParseAsset(DOGE) should fail")
	}
}

func TestAssetParams(t *testing.T) {
	if p := AssetBTC.Params(); p.PubKeyHashVersion != 0x00 || p.WIFVersion != 0x80 || p.Bech32HRP != "bc" {
		t.Errorf("unexpected BTC params: %+v", p)
	}
	if p := AssetLTC.Params(); p.PubKeyHashVersion != 0x30 || p.WIFVersion != 0xb0 || p.Bech32HRP != "ltc" {
		t.Errorf("unexpected LTC params: %+v", p)
	}
}
