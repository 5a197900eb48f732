package fees

import "github.com/shopspring/decimal"

// Amounts are fixed-point with 8 fractional digits (satoshi precision).
// Rounding is banker's (round-half-even) and applied here only, so repeated
// fee computations cannot drift.
const Precision = 8

var (
	flatFeeThreshold = decimal.NewFromInt(100)
	flatFee          = decimal.NewFromInt(5)
	percentFee       = decimal.NewFromInt(5) // percent of amount
	hundred          = decimal.NewFromInt(100)
)

type Breakdown struct {
	FeeAmount     decimal.Decimal
	NetAmount     decimal.Decimal
	FeePercentage decimal.Decimal
}

// Calculate applies the platform fee policy: a flat fee of 5 units below the
// threshold, 5% of the amount at or above it. netAmount = amount - feeAmount.
func Calculate(amount decimal.Decimal) Breakdown {
	var fee, pct decimal.Decimal

	if amount.LessThan(flatFeeThreshold) {
		fee = flatFee
		if amount.IsPositive() {
			pct = flatFee.Div(amount).Mul(hundred).RoundBank(2)
		}
	} else {
		fee = amount.Mul(percentFee).Div(hundred)
		pct = percentFee
	}

	fee = fee.RoundBank(Precision)
	net := amount.Sub(fee).RoundBank(Precision)

	return Breakdown{FeeAmount: fee, NetAmount: net, FeePercentage: pct}
}

// ReferralShare is the referring group's cut: a percentage of the platform
// fee, not of the deal amount. It splits the platform's fee economics and
// never reduces the seller payout.
func ReferralShare(feeAmount, groupPercentage decimal.Decimal) decimal.Decimal {
	return feeAmount.Mul(groupPercentage).Div(hundred).RoundBank(Precision)
}
