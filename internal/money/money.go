// Package money converts between exact decimal amounts and the processor's
// integer minor units.
package money

import "github.com/shopspring/decimal"

// MinorUnitExponent is the number of decimal places of the settlement currency.
const MinorUnitExponent = 2

// ToMinorUnits converts amount to integer minor units, rounding half up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(MinorUnitExponent).Round(0).IntPart()
}

// HasMinorPrecision reports whether amount is a whole number of minor units.
func HasMinorPrecision(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(MinorUnitExponent))
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
