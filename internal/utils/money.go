package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// AmountInWords renders the bill amount line printed under the total
func AmountInWords(amount decimal.Decimal) string {
	return fmt.Sprintf("%s Rupees Only", amount.StringFixed(2))
}

// Money rounds an amount to paise
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// TaxFromInclusive splits the tax component at ratePct out of a tax-inclusive price.
// totalPct is the sum of every tax rate applied to the price.
func TaxFromInclusive(price, ratePct, totalPct decimal.Decimal) decimal.Decimal {
	if ratePct.IsZero() {
		return decimal.Zero
	}
	base := price.Mul(hundred).Div(hundred.Add(totalPct))
	return Money(base.Mul(ratePct).Div(hundred))
}
