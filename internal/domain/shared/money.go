package shared

import "github.com/shopspring/decimal"

const (
	// InternalPrecision is the number of fractional digits kept for stored
	// and intermediate amounts.
	InternalPrecision int32 = 10

	// CurrencyPrecision is applied only when amounts leave the ledger.
	CurrencyPrecision int32 = 2
)

// RoundCurrency rounds an amount to currency precision
func RoundCurrency(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPrecision)
}

// FormatAmount renders an amount as a fixed two-decimal string
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(CurrencyPrecision)
}
