package models

import "github.com/shopspring/decimal"

type Currency string
type TaxType string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

const (
	TaxVAT TaxType = "VAT"
)

// IsSupported reports whether c is a currency the gateway settles in.
func (c Currency) IsSupported() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD:
		return true
	default:
		return false
	}
}

// Tax is a single line of the tax breakdown sent to an acquirer.
type Tax struct {
	Type  TaxType         `json:"type"`
	Base  decimal.Decimal `json:"base"`
	Value decimal.Decimal `json:"value"`
}

// VATBreakdown expands a VAT amount into the tax lines of a capture.
// The taxable base is the total less tip and VAT. A zero VAT yields no lines.
func VATBreakdown(total, tip, vat decimal.Decimal) []Tax {
	if vat.IsZero() {
		return []Tax{}
	}
	return []Tax{{
		Type:  TaxVAT,
		Base:  total.Sub(tip).Sub(vat),
		Value: vat,
	}}
}
