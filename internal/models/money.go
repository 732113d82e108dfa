package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits kept for currency amounts.
const MoneyScale = 2

// OverpaymentTolerance is the largest unapplied remainder accepted when a
// payment is spread across invoices. It equals one minor currency unit.
// An accepted remainder is not recorded anywhere: only the applied amounts
// become payments, so a session's counted total excludes it.
var OverpaymentTolerance = decimal.New(1, -MoneyScale)

// RoundMoney rounds an amount to the currency scale.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
