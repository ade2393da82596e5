package orders

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroExponent lists currencies without a minor unit.
var zeroExponent = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// MajorUnits converts an amount in minor units of currency to major units.
func MajorUnits(minor int64, currency string) decimal.Decimal {
	d := decimal.NewFromInt(minor)
	if zeroExponent[strings.ToUpper(currency)] {
		return d
	}
	return d.Shift(-2)
}

// FormatAmount renders minor units as "<major> <currency>", e.g. "500.00 RUB".
func FormatAmount(minor int64, currency string) string {
	places := int32(2)
	if zeroExponent[strings.ToUpper(currency)] {
		places = 0
	}
	s := MajorUnits(minor, currency).StringFixed(places)
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}

// Amount renders the charged price with its currency.
func (o Order) Amount() string {
	return FormatAmount(o.Price, o.Currency)
}
