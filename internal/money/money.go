// Package money is the single entry and exit path for monetary values.
// Every component parses and quantizes amounts through it so that precision
// and rounding stay consistent between the flat file and the warehouse.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places3 is the precision of every financial field on sales records.
const Places3 int32 = 3

// Zero returns the zero value quantized to the given number of places.
func Zero(places int32) decimal.Decimal {
	return decimal.Zero.Round(places)
}

// Quantize rounds d to the given number of fractional digits, half up.
func Quantize(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Parse converts a raw scalar into a quantized decimal. It accepts comma or
// dot decimal separators and tolerates surrounding whitespace. Missing,
// blank, or unparseable input yields the zero value at the requested
// precision; Parse never fails.
func Parse(raw string, places int32) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Zero(places)
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero(places)
	}
	return d.Round(places)
}

// Mul multiplies price by a quantity and quantizes the result. This is the
// one formula the revenue invariant is defined in terms of.
func Mul(price decimal.Decimal, quantity int, places int32) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(places)
}
