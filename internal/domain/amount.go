package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// amountEpsilon is the tolerance used when comparing monetary amounts.
var amountEpsilon = decimal.New(1, -8)

// Amount is a monetary value in major units. The gateway renders amounts
// either as JSON numbers or as decimal strings ("100.0000"); both decode.
type Amount float64

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, err)
	}
	*a = Amount(d.InexactFloat64())
	return nil
}

// Decimal returns the amount as an exact decimal of its shortest float
// representation.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(a))
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// AmountsEqual reports whether a and b differ by at most 1e-8.
func AmountsEqual(a, b Amount) bool {
	return a.Decimal().Sub(b.Decimal()).Abs().LessThanOrEqual(amountEpsilon)
}

// AmountAtLeast reports whether a >= b within the comparison tolerance.
func AmountAtLeast(a, b Amount) bool {
	return a.Decimal().GreaterThan(b.Decimal()) || AmountsEqual(a, b)
}

// SumAmounts adds amounts in decimal arithmetic.
func SumAmounts(amounts ...Amount) Amount {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a.Decimal())
	}
	return Amount(sum.InexactFloat64())
}
