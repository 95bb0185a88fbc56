package pricing

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Amount is a currency value in whole cents. Quotes are assembled from
// Amounts so that serialising the same inputs twice produces byte-identical
// output, which float arithmetic cannot guarantee.
type Amount int64

var ratHundred = big.NewRat(100, 1)

// ParseAmount parses a decimal currency string such as "7", "7.5" or
// "2000.00" into cents. More than two fraction digits are rejected because
// the schedule is expressed in whole cents.
func ParseAmount(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty amount")
	}
	negative := false
	if strings.HasPrefix(trimmed, "-") {
		negative = true
		trimmed = trimmed[1:]
	}
	intPart := trimmed
	fracPart := ""
	if dot := strings.IndexByte(trimmed, '.'); dot >= 0 {
		intPart = trimmed[:dot]
		fracPart = trimmed[dot+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		return 0, fmt.Errorf("amount %q has more than two fraction digits", s)
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := whole*100 + frac
	if negative {
		cents = -cents
	}
	return Amount(cents), nil
}

// MustParseAmount is a test and fixture helper.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount with exactly two fraction digits.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Rat returns the amount in currency units as an exact rational.
func (a Amount) Rat() *big.Rat {
	return big.NewRat(int64(a), 100)
}

// MarshalJSON emits a plain JSON number with two fraction digits, e.g. 45.00.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// roundRatToCents converts a currency value in units to whole cents using
// round-half-up (half away from zero for negatives). This is the only place
// the engine rounds; intermediate math stays in big.Rat.
func roundRatToCents(x *big.Rat) Amount {
	scaled := new(big.Rat).Mul(x, ratHundred)
	num := new(big.Int).Set(scaled.Num())
	den := scaled.Denom()
	negative := num.Sign() < 0
	if negative {
		num.Neg(num)
	}
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	// half-up: bump when 2*rem >= den
	rem.Lsh(rem, 1)
	if rem.Cmp(den) >= 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if negative {
		quo.Neg(quo)
	}
	return Amount(quo.Int64())
}
