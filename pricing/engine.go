package pricing

import (
	"math/big"
	"strconv"
)

// ComputeQuote prices an ordered list of validated fields under the given
// program. The computation is pure: no clock, no randomness, no I/O, and no
// state outliving the call, so identical inputs always yield a
// byte-identical Quote and concurrent calls need no coordination.
//
// Each line subtotal is acreage times the tier rate in exact rational
// arithmetic, rounded half-up to whole cents once at the line item. Totals
// are sums of already-rounded line items plus flat fees, which keeps the
// annual_total invariant exact by construction.
func ComputeQuote(schedule *Schedule, program Program, fields []Field) (Quote, error) {
	if err := schedule.Validate(); err != nil {
		return Quote{}, err
	}
	if !program.valid() {
		return Quote{}, validationErrorf("unknown program %q", string(program))
	}
	if err := ValidateFields(fields); err != nil {
		return Quote{}, err
	}

	tiers := schedule.Programs[program]
	quote := Quote{
		Program: program,
		Lines:   make([]LineItem, 0, len(fields)),
	}

	cumulative := 0.0
	var annual Amount
	for _, f := range fields {
		rate := rateAt(tiers, cumulative)
		subtotal := roundRatToCents(new(big.Rat).Mul(acresRat(f.Acres), rate.Rat()))
		quote.Lines = append(quote.Lines, LineItem{
			FieldID:     f.ID,
			FieldName:   f.Name,
			Acres:       f.Acres,
			RatePerAcre: rate,
			Subtotal:    subtotal,
		})
		annual += subtotal
		cumulative += f.Acres
	}

	if program == ProgramSprayerPlusRemote {
		quote.SprayerFee = schedule.Fees.SprayerSetup
	}
	quote.AnnualTotal = annual + quote.SprayerFee
	quote.TotalDueFirstYear = quote.AnnualTotal + schedule.Fees.Onboarding
	return quote, nil
}

// acresRat converts acreage to an exact rational via its shortest decimal
// form, so 3.335 acres means 3335/1000 and not the nearest binary double.
func acresRat(f float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return new(big.Rat).SetFloat64(f)
	}
	return r
}
