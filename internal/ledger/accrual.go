package ledger

import (
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	percent    = decimal.NewFromInt(100)
	daysInYear = decimal.NewFromInt(365)
)

// balanceHistory answers "what was the balance at the end of day d".
type balanceHistory interface {
	balanceAsOf(date time.Time) decimal.Decimal
}

// rateTable answers "which annual rate applied on day d".
type rateTable interface {
	RateEffectiveOn(date time.Time) (decimal.Decimal, error)
}

// AccrueMonthlyInterest computes the interest earned by acct over one
// calendar month, rounded half-up to cents. The second result is false
// when nothing is owed (no rule in force, no balance, or a total that
// rounds to 0.00).
func AccrueMonthlyInterest(acct *Account, rules *RuleRegistry, year int, month time.Month) (decimal.Decimal, bool) {
	acct.mu.Lock()
	defer acct.mu.Unlock()

	first, last := domain.MonthBounds(year, month)
	return accrue(acct, rules, first, last)
}

// accrue walks every day in [first, last]. Each day contributes
// balance * rate / 100 / 365; the division is applied once to the summed
// balance*rate products to keep full precision until the final rounding.
func accrue(h balanceHistory, rules rateTable, first, last time.Time) (decimal.Decimal, bool) {
	sum := decimal.Zero
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		rate, err := rules.RateEffectiveOn(d)
		if err != nil {
			continue // no rule yet: 0% day
		}
		sum = sum.Add(h.balanceAsOf(d).Mul(rate))
	}

	interest := sum.Div(percent).Div(daysInYear).Round(2)
	if !interest.IsPositive() {
		return decimal.Zero, false
	}
	return interest, true
}
