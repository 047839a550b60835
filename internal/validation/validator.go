// Package validation checks ledger input before it reaches the core, and
// parses the whitespace-separated text commands of the console.
package validation

import (
	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/port"

	"github.com/shopspring/decimal"
)

var maxRate = decimal.NewFromInt(100)

// Validator is the default port.Validator.
type Validator struct{}

var _ port.Validator = (*Validator)(nil)

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// ValidateTransaction implements port.Validator. A nil acct is treated as
// an account with no postings.
func (v *Validator) ValidateTransaction(acct port.AccountView, typ domain.TransactionType, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	if typ != domain.TransactionDeposit && typ != domain.TransactionWithdrawal {
		return &domain.ErrValidation{Field: "type", Message: "must be D or W"}
	}

	empty := acct == nil || acct.Empty()
	if empty && typ != domain.TransactionDeposit {
		return domain.ErrInvalidFirstTransaction
	}
	if typ == domain.TransactionWithdrawal {
		balance := decimal.Zero
		if acct != nil {
			balance = acct.Balance()
		}
		if amount.GreaterThan(balance) {
			return &domain.ErrInsufficientFunds{Available: balance, Required: amount}
		}
	}
	return nil
}

// ValidateInterestRate implements port.Validator.
func (v *Validator) ValidateInterestRate(rate decimal.Decimal) error {
	if !rate.IsPositive() || !rate.LessThan(maxRate) {
		return &domain.ErrValidation{Field: "rate", Message: "must be greater than 0 and less than 100"}
	}
	return nil
}
