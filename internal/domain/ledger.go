package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Transactions
// ============================================================

// TransactionType is the single-letter code of a posting.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "D"
	TransactionWithdrawal TransactionType = "W"
	TransactionInterest   TransactionType = "I"
)

// ParseTransactionType accepts D, W or I in either case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TransactionDeposit, TransactionWithdrawal, TransactionInterest:
		return t, nil
	}
	return "", fmt.Errorf("unknown transaction type %q", s)
}

// Label returns a lowercase name, used as a metric and log label.
func (t TransactionType) Label() string {
	switch t {
	case TransactionDeposit:
		return "deposit"
	case TransactionWithdrawal:
		return "withdrawal"
	case TransactionInterest:
		return "interest"
	}
	return "unknown"
}

// Transaction is an immutable posting on an account.
type Transaction struct {
	ID     string          `json:"id"` // YYYYMMDD-NN, empty for interest credits
	Date   time.Time       `json:"date"`
	Type   TransactionType `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// Signed returns the amount with the sign it contributes to the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ============================================================
// Interest rules
// ============================================================

// InterestRule sets the annual interest rate (in percent) from
// EffectiveDate until a later rule supersedes it.
type InterestRule struct {
	EffectiveDate time.Time       `json:"effective_date"`
	RuleID        string          `json:"rule_id"`
	Rate          decimal.Decimal `json:"rate"`
}

// ============================================================
// Statements
// ============================================================

// StatementLine is one displayed row with the balance after it.
type StatementLine struct {
	Transaction Transaction
	Balance     decimal.Decimal
}

// Statement is the monthly view of an account.
type Statement struct {
	AccountID      string
	Year           int
	Month          time.Month
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	Lines          []StatementLine // interest line, when present, is last

	// Interest is the month-end credit, nil when nothing accrued.
	Interest *Transaction
	// Credited reports whether Interest was posted by this statement run.
	Credited bool
}

// ============================================================
// Snapshots
// ============================================================

// AccountRecord is the persisted form of an account: its log in posting order.
type AccountRecord struct {
	ID           string        `json:"id"`
	Transactions []Transaction `json:"transactions"`
}

// LedgerSnapshot is the full state of a ledger.
type LedgerSnapshot struct {
	Accounts []AccountRecord `json:"accounts"`
	Rules    []InterestRule  `json:"rules"` // write order
}

// LedgerMetrics is the JSON view of the ledger counters.
type LedgerMetrics struct {
	TransactionsPosted   int64   `json:"transactions_posted"`
	TransactionsRejected int64   `json:"transactions_rejected"`
	RulesCreated         int64   `json:"rules_created"`
	RulesReplaced        int64   `json:"rules_replaced"`
	StatementsGenerated  int64   `json:"statements_generated"`
	InterestCredited     float64 `json:"interest_credited"`
	Period               string  `json:"period"`
}
