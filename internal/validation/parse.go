package validation

import (
	"strings"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// TransactionInput is a parsed "<Date> <Account> <Type> <Amount>" line.
type TransactionInput struct {
	Date      time.Time
	AccountID string
	Type      domain.TransactionType
	Amount    decimal.Decimal
}

// RuleInput is a parsed "<Date> <RuleId> <Rate in %>" line.
type RuleInput struct {
	Date   time.Time
	RuleID string
	Rate   decimal.Decimal
}

// StatementInput is a parsed "<Account> <Year><Month>" line.
type StatementInput struct {
	AccountID string
	Year      int
	Month     time.Month
}

// ParseTransactionInput parses a transaction command.
func ParseTransactionInput(line string) (TransactionInput, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return TransactionInput{}, &domain.ErrValidation{Field: "input", Message: "expected <Date> <Account> <Type> <Amount>"}
	}

	date, err := ParseDate(fields[0])
	if err != nil {
		return TransactionInput{}, err
	}
	typ, err := ParseType(fields[2])
	if err != nil {
		return TransactionInput{}, err
	}
	amount, err := ParseAmount(fields[3])
	if err != nil {
		return TransactionInput{}, err
	}
	return TransactionInput{Date: date, AccountID: fields[1], Type: typ, Amount: amount}, nil
}

// ParseRuleInput parses an interest rule command.
func ParseRuleInput(line string) (RuleInput, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return RuleInput{}, &domain.ErrValidation{Field: "input", Message: "expected <Date> <RuleId> <Rate in %>"}
	}

	date, err := ParseDate(fields[0])
	if err != nil {
		return RuleInput{}, err
	}
	rate, err := ParseRate(fields[2])
	if err != nil {
		return RuleInput{}, err
	}
	return RuleInput{Date: date, RuleID: fields[1], Rate: rate}, nil
}

// ParseStatementInput parses a print statement command.
func ParseStatementInput(line string) (StatementInput, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return StatementInput{}, &domain.ErrValidation{Field: "input", Message: "expected <Account> <Year><Month>"}
	}

	year, month, err := domain.ParsePeriod(fields[1])
	if err != nil {
		return StatementInput{}, &domain.ErrValidation{Field: "period", Message: err.Error()}
	}
	return StatementInput{AccountID: fields[0], Year: year, Month: month}, nil
}

// ParseDate parses a YYYYMMDD field.
func ParseDate(s string) (time.Time, error) {
	d, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, &domain.ErrValidation{Field: "date", Message: err.Error()}
	}
	return d, nil
}

// ParseType accepts D or W, case-insensitive. Interest credits are never
// entered by hand.
func ParseType(s string) (domain.TransactionType, error) {
	typ, err := domain.ParseTransactionType(s)
	if err != nil || typ == domain.TransactionInterest {
		return "", &domain.ErrValidation{Field: "type", Message: "must be D or W"}
	}
	return typ, nil
}

// ParseAmount accepts a positive amount with at most two decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseDecimal("amount", s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	return d, nil
}

// ParseRate accepts a rate with at most two decimals, 0 < rate < 100.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := parseDecimal("rate", s)
	if err != nil {
		return decimal.Zero, err
	}
	if err := New().ValidateInterestRate(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || strings.ContainsAny(s, "eE") {
		return decimal.Zero, &domain.ErrValidation{Field: field, Message: "not a number: " + s}
	}
	if d.Exponent() < -2 && !d.Equal(d.Round(2)) {
		return decimal.Zero, &domain.ErrValidation{Field: field, Message: "at most two decimal places"}
	}
	return d, nil
}
