// Package statement renders ledger views as fixed-width text tables.
package statement

import (
	"fmt"
	"strings"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// AccountNotFound is returned in place of a table for unknown accounts.
const AccountNotFound = "Account not found."

const (
	statementHeader    = "| Date     | Txn Id      | Type | Amount  | Balance |"
	transactionsHeader = "| Date     | Txn Id      | Type | Amount |"
	rulesHeader        = "| Date     | RuleId | Rate (%) |"
)

// Render draws a monthly statement. Amount and balance columns are
// right-aligned with two decimals; the interest line has a blank id.
func Render(st domain.Statement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s\n", st.AccountID)
	b.WriteString(statementHeader)
	for _, line := range st.Lines {
		tx := line.Transaction
		fmt.Fprintf(&b, "\n| %s | %-11s | %-4s | %7s | %7s |",
			domain.FormatDate(tx.Date), tx.ID, string(tx.Type), money(tx.Amount), money(line.Balance))
	}
	return b.String()
}

// RenderTransactions lists an account's log in posting order.
func RenderTransactions(accountID string, txs []domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Account: %s\n", accountID)
	b.WriteString(transactionsHeader)
	for _, tx := range txs {
		fmt.Fprintf(&b, "\n| %s | %-11s | %-4s | %6s |",
			domain.FormatDate(tx.Date), tx.ID, string(tx.Type), money(tx.Amount))
	}
	return b.String()
}

// RenderRules lists interest rules.
func RenderRules(rules []domain.InterestRule) string {
	var b strings.Builder
	b.WriteString("Interest rules:\n")
	b.WriteString(rulesHeader)
	for _, r := range rules {
		fmt.Fprintf(&b, "\n| %s | %-6s | %8s |",
			domain.FormatDate(r.EffectiveDate), r.RuleID, money(r.Rate))
	}
	return b.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
