package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Ledger owns every account and the single bank-wide rule registry.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*Account
	rules    *RuleRegistry
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		accounts: make(map[string]*Account),
		rules:    NewRuleRegistry(),
	}
}

// Rules returns the bank-wide rule registry.
func (l *Ledger) Rules() *RuleRegistry {
	return l.rules
}

// Account looks up an account that has been posted to.
func (l *Ledger) Account(id string) (*Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[id]
	return a, ok
}

// AccountIDs returns every known account id, sorted.
func (l *Ledger) AccountIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Post forwards to Account.Post, creating the account on first touch. An
// account only becomes known to the ledger once a posting succeeds, so a
// rejected first withdrawal leaves no trace.
func (l *Ledger) Post(accountID string, date time.Time, typ domain.TransactionType, amount decimal.Decimal) (domain.Transaction, error) {
	if a, ok := l.Account(accountID); ok {
		return a.Post(date, typ, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Re-check: another caller may have created it meanwhile.
	if a, ok := l.accounts[accountID]; ok {
		return a.Post(date, typ, amount)
	}
	a := NewAccount(accountID)
	tx, err := a.Post(date, typ, amount)
	if err != nil {
		return domain.Transaction{}, err
	}
	l.accounts[accountID] = a
	return tx, nil
}

// Statement builds the monthly statement of an account, crediting the
// month's interest on its last day if it has not been credited before.
// Generating the same month twice never credits interest twice.
func (l *Ledger) Statement(accountID string, year int, month time.Month) (domain.Statement, error) {
	a, ok := l.Account(accountID)
	if !ok {
		return domain.Statement{}, &domain.ErrNotFound{Resource: "account", ID: accountID}
	}

	first, last := domain.MonthBounds(year, month)

	a.mu.Lock()
	defer a.mu.Unlock()

	st := domain.Statement{
		AccountID:      accountID,
		Year:           year,
		Month:          month,
		OpeningBalance: a.balanceAsOf(first.AddDate(0, 0, -1)),
	}

	interestIdx := a.interestCreditOn(last)
	if interestIdx < 0 {
		if amount, ok := accrue(a, l.rules, first, last); ok {
			if _, err := a.post(last, domain.TransactionInterest, amount); err != nil {
				return domain.Statement{}, err
			}
			interestIdx = len(a.log) - 1
			st.Credited = true
		}
	}

	running := st.OpeningBalance
	for _, i := range a.indexesInRange(first, last) {
		if i == interestIdx {
			continue
		}
		running = running.Add(a.log[i].Signed())
		st.Lines = append(st.Lines, domain.StatementLine{Transaction: a.log[i], Balance: running})
	}
	if interestIdx >= 0 {
		credit := a.log[interestIdx]
		running = running.Add(credit.Signed())
		st.Lines = append(st.Lines, domain.StatementLine{Transaction: credit, Balance: running})
		st.Interest = &credit
	}
	st.ClosingBalance = running
	return st, nil
}

// interestCreditOn returns the log position of the interest credit dated
// on day, or -1. Requires a.mu.
func (a *Account) interestCreditOn(day time.Time) int {
	for i, tx := range a.log {
		if tx.Type == domain.TransactionInterest && tx.Date.Equal(day) {
			return i
		}
	}
	return -1
}

// Snapshot exports the ledger state.
func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	snap := domain.LedgerSnapshot{Rules: l.rules.writeOrder()}
	for _, id := range l.AccountIDs() {
		a, _ := l.Account(id)
		snap.Accounts = append(snap.Accounts, domain.AccountRecord{
			ID:           id,
			Transactions: a.Transactions(),
		})
	}
	return snap
}

// Restore replaces the ledger state with snap. Accounts with an empty log
// are skipped.
func (l *Ledger) Restore(snap domain.LedgerSnapshot) {
	accounts := make(map[string]*Account, len(snap.Accounts))
	for _, rec := range snap.Accounts {
		if len(rec.Transactions) == 0 {
			continue
		}
		a := NewAccount(rec.ID)
		a.restore(rec.Transactions)
		accounts[rec.ID] = a
	}

	l.rules.reset(snap.Rules)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = accounts
}
