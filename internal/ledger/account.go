// Package ledger is the bookkeeping and interest engine: accounts and
// their transaction logs, the bank-wide interest rule registry, and the
// daily accrual that produces the month-end interest credit.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Account owns an ordered transaction log. The log is kept in posting
// order, which is not necessarily date order.
type Account struct {
	mu      sync.Mutex
	id      string
	log     []domain.Transaction
	balance decimal.Decimal
}

// NewAccount creates an empty account. It is not registered in any ledger.
func NewAccount(id string) *Account {
	return &Account{id: id}
}

// ID returns the account identifier.
func (a *Account) ID() string {
	return a.id
}

// Balance returns the current balance over the whole log.
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Empty reports whether nothing has been posted yet.
func (a *Account) Empty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.log) == 0
}

// Transactions returns a copy of the log in posting order.
func (a *Account) Transactions() []domain.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Transaction, len(a.log))
	copy(out, a.log)
	return out
}

// Post appends a transaction and updates the balance.
func (a *Account) Post(date time.Time, typ domain.TransactionType, amount decimal.Decimal) (domain.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.post(date, typ, amount)
}

// BalanceAsOf returns the signed sum of every transaction dated on or
// before date.
func (a *Account) BalanceAsOf(date time.Time) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balanceAsOf(date)
}

// TransactionsInRange returns transactions dated within [start, end],
// sorted by date with ties kept in posting order.
func (a *Account) TransactionsInRange(start, end time.Time) []domain.Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx := a.indexesInRange(start, end)
	out := make([]domain.Transaction, len(idx))
	for i, j := range idx {
		out[i] = a.log[j]
	}
	return out
}

// post requires a.mu.
func (a *Account) post(date time.Time, typ domain.TransactionType, amount decimal.Decimal) (domain.Transaction, error) {
	if len(a.log) == 0 && typ != domain.TransactionDeposit {
		return domain.Transaction{}, domain.ErrInvalidFirstTransaction
	}
	date = domain.DateOf(date)
	if typ == domain.TransactionWithdrawal {
		if available := a.availableFrom(date); amount.GreaterThan(available) {
			return domain.Transaction{}, &domain.ErrInsufficientFunds{Available: available, Required: amount}
		}
	}

	tx := domain.Transaction{
		Date:   date,
		Type:   typ,
		Amount: amount,
	}
	if typ != domain.TransactionInterest {
		tx.ID = NextTransactionID(a.log, date)
	}

	a.log = append(a.log, tx)
	a.balance = a.balance.Add(tx.Signed())
	return tx, nil
}

// balanceAsOf requires a.mu.
func (a *Account) balanceAsOf(date time.Time) decimal.Decimal {
	date = domain.DateOf(date)
	sum := decimal.Zero
	for _, tx := range a.log {
		if !tx.Date.After(date) {
			sum = sum.Add(tx.Signed())
		}
	}
	return sum
}

// availableFrom is the lowest running balance, in date order, from the end
// of date onward. A withdrawal dated date sorts after every posting on that
// date, so anything up to this amount keeps all later balances >= 0.
// Requires a.mu.
func (a *Account) availableFrom(date time.Time) decimal.Decimal {
	idx := make([]int, len(a.log))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return a.log[idx[i]].Date.Before(a.log[idx[j]].Date)
	})

	running := decimal.Zero
	var lowest *decimal.Decimal
	for _, i := range idx {
		tx := a.log[i]
		if tx.Date.After(date) && lowest == nil {
			v := running
			lowest = &v
		}
		running = running.Add(tx.Signed())
		if lowest != nil && running.LessThan(*lowest) {
			*lowest = running
		}
	}
	if lowest == nil {
		return running
	}
	return *lowest
}

// indexesInRange returns log positions in display order. Requires a.mu.
func (a *Account) indexesInRange(start, end time.Time) []int {
	start, end = domain.DateOf(start), domain.DateOf(end)
	var idx []int
	for i, tx := range a.log {
		if !tx.Date.Before(start) && !tx.Date.After(end) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return a.log[idx[i]].Date.Before(a.log[idx[j]].Date)
	})
	return idx
}

// restore replaces the log wholesale, recomputing the balance. Used when
// loading a snapshot; postings are trusted and not re-validated.
func (a *Account) restore(log []domain.Transaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.log = make([]domain.Transaction, 0, len(log))
	a.balance = decimal.Zero
	for _, tx := range log {
		tx.Date = domain.DateOf(tx.Date)
		a.log = append(a.log, tx)
		a.balance = a.balance.Add(tx.Signed())
	}
}
