// Package port defines the interfaces (ports) the ledger core consumes.
// Following hexagonal architecture, these ports decouple the service layer
// from validation, caching and persistence implementations.
package port

import (
	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

// AccountView is the read-only state a validator may inspect.
type AccountView interface {
	Balance() decimal.Decimal
	Empty() bool
}

// Validator is the pre-check gate in front of the ledger. The ledger still
// enforces first-deposit and sufficient-balance on its own.
type Validator interface {
	// ValidateTransaction checks amount > 0, type D or W, first posting is a
	// deposit and a withdrawal does not exceed the balance.
	ValidateTransaction(acct AccountView, typ domain.TransactionType, amount decimal.Decimal) error
	// ValidateInterestRate checks 0 < rate < 100.
	ValidateInterestRate(rate decimal.Decimal) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// StoredResponse is an HTTP response kept for idempotent replay.
// A Pending entry reserves the key while the first request is running.
type StoredResponse struct {
	Route   string // method and path the key was first used with
	Pending bool
	Status  int
	Body    []byte
}

// SnapshotStore persists ledger snapshots.
type SnapshotStore interface {
	Load() (domain.LedgerSnapshot, error)
	Save(snap domain.LedgerSnapshot) error
}
