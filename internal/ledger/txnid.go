package ledger

import (
	"fmt"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
)

// NextTransactionID returns the id for a new transaction dated date.
// The NN counter is 1-based and restarts every calendar day; every
// transaction already on that date counts, interest credits included.
func NextTransactionID(log []domain.Transaction, date time.Time) string {
	date = domain.DateOf(date)
	seq := 1
	for _, tx := range log {
		if tx.Date.Equal(date) {
			seq++
		}
	}
	return fmt.Sprintf("%s-%02d", domain.FormatDate(date), seq)
}
