// Package service provides the use cases of the interest ledger. It sits
// between the inbound adapters (console, HTTP) and the ledger core, adding
// validation, tracing, metrics and logging.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/infra/observability"
	"github.com/boddenberg/interest-ledger-go/internal/ledger"
	"github.com/boddenberg/interest-ledger-go/internal/port"
	"github.com/boddenberg/interest-ledger-go/internal/statement"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/ledger")

// LedgerService orchestrates postings, interest rules and statements.
type LedgerService struct {
	ledger    *ledger.Ledger
	validator port.Validator
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewLedgerService creates the ledger service with all dependencies injected.
func NewLedgerService(
	l *ledger.Ledger,
	validator port.Validator,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		ledger:    l,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// Transactions
// ============================================================

// PostTransaction records a deposit or withdrawal. The account is created on
// its first successful posting.
func (s *LedgerService) PostTransaction(ctx context.Context, accountID string, date time.Time, typ domain.TransactionType, amount decimal.Decimal) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "LedgerService.PostTransaction", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("transaction.type", string(typ)),
	))
	defer span.End()

	var view port.AccountView = ledger.NewAccount(accountID)
	if acct, ok := s.ledger.Account(accountID); ok {
		view = acct
	}

	if err := s.validator.ValidateTransaction(view, typ, amount); err != nil {
		return nil, s.rejectTransaction(ctx, accountID, typ, amount, err)
	}

	tx, err := s.ledger.Post(accountID, date, typ, amount)
	if err != nil {
		return nil, s.rejectTransaction(ctx, accountID, typ, amount, err)
	}

	s.metrics.IncrTransaction(string(typ), "posted")
	s.logger.Info("transaction posted",
		traceID(ctx),
		zap.String("account_id", accountID),
		zap.String("txn_id", tx.ID),
		zap.String("type", typ.Label()),
		zap.String("amount", amount.StringFixed(2)),
	)
	return &tx, nil
}

func (s *LedgerService) rejectTransaction(ctx context.Context, accountID string, typ domain.TransactionType, amount decimal.Decimal, err error) error {
	trace.SpanFromContext(ctx).RecordError(err)
	s.metrics.IncrTransaction(string(typ), "rejected")
	s.logger.Warn("transaction rejected",
		traceID(ctx),
		zap.String("account_id", accountID),
		zap.String("type", string(typ)),
		zap.String("amount", amount.String()),
		zap.Error(err),
	)
	return err
}

// GetTransactions returns the account's transactions in posting order.
// An unknown account has none.
func (s *LedgerService) GetTransactions(ctx context.Context, accountID string) []domain.Transaction {
	ctx, span := tracer.Start(ctx, "LedgerService.GetTransactions")
	defer span.End()

	acct, ok := s.ledger.Account(accountID)
	if !ok {
		s.logger.Debug("transactions listed for unknown account", traceID(ctx), zap.String("account_id", accountID))
		return []domain.Transaction{}
	}
	return acct.Transactions()
}

// AccountCount returns how many accounts have been posted to.
func (s *LedgerService) AccountCount() int {
	return len(s.ledger.AccountIDs())
}

// ============================================================
// Interest rules
// ============================================================

// AddInterestRule defines a rule, replacing the rule with the same
// effective date and rule id if there is one.
func (s *LedgerService) AddInterestRule(ctx context.Context, date time.Time, ruleID string, rate decimal.Decimal) (*domain.InterestRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "LedgerService.AddInterestRule", trace.WithAttributes(
		attribute.String("rule.id", ruleID),
	))
	defer span.End()

	if ruleID == "" {
		err := &domain.ErrValidation{Field: "rule_id", Message: "is required"}
		span.RecordError(err)
		s.metrics.IncrRule("rejected")
		return nil, err
	}
	if err := s.validator.ValidateInterestRate(rate); err != nil {
		span.RecordError(err)
		s.metrics.IncrRule("rejected")
		s.logger.Warn("interest rule rejected",
			traceID(ctx),
			zap.String("rule_id", ruleID),
			zap.String("rate", rate.String()),
			zap.Error(err),
		)
		return nil, err
	}

	rule := domain.InterestRule{EffectiveDate: domain.DateOf(date), RuleID: ruleID, Rate: rate}
	result := "created"
	if s.ledger.Rules().AddOrReplace(rule) {
		result = "replaced"
	}

	s.metrics.IncrRule(result)
	s.logger.Info("interest rule "+result,
		traceID(ctx),
		zap.String("rule_id", ruleID),
		zap.String("effective_date", domain.FormatDate(rule.EffectiveDate)),
		zap.String("rate", rate.StringFixed(2)),
	)
	return &rule, nil
}

// InterestRules returns every rule ordered by effective date.
func (s *LedgerService) InterestRules(ctx context.Context) []domain.InterestRule {
	ctx, span := tracer.Start(ctx, "LedgerService.InterestRules")
	defer span.End()

	rules := s.ledger.Rules().AllRules()
	s.logger.Debug("interest rules listed", traceID(ctx), zap.Int("count", len(rules)))
	return rules
}

// ============================================================
// Statements
// ============================================================

// Statement produces the monthly statement of an account, crediting the
// month's interest the first time the month is requested.
func (s *LedgerService) Statement(ctx context.Context, accountID string, year int, month time.Month) (*domain.Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "LedgerService.Statement", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("statement.period", fmt.Sprintf("%04d%02d", year, int(month))),
		attribute.String("statement.run_id", runID),
	))
	defer span.End()

	st, err := s.ledger.Statement(accountID, year, month)
	if err != nil {
		span.RecordError(err)
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			s.metrics.IncrStatement("not_found")
		}
		return nil, err
	}

	s.metrics.IncrStatement("generated")
	if st.Credited && st.Interest != nil {
		s.metrics.AddInterestCredited(st.Interest.Amount.InexactFloat64())
		s.logger.Info("interest credited",
			traceID(ctx),
			zap.String("run_id", runID),
			zap.String("account_id", accountID),
			zap.String("date", domain.FormatDate(st.Interest.Date)),
			zap.String("amount", st.Interest.Amount.StringFixed(2)),
		)
	}
	s.logger.Debug("statement generated",
		traceID(ctx),
		zap.String("run_id", runID),
		zap.String("account_id", accountID),
		zap.Int("lines", len(st.Lines)),
		zap.String("closing_balance", st.ClosingBalance.StringFixed(2)),
	)
	return &st, nil
}

// GenerateStatement renders the monthly statement as text. An unknown
// account yields statement.AccountNotFound.
func (s *LedgerService) GenerateStatement(ctx context.Context, accountID string, year int, month time.Month) string {
	st, err := s.Statement(ctx, accountID, year, month)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return statement.AccountNotFound
		}
		return err.Error()
	}
	return statement.Render(*st)
}

// ============================================================
// Snapshots
// ============================================================

// Snapshot exports every account and rule.
func (s *LedgerService) Snapshot() domain.LedgerSnapshot {
	return s.ledger.Snapshot()
}

// Restore replaces the ledger state.
func (s *LedgerService) Restore(snap domain.LedgerSnapshot) {
	s.ledger.Restore(snap)
	s.logger.Info("ledger restored",
		zap.Int("accounts", len(snap.Accounts)),
		zap.Int("rules", len(snap.Rules)),
	)
}

// traceID ties a log line to the span carried by ctx.
func traceID(ctx context.Context) zap.Field {
	return zap.String("trace_id", trace.SpanContextFromContext(ctx).TraceID().String())
}
