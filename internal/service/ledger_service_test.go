package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/infra/observability"
	"github.com/boddenberg/interest-ledger-go/internal/ledger"
	"github.com/boddenberg/interest-ledger-go/internal/port"
	"github.com/boddenberg/interest-ledger-go/internal/service"
	"github.com/boddenberg/interest-ledger-go/internal/statement"
	"github.com/boddenberg/interest-ledger-go/internal/validation"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// --- Mocks ---

type mockValidator struct {
	txErr    error
	rateErr  error
	empties  []bool
	balances []decimal.Decimal
}

func (m *mockValidator) ValidateTransaction(acct port.AccountView, _ domain.TransactionType, _ decimal.Decimal) error {
	m.empties = append(m.empties, acct.Empty())
	m.balances = append(m.balances, acct.Balance())
	return m.txErr
}

func (m *mockValidator) ValidateInterestRate(_ decimal.Decimal) error {
	return m.rateErr
}

// --- Helpers ---

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(v port.Validator) (*service.LedgerService, *observability.Metrics) {
	m := observability.NewMetrics()
	return service.NewLedgerService(ledger.New(), v, m, zap.NewNop()), m
}

func seed(t *testing.T, svc *service.LedgerService) {
	t.Helper()
	ctx := context.Background()

	for _, r := range []struct {
		date time.Time
		id   string
		rate string
	}{
		{domain.NewDate(2023, time.January, 1), "RULE01", "1.95"},
		{domain.NewDate(2023, time.May, 20), "RULE02", "1.90"},
		{domain.NewDate(2023, time.June, 15), "RULE03", "2.20"},
	} {
		if _, err := svc.AddInterestRule(ctx, r.date, r.id, amt(r.rate)); err != nil {
			t.Fatalf("add rule %s: %v", r.id, err)
		}
	}

	for _, tx := range []struct {
		date   time.Time
		typ    domain.TransactionType
		amount string
	}{
		{domain.NewDate(2023, time.May, 5), domain.TransactionDeposit, "100.00"},
		{domain.NewDate(2023, time.June, 1), domain.TransactionDeposit, "150.00"},
		{domain.NewDate(2023, time.June, 26), domain.TransactionWithdrawal, "20.00"},
		{domain.NewDate(2023, time.June, 26), domain.TransactionWithdrawal, "100.00"},
	} {
		if _, err := svc.PostTransaction(ctx, "AC001", tx.date, tx.typ, amt(tx.amount)); err != nil {
			t.Fatalf("post %s %s: %v", tx.typ, tx.amount, err)
		}
	}
}

// --- Tests ---

func TestPostTransaction_Success(t *testing.T) {
	svc, m := newService(validation.New())

	tx, err := svc.PostTransaction(context.Background(), "AC001", domain.NewDate(2023, time.June, 26), domain.TransactionDeposit, amt("100"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tx.ID != "20230626-01" {
		t.Errorf("expected id '20230626-01', got '%s'", tx.ID)
	}
	if svc.AccountCount() != 1 {
		t.Errorf("expected 1 account, got %d", svc.AccountCount())
	}
	if got := m.Snapshot().TransactionsPosted; got != 1 {
		t.Errorf("expected 1 posted, got %d", got)
	}
}

func TestPostTransaction_ValidatorRejects(t *testing.T) {
	v := &mockValidator{txErr: &domain.ErrValidation{Field: "amount", Message: "nope"}}
	svc, m := newService(v)

	_, err := svc.PostTransaction(context.Background(), "AC001", domain.NewDate(2023, time.June, 26), domain.TransactionDeposit, amt("100"))
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if svc.AccountCount() != 0 {
		t.Error("expected no account to be created")
	}
	if got := m.Snapshot().TransactionsRejected; got != 1 {
		t.Errorf("expected 1 rejected, got %d", got)
	}
}

func TestPostTransaction_ValidatorSeesEmptyAccountFirst(t *testing.T) {
	v := &mockValidator{}
	svc, _ := newService(v)
	ctx := context.Background()

	_, _ = svc.PostTransaction(ctx, "AC001", domain.NewDate(2023, time.June, 1), domain.TransactionDeposit, amt("10"))
	_, _ = svc.PostTransaction(ctx, "AC001", domain.NewDate(2023, time.June, 2), domain.TransactionDeposit, amt("5"))

	if len(v.empties) != 2 {
		t.Fatalf("expected 2 validator calls, got %d", len(v.empties))
	}
	if !v.empties[0] || v.empties[1] {
		t.Errorf("expected empty then non-empty account, got %v", v.empties)
	}
	if !v.balances[1].Equal(amt("10")) {
		t.Errorf("expected second view balance 10, got %s", v.balances[1])
	}
}

func TestPostTransaction_CoreEnforcesRulesWhenValidatorIsLax(t *testing.T) {
	svc, _ := newService(&mockValidator{})

	_, err := svc.PostTransaction(context.Background(), "AC001", domain.NewDate(2023, time.June, 1), domain.TransactionWithdrawal, amt("10"))
	if !errors.Is(err, domain.ErrInvalidFirstTransaction) {
		t.Fatalf("expected ErrInvalidFirstTransaction, got %v", err)
	}
}

func TestPostTransaction_InsufficientFunds(t *testing.T) {
	svc, _ := newService(validation.New())
	ctx := context.Background()

	if _, err := svc.PostTransaction(ctx, "AC001", domain.NewDate(2023, time.June, 1), domain.TransactionDeposit, amt("50")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	_, err := svc.PostTransaction(ctx, "AC001", domain.NewDate(2023, time.June, 2), domain.TransactionWithdrawal, amt("50.01"))
	var ife *domain.ErrInsufficientFunds
	if !errors.As(err, &ife) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestPostTransaction_CancelledContext(t *testing.T) {
	svc, _ := newService(validation.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.PostTransaction(ctx, "AC001", domain.NewDate(2023, time.June, 1), domain.TransactionDeposit, amt("1")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGetTransactions_UnknownAccount(t *testing.T) {
	svc, _ := newService(validation.New())

	txs := svc.GetTransactions(context.Background(), "NOPE")
	if txs == nil || len(txs) != 0 {
		t.Errorf("expected empty slice, got %v", txs)
	}
}

func TestAddInterestRule_ReplaceSameDateAndID(t *testing.T) {
	svc, m := newService(validation.New())
	ctx := context.Background()
	date := domain.NewDate(2023, time.June, 15)

	if _, err := svc.AddInterestRule(ctx, date, "RULE03", amt("2.20")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := svc.AddInterestRule(ctx, date, "RULE03", amt("2.50")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rules := svc.InterestRules(ctx)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if !rules[0].Rate.Equal(amt("2.5")) {
		t.Errorf("expected rate 2.50, got %s", rules[0].Rate)
	}
	snap := m.Snapshot()
	if snap.RulesCreated != 1 || snap.RulesReplaced != 1 {
		t.Errorf("expected 1 created / 1 replaced, got %d / %d", snap.RulesCreated, snap.RulesReplaced)
	}
}

func TestAddInterestRule_SameDateOtherIDCoexists(t *testing.T) {
	svc, _ := newService(validation.New())
	ctx := context.Background()
	date := domain.NewDate(2023, time.June, 15)

	_, _ = svc.AddInterestRule(ctx, date, "RULE03", amt("2.20"))
	_, _ = svc.AddInterestRule(ctx, date, "RULE04", amt("2.50"))

	if n := len(svc.InterestRules(ctx)); n != 2 {
		t.Errorf("expected 2 rules, got %d", n)
	}
}

func TestAddInterestRule_MissingID(t *testing.T) {
	svc, _ := newService(validation.New())

	_, err := svc.AddInterestRule(context.Background(), domain.NewDate(2023, time.June, 15), "", amt("2"))
	var ve *domain.ErrValidation
	if !errors.As(err, &ve) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAddInterestRule_InvalidRate(t *testing.T) {
	svc, _ := newService(validation.New())

	for _, rate := range []string{"0", "100", "-2"} {
		_, err := svc.AddInterestRule(context.Background(), domain.NewDate(2023, time.June, 15), "RULE01", amt(rate))
		var ve *domain.ErrValidation
		if !errors.As(err, &ve) {
			t.Errorf("rate %s: expected ErrValidation, got %v", rate, err)
		}
	}
	if len(svc.InterestRules(context.Background())) != 0 {
		t.Error("expected no rules stored")
	}
}

func TestGenerateStatement_ReferenceScenario(t *testing.T) {
	svc, m := newService(validation.New())
	seed(t, svc)

	got := svc.GenerateStatement(context.Background(), "AC001", 2023, time.June)
	want := strings.Join([]string{
		"Account: AC001",
		"| Date     | Txn Id      | Type | Amount  | Balance |",
		"| 20230601 | 20230601-01 | D    |  150.00 |  250.00 |",
		"| 20230626 | 20230626-01 | W    |   20.00 |  230.00 |",
		"| 20230626 | 20230626-02 | W    |  100.00 |  130.00 |",
		"| 20230630 |             | I    |    0.39 |  130.39 |",
	}, "\n")
	if got != want {
		t.Errorf("unexpected statement:\n got:\n%s\nwant:\n%s", got, want)
	}

	snap := m.Snapshot()
	if snap.StatementsGenerated != 1 {
		t.Errorf("expected 1 statement, got %d", snap.StatementsGenerated)
	}
	if snap.InterestCredited != 0.39 {
		t.Errorf("expected 0.39 credited, got %f", snap.InterestCredited)
	}
}

func TestGenerateStatement_Idempotent(t *testing.T) {
	svc, m := newService(validation.New())
	seed(t, svc)
	ctx := context.Background()

	first := svc.GenerateStatement(ctx, "AC001", 2023, time.June)
	second := svc.GenerateStatement(ctx, "AC001", 2023, time.June)
	if first != second {
		t.Errorf("expected identical statements:\n%s\n---\n%s", first, second)
	}

	txs := svc.GetTransactions(ctx, "AC001")
	credits := 0
	for _, tx := range txs {
		if tx.Type == domain.TransactionInterest {
			credits++
		}
	}
	if credits != 1 {
		t.Errorf("expected exactly 1 interest credit, got %d", credits)
	}
	if got := m.Snapshot().InterestCredited; got != 0.39 {
		t.Errorf("expected 0.39 credited once, got %f", got)
	}
}

func TestGenerateStatement_AccountNotFound(t *testing.T) {
	svc, m := newService(validation.New())

	if got := svc.GenerateStatement(context.Background(), "AC999", 2023, time.June); got != statement.AccountNotFound {
		t.Errorf("expected %q, got %q", statement.AccountNotFound, got)
	}
	if m.Snapshot().StatementsGenerated != 0 {
		t.Error("expected no statement counted")
	}
}

func TestStatement_TypedNotFound(t *testing.T) {
	svc, _ := newService(validation.New())

	_, err := svc.Statement(context.Background(), "AC999", 2023, time.June)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if nf.ID != "AC999" {
		t.Errorf("expected id 'AC999', got '%s'", nf.ID)
	}
}

func TestStatement_EmptyMonthCarriesBalance(t *testing.T) {
	svc, _ := newService(validation.New())
	ctx := context.Background()
	if _, err := svc.PostTransaction(ctx, "AC001", domain.NewDate(2023, time.June, 1), domain.TransactionDeposit, amt("100")); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	st, err := svc.Statement(ctx, "AC001", 2023, time.July)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(st.Lines) != 0 {
		t.Errorf("expected no lines without rules, got %d", len(st.Lines))
	}
	if !st.OpeningBalance.Equal(amt("100")) {
		t.Errorf("expected opening balance 100, got %s", st.OpeningBalance)
	}
}

func TestSnapshotRestore(t *testing.T) {
	svc, _ := newService(validation.New())
	seed(t, svc)
	snap := svc.Snapshot()

	restored, _ := newService(validation.New())
	restored.Restore(snap)

	ctx := context.Background()
	if a, b := svc.GenerateStatement(ctx, "AC001", 2023, time.June), restored.GenerateStatement(ctx, "AC001", 2023, time.June); a != b {
		t.Errorf("expected restored ledger to produce the same statement:\n%s\n---\n%s", a, b)
	}
	if len(restored.InterestRules(ctx)) != 3 {
		t.Errorf("expected 3 rules, got %d", len(restored.InterestRules(ctx)))
	}
}

func TestPostTransaction_LogsCarrySpanTraceID(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	core, logs := observer.New(zap.InfoLevel)
	svc := service.NewLedgerService(ledger.New(), validation.New(), observability.NewMetrics(), zap.New(core))

	if _, err := svc.PostTransaction(context.Background(), "AC001", domain.NewDate(2023, time.June, 1), domain.TransactionDeposit, amt("10")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var span sdktrace.ReadOnlySpan
	for _, s := range recorder.Ended() {
		if s.Name() == "LedgerService.PostTransaction" {
			span = s
		}
	}
	if span == nil {
		t.Fatal("expected a PostTransaction span")
	}

	entries := logs.FilterMessage("transaction posted").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 posted log, got %d", len(entries))
	}
	want := span.SpanContext().TraceID().String()
	if got := entries[0].ContextMap()["trace_id"]; got != want {
		t.Errorf("expected trace_id %s, got %v", want, got)
	}
}
