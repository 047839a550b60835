package observability

import (
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	transactions     *prometheus.CounterVec
	rules            *prometheus.CounterVec
	statements       *prometheus.CounterVec
	interestCredited prometheus.Counter
	idempotentReplay prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// ledger metrics in it. A private registry lets tests call NewMetrics
// repeatedly.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_total",
				Help: "Transactions submitted, by type and outcome.",
			},
			[]string{"type", "status"},
		),
		rules: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_interest_rules_total",
				Help: "Interest rule writes, by result.",
			},
			[]string{"result"},
		),
		statements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_statements_total",
				Help: "Statements requested, by result.",
			},
			[]string{"result"},
		),
		interestCredited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_interest_credited_total",
				Help: "Sum of interest credited to accounts.",
			},
		),
		idempotentReplay: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_idempotent_replays_total",
				Help: "Responses replayed for a repeated Idempotency-Key.",
			},
		),
	}
}

// RecordRequestDuration records the duration of a request.
func (m *Metrics) RecordRequestDuration(route string, d time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// IncrTransaction counts a transaction by type label ("D", "W") and status
// ("posted", "rejected").
func (m *Metrics) IncrTransaction(typ, status string) {
	m.transactions.WithLabelValues(typ, status).Inc()
}

// IncrRule counts a rule write ("created", "replaced", "rejected").
func (m *Metrics) IncrRule(result string) {
	m.rules.WithLabelValues(result).Inc()
}

// IncrStatement counts a statement ("generated", "not_found").
func (m *Metrics) IncrStatement(result string) {
	m.statements.WithLabelValues(result).Inc()
}

// AddInterestCredited adds a credited interest amount.
func (m *Metrics) AddInterestCredited(amount float64) {
	m.interestCredited.Add(amount)
}

// IncrIdempotentReplay counts a replayed response.
func (m *Metrics) IncrIdempotentReplay() {
	m.idempotentReplay.Inc()
}

// Snapshot returns the ledger counters for GET /v1/metrics/ledger.
func (m *Metrics) Snapshot() *domain.LedgerMetrics {
	posted := getCounterValue(m.transactions, "D", "posted") +
		getCounterValue(m.transactions, "W", "posted")
	rejected := getCounterValue(m.transactions, "D", "rejected") +
		getCounterValue(m.transactions, "W", "rejected")

	return &domain.LedgerMetrics{
		TransactionsPosted:   int64(posted),
		TransactionsRejected: int64(rejected),
		RulesCreated:         int64(getCounterValue(m.rules, "created")),
		RulesReplaced:        int64(getCounterValue(m.rules, "replaced")),
		StatementsGenerated:  int64(getCounterValue(m.statements, "generated")),
		InterestCredited:     readCounter(m.interestCredited),
		Period:               "all_time",
	}
}

// getCounterValue extracts the current value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return readCounter(cv.WithLabelValues(labels...))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
