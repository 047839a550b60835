package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"
	"github.com/boddenberg/interest-ledger-go/internal/ledger"
)

func rule(y, m, d int, id, rate string) domain.InterestRule {
	return domain.InterestRule{EffectiveDate: day(y, time.Month(m), d), RuleID: id, Rate: amt(rate)}
}

func TestRuleRegistry_ReplaceSameDateAndID(t *testing.T) {
	r := ledger.NewRuleRegistry()

	if replaced := r.AddOrReplace(rule(2023, 6, 15, "RULE03", "2.20")); replaced {
		t.Error("expected first insert not to replace")
	}
	if replaced := r.AddOrReplace(rule(2023, 6, 15, "RULE03", "3.00")); !replaced {
		t.Error("expected second insert to replace")
	}

	rules := r.AllRules()
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if !rules[0].Rate.Equal(amt("3.00")) {
		t.Errorf("expected rate 3.00, got %s", rules[0].Rate)
	}
}

func TestRuleRegistry_SameIDDifferentDateIsDistinct(t *testing.T) {
	r := ledger.NewRuleRegistry()
	r.AddOrReplace(rule(2023, 6, 15, "RULE03", "2.20"))
	r.AddOrReplace(rule(2023, 7, 1, "RULE03", "2.50"))

	if r.Len() != 2 {
		t.Fatalf("expected 2 rules, got %d", r.Len())
	}
}

func TestRuleRegistry_AllRulesSortedByDate(t *testing.T) {
	r := ledger.NewRuleRegistry()
	r.AddOrReplace(rule(2023, 6, 15, "RULE03", "2.20"))
	r.AddOrReplace(rule(2023, 1, 1, "RULE01", "1.95"))
	r.AddOrReplace(rule(2023, 5, 20, "RULE02", "1.90"))

	rules := r.AllRules()
	want := []string{"RULE01", "RULE02", "RULE03"}
	for i, id := range want {
		if rules[i].RuleID != id {
			t.Errorf("position %d: expected '%s', got '%s'", i, id, rules[i].RuleID)
		}
	}
}

func TestRuleRegistry_RateEffectiveOn(t *testing.T) {
	r := ledger.NewRuleRegistry()
	r.AddOrReplace(rule(2023, 1, 1, "RULE01", "1.95"))
	r.AddOrReplace(rule(2023, 5, 20, "RULE02", "1.90"))
	r.AddOrReplace(rule(2023, 6, 15, "RULE03", "2.20"))

	tests := []struct {
		y, m, d int
		want    string
	}{
		{2023, 1, 1, "1.95"},
		{2023, 5, 19, "1.95"},
		{2023, 5, 20, "1.90"},
		{2023, 6, 14, "1.90"},
		{2023, 6, 15, "2.20"},
		{2030, 1, 1, "2.20"},
	}
	for _, tt := range tests {
		got, err := r.RateEffectiveOn(day(tt.y, time.Month(tt.m), tt.d))
		if err != nil {
			t.Fatalf("%d-%02d-%02d: expected no error, got %v", tt.y, tt.m, tt.d, err)
		}
		if !got.Equal(amt(tt.want)) {
			t.Errorf("%d-%02d-%02d: expected %s, got %s", tt.y, tt.m, tt.d, tt.want, got)
		}
	}
}

func TestRuleRegistry_NoApplicableRule(t *testing.T) {
	r := ledger.NewRuleRegistry()

	if _, err := r.RateEffectiveOn(day(2023, 6, 1)); !errors.Is(err, domain.ErrNoApplicableRule) {
		t.Fatalf("expected ErrNoApplicableRule on empty registry, got %v", err)
	}

	r.AddOrReplace(rule(2023, 6, 15, "RULE03", "2.20"))
	rate, err := r.RateEffectiveOn(day(2023, 6, 14))
	if !errors.Is(err, domain.ErrNoApplicableRule) {
		t.Fatalf("expected ErrNoApplicableRule before earliest rule, got %v", err)
	}
	if !rate.IsZero() {
		t.Errorf("expected zero rate, got %s", rate)
	}
}

func TestRuleRegistry_SameDateLastWriteWins(t *testing.T) {
	r := ledger.NewRuleRegistry()
	r.AddOrReplace(rule(2023, 6, 1, "A", "1.00"))
	r.AddOrReplace(rule(2023, 6, 1, "B", "2.00"))

	got, _ := r.RateEffectiveOn(day(2023, 6, 10))
	if !got.Equal(amt("2.00")) {
		t.Fatalf("expected latest insert 2.00, got %s", got)
	}

	// Replacing A makes it the most recent write for that date.
	r.AddOrReplace(rule(2023, 6, 1, "A", "1.50"))
	got, _ = r.RateEffectiveOn(day(2023, 6, 10))
	if !got.Equal(amt("1.50")) {
		t.Errorf("expected replaced rule 1.50, got %s", got)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 rules, got %d", r.Len())
	}
}
