package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/interest-ledger-go/internal/domain"

	"github.com/shopspring/decimal"
)

type ruleEntry struct {
	rule    domain.InterestRule
	written uint64 // bumped on insert and on replace
}

// RuleRegistry holds the bank-wide interest rules. Rules are unique by
// (EffectiveDate, RuleID); several rules may share a date, in which case
// the most recently written one wins.
type RuleRegistry struct {
	mu    sync.RWMutex
	rules []ruleEntry // insertion order
	clock uint64
}

// NewRuleRegistry creates an empty registry.
func NewRuleRegistry() *RuleRegistry {
	return &RuleRegistry{}
}

// AddOrReplace inserts rule, or overwrites the rate of the rule with the
// same effective date and id. It reports whether a rule was replaced.
func (r *RuleRegistry) AddOrReplace(rule domain.InterestRule) bool {
	rule.EffectiveDate = domain.DateOf(rule.EffectiveDate)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.clock++
	for i := range r.rules {
		e := &r.rules[i]
		if e.rule.RuleID == rule.RuleID && e.rule.EffectiveDate.Equal(rule.EffectiveDate) {
			e.rule.Rate = rule.Rate
			e.written = r.clock
			return true
		}
	}
	r.rules = append(r.rules, ruleEntry{rule: rule, written: r.clock})
	return false
}

// RateEffectiveOn returns the annual rate in force on date. It fails with
// domain.ErrNoApplicableRule when every rule starts after date.
func (r *RuleRegistry) RateEffectiveOn(date time.Time) (decimal.Decimal, error) {
	date = domain.DateOf(date)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *ruleEntry
	for i := range r.rules {
		e := &r.rules[i]
		if e.rule.EffectiveDate.After(date) {
			continue
		}
		if best == nil ||
			e.rule.EffectiveDate.After(best.rule.EffectiveDate) ||
			(e.rule.EffectiveDate.Equal(best.rule.EffectiveDate) && e.written > best.written) {
			best = e
		}
	}
	if best == nil {
		return decimal.Zero, domain.ErrNoApplicableRule
	}
	return best.rule.Rate, nil
}

// AllRules returns every rule sorted by effective date, ties in insertion
// order.
func (r *RuleRegistry) AllRules() []domain.InterestRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.InterestRule, len(r.rules))
	for i, e := range r.rules {
		out[i] = e.rule
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveDate.Before(out[j].EffectiveDate)
	})
	return out
}

// Len returns the number of rules.
func (r *RuleRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// writeOrder returns rules oldest write first. Replaying them through
// AddOrReplace rebuilds the same lookup results.
func (r *RuleRegistry) writeOrder() []domain.InterestRule {
	r.mu.RLock()
	entries := make([]ruleEntry, len(r.rules))
	copy(entries, r.rules)
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].written < entries[j].written })
	out := make([]domain.InterestRule, len(entries))
	for i, e := range entries {
		out[i] = e.rule
	}
	return out
}

// reset drops every rule and replays rules in order.
func (r *RuleRegistry) reset(rules []domain.InterestRule) {
	r.mu.Lock()
	r.rules = nil
	r.clock = 0
	r.mu.Unlock()

	for _, rule := range rules {
		r.AddOrReplace(rule)
	}
}
