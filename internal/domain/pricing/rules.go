package pricing

import (
	"context"
	"errors"
	"sort"
	"time"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

var (
	ErrMalformedRule     = errors.New("pricing: malformed rule")
	ErrOverlappingBlocks = errors.New("pricing: day blocks overlap within rule")
)

type RuleKind string

const (
	// RuleDates carries explicit per-date prices.
	RuleDates RuleKind = "DATES"
	// RuleMonthlyBlocks carries day-of-month ranges for one month/year.
	RuleMonthlyBlocks RuleKind = "MONTHLY_BLOCKS"
)

type DateEntry struct {
	Date  time.Time
	Price money.Money
}

type DayBlock struct {
	StartDay int
	EndDay   int
	Price    money.Money
}

// Rule is a pricing override maintained by the pricing administration and
// read-only here. A rule belongs to exactly one property, or is a global
// template when PropertyID is empty.
type Rule struct {
	ID         string
	PropertyID property.PropertyID
	Kind       RuleKind

	// RuleDates variant.
	Entries []DateEntry

	// RuleMonthlyBlocks variant.
	Month  time.Month
	Year   int
	Blocks []DayBlock
}

// Global reports whether the rule is a template applying to every property.
func (r Rule) Global() bool { return r.PropertyID == "" }

func (r Rule) Validate() error {
	switch r.Kind {
	case RuleDates:
		if len(r.Entries) == 0 {
			return ErrMalformedRule
		}
	case RuleMonthlyBlocks:
		if r.Month < time.January || r.Month > time.December || r.Year == 0 {
			return ErrMalformedRule
		}
		blocks := append([]DayBlock(nil), r.Blocks...)
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartDay < blocks[j].StartDay })
		prevEnd := 0
		for _, b := range blocks {
			if b.StartDay < 1 || b.EndDay > 31 || b.EndDay < b.StartDay {
				return ErrMalformedRule
			}
			if b.StartDay <= prevEnd {
				return ErrOverlappingBlocks
			}
			prevEnd = b.EndDay
		}
	default:
		return ErrMalformedRule
	}
	return nil
}

// priceFor returns the rule's price for the date, if the rule covers it.
func (r Rule) priceFor(date time.Time) (money.Money, bool) {
	date = daterange.Day(date)
	switch r.Kind {
	case RuleDates:
		for _, e := range r.Entries {
			if daterange.Day(e.Date).Equal(date) {
				return e.Price, true
			}
		}
	case RuleMonthlyBlocks:
		if date.Year() != r.Year || date.Month() != r.Month {
			return money.Money{}, false
		}
		day := date.Day()
		for _, b := range r.Blocks {
			if day >= b.StartDay && day <= b.EndDay {
				return b.Price, true
			}
		}
	}
	return money.Money{}, false
}

// RuleRepository returns the rules relevant to a property: its own rules plus
// all global templates.
type RuleRepository interface {
	ForProperty(ctx context.Context, id property.PropertyID) ([]Rule, error)
}

// RateResolver resolves the nightly price for one property and date.
// Precedence, first match wins: explicit date entry (property rule before
// global template), then a monthly day-block covering the date, then the
// property's stored base rate.
type RateResolver struct {
	Rules      RuleRepository
	Properties property.Repository
}

func (rr *RateResolver) NightlyRate(ctx context.Context, id property.PropertyID, date time.Time) (money.Money, error) {
	prop, err := rr.Properties.ByID(ctx, id)
	if err != nil {
		return money.Money{}, err
	}
	rules, err := rr.Rules.ForProperty(ctx, id)
	if err != nil {
		return money.Money{}, err
	}
	for _, kind := range []RuleKind{RuleDates, RuleMonthlyBlocks} {
		for _, global := range []bool{false, true} {
			for _, rule := range rules {
				if rule.Kind != kind || rule.Global() != global {
					continue
				}
				if rule.Validate() != nil {
					continue
				}
				if price, ok := rule.priceFor(date); ok {
					return price, nil
				}
			}
		}
	}
	return prop.BaseNightly, nil
}
