package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// Period is a canonical billing-cycle bucket.
type Period string

const (
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
	PeriodLifetime  Period = "lifetime"
)

// periodRanks fixes the total order over periods. No two periods share a rank.
var periodRanks = map[Period]int{
	PeriodWeekly:    1,
	PeriodMonthly:   2,
	PeriodQuarterly: 3,
	PeriodYearly:    4,
	PeriodLifetime:  5,
}

// Rank returns the period's position in the weekly..lifetime order.
func (p Period) Rank() int {
	if r, ok := periodRanks[p]; ok {
		return r
	}
	return periodRanks[PeriodMonthly]
}

// AtLeast reports whether p is the same length or longer than other.
func (p Period) AtLeast(other Period) bool {
	return p.Rank() >= other.Rank()
}

// ComparePeriods orders two periods: negative when a is shorter than b,
// zero when equal, positive when longer.
func ComparePeriods(a, b Period) int {
	return a.Rank() - b.Rank()
}

var durationPattern = regexp.MustCompile(`^P(\d+)([DWMY])$`)

// ClassifyPeriod maps a raw billing-cycle duration string (ISO-8601 style,
// e.g. "P1M") to a canonical Period. Matching is case-insensitive. An empty
// duration means a one-time purchase and classifies as lifetime. Anything
// unrecognized or malformed defaults to monthly rather than erroring.
func ClassifyPeriod(duration string) Period {
	d := strings.ToUpper(strings.TrimSpace(duration))
	if d == "" {
		return PeriodLifetime
	}

	switch d {
	case "P1W", "P7D":
		return PeriodWeekly
	case "P1M":
		return PeriodMonthly
	case "P3M":
		return PeriodQuarterly
	case "P1Y", "P12M":
		return PeriodYearly
	}

	m := durationPattern.FindStringSubmatch(d)
	if m == nil {
		return PeriodMonthly
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return PeriodMonthly
	}

	switch m[2] {
	case "D":
		switch {
		case n == 7:
			return PeriodWeekly
		case n >= 28 && n <= 31:
			return PeriodMonthly
		case n >= 84 && n <= 93:
			return PeriodQuarterly
		case n >= 365:
			return PeriodYearly
		}
	case "W":
		switch {
		case n == 1:
			return PeriodWeekly
		case n == 4 || n == 5:
			return PeriodMonthly
		case n == 13:
			return PeriodQuarterly
		case n == 52:
			return PeriodYearly
		}
	case "M":
		switch n {
		case 1:
			return PeriodMonthly
		case 3, 6:
			// half-year billing folds into the quarterly bucket
			return PeriodQuarterly
		case 12:
			return PeriodYearly
		}
	case "Y":
		if n > 0 {
			return PeriodYearly
		}
	}

	return PeriodMonthly
}
