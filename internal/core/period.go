package core

import (
	"fmt"
	"time"
)

// lookbackDays is the grace window at the start of a period during which the
// previous period is still the one being reported.
const lookbackDays = 10

// ReportingPeriodFor maps a calendar date to its two-month reporting window.
//
// Months pair up as (Jan,Feb)(Mar,Apr)...(Nov,Dec). Dates on or before the
// 10th of a month report on the previous pair; shifting back from Jan/Feb
// lands on Nov/Dec of the previous year. Only the calendar fields of t, read
// in t's own location, are used.
func ReportingPeriodFor(t time.Time) ReportingPeriod {
	year, month, day := t.Date()

	startMonth := ((int(month)-1)/2)*2 + 1 // 1, 3, 5, 7, 9, 11
	if day <= lookbackDays {
		startMonth -= 2
	}
	if startMonth < 1 {
		startMonth += 12
		year--
	}
	endMonth := startMonth + 1

	return ReportingPeriod{
		Start: NewDate(year, startMonth, 1),
		End:   NewDate(year, endMonth, daysIn(year, endMonth)),
	}
}

// PeriodForBimester returns the period numbered bimester (1 = Jan-Feb,
// 6 = Nov-Dec) of the given year.
func PeriodForBimester(year, bimester int) (ReportingPeriod, error) {
	if bimester < 1 || bimester > 6 {
		return ReportingPeriod{}, fmt.Errorf("%w: got %d", ErrInvalidBimester, bimester)
	}
	lastMonth := bimester * 2
	ref := time.Date(year, time.Month(lastMonth), daysIn(year, lastMonth), 0, 0, 0, 0, time.UTC)
	return ReportingPeriodFor(ref), nil
}

// ParseReferenceDate parses an explicit YYYY-MM-DD reference date.
func ParseReferenceDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// FromDate is the period start as sent to the bookkeeping API.
func (p ReportingPeriod) FromDate() string { return p.Start.String() }

// ToDate is the period end as sent to the bookkeeping API.
func (p ReportingPeriod) ToDate() string { return p.End.String() }

// Bimester returns the index 1..6 of the period within its year.
func (p ReportingPeriod) Bimester() int {
	return (p.Start.Month() + 1) / 2
}

// Label renders the period as "January-February, 2025".
func (p ReportingPeriod) Label() string {
	return fmt.Sprintf("%s-%s, %d", p.Start.Time.Month(), p.End.Time.Month(), p.End.Year())
}

// Contains reports whether d falls within the period, bounds included.
func (p ReportingPeriod) Contains(d Date) bool {
	return !d.Before(p.Start.Time) && !d.After(p.End.Time)
}

// Key identifies the period, e.g. "2025-01-01_2025-02-28".
func (p ReportingPeriod) Key() string {
	return p.FromDate() + "_" + p.ToDate()
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
