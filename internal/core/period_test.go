package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestReportingPeriodFor(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		wantStart Date
		wantEnd   Date
	}{
		{"mid january", day(2025, time.January, 15), NewDate(2025, 1, 1), NewDate(2025, 2, 28)},
		{"end of february", day(2025, time.February, 28), NewDate(2025, 1, 1), NewDate(2025, 2, 28)},
		{"leap february", day(2024, time.February, 11), NewDate(2024, 1, 1), NewDate(2024, 2, 29)},
		{"eleventh of march", day(2025, time.March, 11), NewDate(2025, 3, 1), NewDate(2025, 4, 30)},
		{"tenth of march looks back", day(2025, time.March, 10), NewDate(2025, 1, 1), NewDate(2025, 2, 28)},
		{"first of july looks back", day(2025, time.July, 1), NewDate(2025, 5, 1), NewDate(2025, 6, 30)},
		{"early april looks back to january", day(2025, time.April, 5), NewDate(2025, 1, 1), NewDate(2025, 2, 28)},
		{"early january wraps year", day(2025, time.January, 5), NewDate(2024, 11, 1), NewDate(2024, 12, 31)},
		{"early february wraps year", day(2025, time.February, 10), NewDate(2024, 11, 1), NewDate(2024, 12, 31)},
		{"late december", day(2025, time.December, 31), NewDate(2025, 11, 1), NewDate(2025, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ReportingPeriodFor(tt.date)
			assert.Equal(t, tt.wantStart, p.Start)
			assert.Equal(t, tt.wantEnd, p.End)
		})
	}
}

func TestReportingPeriodFor_LookbackEqualsPreviousBlock(t *testing.T) {
	for y := 2023; y <= 2025; y++ {
		for m := time.January; m <= time.December; m++ {
			for d := 1; d <= 10; d++ {
				date := day(y, m, d)
				// A day in the middle of the block two months earlier.
				prev := day(y, m, 15).AddDate(0, -2, 0)
				assert.Equal(t, ReportingPeriodFor(prev), ReportingPeriodFor(date), "date %s", date.Format(time.DateOnly))
			}
		}
	}
}

func TestReportingPeriodFor_Shape(t *testing.T) {
	start := day(2023, time.January, 1)
	for i := 0; i < 3*366; i++ {
		date := start.AddDate(0, 0, i)
		p := ReportingPeriodFor(date)
		require.Equal(t, 1, p.End.Month()-p.Start.Month(), "date %s", date.Format(time.DateOnly))
		require.Equal(t, 1, p.Start.Month()%2, "start month must be odd for %s", date.Format(time.DateOnly))
		require.Equal(t, 1, p.Start.Day())
		require.Equal(t, p.Start.Year(), p.End.Year())
		require.Equal(t, 1, p.End.AddDate(0, 0, 1).Day(), "end must be the last day of its month")
		if date.Year() != p.Start.Year() {
			require.Equal(t, 11, p.Start.Month())
			require.Equal(t, date.Year()-1, p.Start.Year())
		}
		require.True(t, !p.Start.After(date), "period must not start after %s", date.Format(time.DateOnly))
	}
}

func TestReportingPeriodFor_UsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("IST", 2*60*60)
	// 23:00 UTC on the 10th is the 11th locally: no lookback.
	ts := time.Date(2025, time.May, 10, 23, 0, 0, 0, time.UTC).In(loc)
	p := ReportingPeriodFor(ts)
	assert.Equal(t, NewDate(2025, 5, 1), p.Start)
}

func TestPeriodForBimester(t *testing.T) {
	p, err := PeriodForBimester(2024, 1)
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, 1, 1), p.Start)
	assert.Equal(t, NewDate(2024, 2, 29), p.End)

	p, err = PeriodForBimester(2025, 6)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-01", p.FromDate())
	assert.Equal(t, "2025-12-31", p.ToDate())
	assert.Equal(t, 6, p.Bimester())

	for _, b := range []int{0, 7, -1} {
		_, err := PeriodForBimester(2025, b)
		assert.ErrorIs(t, err, ErrInvalidBimester)
	}
}

func TestReportingPeriodLabelAndContains(t *testing.T) {
	p := ReportingPeriodFor(day(2025, time.January, 3))
	assert.Equal(t, "November-December, 2024", p.Label())
	assert.Equal(t, "2024-11-01_2024-12-31", p.Key())
	assert.True(t, p.Contains(NewDate(2024, 11, 1)))
	assert.True(t, p.Contains(NewDate(2024, 12, 31)))
	assert.False(t, p.Contains(NewDate(2025, 1, 1)))
	assert.False(t, p.Contains(NewDate(2024, 10, 31)))
}

func TestParseReferenceDate(t *testing.T) {
	d, err := ParseReferenceDate("2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", ReportingPeriodFor(d).FromDate())

	_, err = ParseReferenceDate("11/03/2025")
	assert.Error(t, err)
}
