package leasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// proratedRent computes the portion of the monthly rent earned in runDate's
// month: monthly_rent / days_in_month * active_days, rounded half-up to two
// places. Returns zero when the lease does not overlap the month.
func proratedRent(lease Lease, runDate time.Time) decimal.Decimal {
	monthStart := time.Date(runDate.Year(), runDate.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	monthDays := monthEnd.Day()

	start := lease.StartDate
	if monthStart.After(start) {
		start = monthStart
	}
	end := lease.EndDate
	if monthEnd.Before(end) {
		end = monthEnd
	}
	if end.Before(start) {
		return decimal.Zero
	}
	activeDays := int(end.Sub(start).Hours()/24) + 1

	return lease.MonthlyRent.
		Div(decimal.NewFromInt(int64(monthDays))).
		Mul(decimal.NewFromInt(int64(activeDays))).
		Round(2)
}

// periodOf renders the YYYY-MM recognition period for a run date.
func periodOf(runDate time.Time) string {
	return runDate.Format("2006-01")
}
