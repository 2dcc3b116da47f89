package domain

import "time"

// NextTradingDay returns d unless it falls on a weekend, in which case it
// advances to the following Monday. Exchange holiday calendars are not
// modelled; a holiday resolves no bar and the prediction is retried on the
// next pass.
func NextTradingDay(d time.Time) time.Time {
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// SameDay reports whether a and b fall on the same calendar day in UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
