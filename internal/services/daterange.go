package services

import (
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
)

// ResolveDateRange computes the current and previous calendar windows for a period.
//
// Week windows are 7 days anchored on now, not on calendar weeks, and the previous
// window ends where the current one starts. Month windows are month-to-date against
// the full previous month. Dates are taken in now's location.
//
// The period must already be validated; anything other than week is treated as month.
func ResolveDateRange(period models.Period, now time.Time) models.DateRange {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	if period == models.PeriodWeek {
		currentStart := today.AddDate(0, 0, -7)
		return models.DateRange{
			CurrentStart:  currentStart,
			CurrentEnd:    today,
			PreviousStart: currentStart.AddDate(0, 0, -7),
			PreviousEnd:   currentStart,
		}
	}

	// Day 0 of the current month normalizes to the last day of the previous one
	return models.DateRange{
		CurrentStart:  time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc),
		CurrentEnd:    today,
		PreviousStart: time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, loc),
		PreviousEnd:   time.Date(today.Year(), today.Month(), 0, 0, 0, 0, 0, loc),
	}
}
