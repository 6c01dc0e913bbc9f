package util

import (
	"fmt"
	"time"

	iso8601 "github.com/senseyeio/duration"
)

const DateFormat = "2006-01-02"

// ParseDate validates a YYYY-MM-DD calendar date
func ParseDate(date string) (time.Time, error) {
	parsed, err := time.Parse(DateFormat, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", date, err)
	}

	return parsed, nil
}

// DatesInRange returns every date from start (inclusive) up to start shifted by the ISO-8601 period (exclusive)
func DatesInRange(start string, period string) ([]string, error) {
	startDate, err := ParseDate(start)
	if err != nil {
		return nil, err
	}

	duration, err := iso8601.ParseISO8601(period)
	if err != nil {
		return nil, fmt.Errorf("invalid ISO-8601 period %q: %w", period, err)
	}

	endDate := duration.Shift(startDate)

	var dates []string
	for date := startDate; date.Before(endDate); date = date.AddDate(0, 0, 1) {
		dates = append(dates, date.Format(DateFormat))
	}

	return dates, nil
}

// ParseFlexibleDuration accepts either a Go duration (30s) or an ISO-8601 one (PT30S)
func ParseFlexibleDuration(value string) (time.Duration, error) {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration, nil
	}

	isoDuration, err := iso8601.ParseISO8601(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}

	reference := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	return isoDuration.Shift(reference).Sub(reference), nil
}
