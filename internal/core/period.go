package core

import "time"

// PeriodRange is an inclusive start/end window. Both endpoints are part of
// the range, so a range with Start == End matches records dated exactly at
// that instant.
type PeriodRange struct {
	Start time.Time
	End   time.Time
}

// NewPeriodRange builds a range after checking ordering. Callers must reject
// a reversed range before handing it to the calculators.
func NewPeriodRange(start, end time.Time) (PeriodRange, error) {
	if start.IsZero() || end.IsZero() {
		return PeriodRange{}, ErrInvalidDate
	}
	if start.After(end) {
		return PeriodRange{}, ErrInvalidRange
	}
	return PeriodRange{Start: start, End: end}, nil
}

// Contains reports whether t falls inside the range, endpoints included.
func (r PeriodRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// MonthRange returns the inclusive range covering one calendar month.
func MonthRange(year int, month time.Month) PeriodRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return PeriodRange{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}
