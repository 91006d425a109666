package domain

import "time"

// Clock supplies the current time. The allowance resetter depends on it
// instead of the ambient wall clock so day rollover is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in a fixed reference location.
type SystemClock struct {
	Loc *time.Location
}

func (c SystemClock) Now() time.Time {
	loc := c.Loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// CivilDate truncates t to midnight of its calendar day, preserving the
// location. Two instants compare as the same day iff their CivilDates
// are equal.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
