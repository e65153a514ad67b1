package services

import "time"

// Clock supplies the current time; tests substitute a fixed one.
type Clock func() time.Time

// SystemClock reports wall-clock time in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

func (c Clock) now() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c()
}
