package services

import "time"

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

// startOfDay returns midnight of t in t's location
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
