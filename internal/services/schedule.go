package services

import (
	"fmt"
	"time"
)

const (
	slotDateLayout = "2006-01-02"
	slotTimeLayout = "15:04"
)

// overlaps is the half-open interval test [aStart,aEnd) ∩ [bStart,bEnd) ≠ ∅.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// slotInstant resolves a calendar date and wall-clock time in loc.
func slotInstant(date, hhmm string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(slotDateLayout+" "+slotTimeLayout, date+" "+hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot %s %s: %w", date, hhmm, err)
	}
	return t, nil
}

// followingSlot returns the start time step minutes after hhmm on the same
// day. It reports false when that would cross midnight.
func followingSlot(hhmm string, step int) (string, bool) {
	t, err := time.Parse(slotTimeLayout, hhmm)
	if err != nil {
		return "", false
	}
	next := t.Add(time.Duration(step) * time.Minute)
	if next.Day() != t.Day() {
		return "", false
	}
	return next.Format(slotTimeLayout), true
}

func validDuration(d int) bool { return d == 30 || d == 60 }
