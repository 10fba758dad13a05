package reconcile

import (
	"math"
	"strconv"
	"time"

	"github.com/civicworks/shiftsync/pkg/models"
)

// matchCandidates returns the shifts a time log belongs to. A log carrying
// a shift reference binds to the candidate with that identifier and nothing
// else; when the referenced shift is not among the candidates (a stale
// reference), the log falls back to the time rules like an unreferenced one.
func matchCandidates(shifts []*models.ShiftStatus, hour *models.Hour) []*models.ShiftStatus {
	if hour.ShiftID != 0 {
		id := strconv.Itoa(hour.ShiftID)
		var direct []*models.ShiftStatus
		for _, s := range shifts {
			if s.ID == id {
				direct = append(direct, s)
			}
		}
		if len(direct) > 0 {
			return direct
		}
	}

	var matched []*models.ShiftStatus
	for _, s := range shifts {
		if matchByTime(s, hour) {
			matched = append(matched, s)
		}
	}
	return matched
}

// matchByTime reports whether a time log's window belongs to the shift,
// trying the rules strictly in order: exact bounds, containment within the
// shift, any overlap, and finally same-day start proximity within an hour.
// Timestamps recorded without a clock component only qualify for the
// same-day rule.
func matchByTime(shift *models.ShiftStatus, hour *models.Hour) bool {
	if hour.StartAt == nil || hour.EndAt == nil {
		return false
	}
	if shift.Start == nil || shift.End == nil {
		return false
	}

	hs, he := *hour.StartAt, *hour.EndAt
	ss, se := *shift.Start, *shift.End

	if !hasClock(hs) || !hasClock(ss) {
		return sameDay(hs, ss)
	}

	// Exact bounds.
	if hs.Equal(ss) && he.Equal(se) {
		return true
	}
	// Hour contained within the shift window.
	if !hs.Before(ss) && !he.After(se) {
		return true
	}
	// Any overlap.
	if hs.Before(se) && he.After(ss) {
		return true
	}
	// Same day, started within an hour of each other.
	if sameDay(hs, ss) && math.Abs(hs.Sub(ss).Hours()) <= 1.0 {
		return true
	}
	return false
}

// hasClock treats an exact-midnight timestamp as date-only. Upstream
// records dates without times as midnight, so a true midnight clock-in is
// indistinguishable and intentionally handled the coarse way.
func hasClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
