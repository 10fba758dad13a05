package reconcile

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/civicworks/shiftsync/pkg/models"
)

// extractShifts turns scheduling definitions into bare shift status records
// with empty user lists. Needs without a shift list fall back to their flat
// date pair as a single implicit shift, and needs on the synthesize list get
// shifts rebuilt from their time logs.
func (r *Reconciler) extractShifts(ctx context.Context, futureOnly bool, now time.Time) []*models.ShiftStatus {
	needs, err := r.needs.All(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("loading needs")
		return nil
	}

	var out []*models.ShiftStatus
	withShifts := 0

	for i := range needs {
		need := &needs[i]
		if need.ID == 0 {
			r.log.Warn().Str("title", need.Title).Msg("need missing id, skipping")
			continue
		}

		shifts := []models.Shift(need.Shifts)
		if len(shifts) == 0 && r.shouldSynthesize(need.ID) {
			shifts = r.synthesizeDayShifts(ctx, need)
			if len(shifts) > 0 {
				r.log.Info().Int("need_id", need.ID).Int("shifts", len(shifts)).
					Msg("using day-grouped shifts rebuilt from hours")
			}
		}
		if len(shifts) == 0 {
			continue
		}
		withShifts++

		for _, shift := range shifts {
			if shift.ID == 0 {
				r.log.Warn().Int("need_id", need.ID).Msg("shift missing id, skipping")
				continue
			}
			if futureOnly && shift.Start.Before(now) {
				continue
			}
			out = append(out, newShiftStatus(need, shift, now))
		}
	}

	// Fallback: no need had a usable shift list, so treat needs carrying
	// the flat date pair as one implicit shift each.
	if withShifts == 0 {
		for i := range needs {
			need := &needs[i]
			if need.ID == 0 || need.DateStart == nil || need.DateEnd == nil {
				continue
			}
			if futureOnly && need.DateStart.Before(now) {
				continue
			}
			implicit := models.Shift{
				ID:       need.ID,
				Start:    *need.DateStart,
				End:      *need.DateEnd,
				Duration: need.HoursEstimate,
			}
			out = append(out, newShiftStatus(need, implicit, now))
		}
		if len(out) > 0 {
			r.log.Info().Int("shifts", len(out)).Msg("no structured shifts found, using flat need dates")
		}
	}

	r.log.Info().Int("shifts", len(out)).Msg("extracted shift records")
	return out
}

func newShiftStatus(need *models.Need, shift models.Shift, now time.Time) *models.ShiftStatus {
	start := shift.Start
	end := shift.End
	duration := shift.Duration
	if duration == 0 {
		duration = need.HoursEstimate
	}
	return &models.ShiftStatus{
		ID:       strconv.Itoa(shift.ID),
		Start:    &start,
		End:      &end,
		Duration: duration,
		Slots:    shift.Slots,
		NeedID:   need.ID,
		Title:    need.Title,
		Origin:   models.OriginAggregation,
		SyncedAt: now,
	}
}

func (r *Reconciler) shouldSynthesize(needID int) bool {
	for _, id := range r.opts.SynthesizeNeedIDs {
		if id == needID {
			return true
		}
	}
	return false
}

// synthesizeDayShifts rebuilds shifts from a need's time logs, one shift per
// distinct calendar day: window is the day's [earliest start, latest end],
// duration the mean of the day's logged durations, capacity the log count.
func (r *Reconciler) synthesizeDayShifts(ctx context.Context, need *models.Need) []models.Shift {
	hours, err := r.hours.ByNeed(ctx, need.ID)
	if err != nil {
		r.log.Error().Err(err).Int("need_id", need.ID).Msg("loading hours for day-shift synthesis")
		return nil
	}
	if len(hours) == 0 {
		r.log.Warn().Int("need_id", need.ID).Msg("no hours found to rebuild shifts from")
		return nil
	}

	byDay := make(map[string][]models.Hour)
	for _, h := range hours {
		if h.StartAt == nil {
			continue
		}
		day := h.StartAt.Format("2006-01-02")
		byDay[day] = append(byDay[day], h)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var shifts []models.Shift
	for _, day := range days {
		dayHours := byDay[day]

		var minStart, maxEnd *time.Time
		var total float64
		for i := range dayHours {
			h := &dayHours[i]
			if minStart == nil || h.StartAt.Before(*minStart) {
				minStart = h.StartAt
			}
			if h.EndAt != nil && (maxEnd == nil || h.EndAt.After(*maxEnd)) {
				maxEnd = h.EndAt
			}
			total += parseDurationField(h)
		}
		if minStart == nil || maxEnd == nil {
			continue
		}

		shifts = append(shifts, models.Shift{
			ID:       dayHours[0].ID,
			Start:    *minStart,
			End:      *maxEnd,
			Duration: total / float64(len(dayHours)),
			Slots:    len(dayHours),
		})
	}
	return shifts
}
