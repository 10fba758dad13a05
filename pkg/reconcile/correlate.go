package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/civicworks/shiftsync/pkg/models"
)

// correlateHours walks each need's time logs, attaches every log to the
// shifts it matches, and resolves each volunteer's state from their single
// most recent log per shift. Volunteers who logged hours without signing up
// are added to the shift on the fly.
func (r *Reconciler) correlateHours(ctx context.Context, shifts []*models.ShiftStatus) {
	byNeed := make(map[int][]*models.ShiftStatus)
	for _, s := range shifts {
		byNeed[s.NeedID] = append(byNeed[s.NeedID], s)
	}

	matched := 0
	for needID, needShifts := range byNeed {
		if needID == 0 {
			continue
		}
		hours, err := r.hours.ByNeed(ctx, needID)
		if err != nil {
			r.log.Error().Err(err).Int("need_id", needID).Msg("loading hours for need")
			continue
		}

		// Authoritative log per (shift, user): the most recently touched
		// record wins ties deterministically.
		authoritative := make(map[*models.ShiftStatus]map[int]*models.Hour)
		for i := range hours {
			hour := &hours[i]
			if hour.UserID == 0 {
				r.log.Warn().Int("hour_id", hour.ID).Msg("time log missing user id, skipping")
				continue
			}
			for _, shift := range matchCandidates(needShifts, hour) {
				perUser, ok := authoritative[shift]
				if !ok {
					perUser = make(map[int]*models.Hour)
					authoritative[shift] = perUser
				}
				if current, ok := perUser[hour.UserID]; !ok || moreRecent(hour, current) {
					perUser[hour.UserID] = hour
				}
			}
		}

		for shift, perUser := range authoritative {
			for userID, hour := range perUser {
				r.applyHour(shift, userID, hour)
				matched++
			}
		}
	}

	for _, shift := range shifts {
		shift.RecomputeSlotsFilled()
	}
	r.log.Info().Int("correlated", matched).Msg("correlated time logs with shifts")
}

// applyHour folds an authoritative time log into the volunteer's entry on
// the shift, creating the entry when the volunteer never signed up.
func (r *Reconciler) applyHour(shift *models.ShiftStatus, userID int, hour *models.Hour) {
	entry := shift.User(userID)
	if entry == nil {
		shift.Users = append(shift.Users, models.ShiftUser{
			ID:            userID,
			DomainID:      hour.DomainID,
			FirstName:     hour.FirstName,
			LastName:      hour.LastName,
			Email:         hour.Email,
			CheckinStatus: models.CheckinAbsent,
		})
		entry = &shift.Users[len(shift.Users)-1]
	}

	duration := parseHourDuration(hour)
	prov := r.classifier.Classify(hour.Source)

	entry.HourID = hour.ID
	entry.HourStatus = hour.Status
	entry.HourSource = hour.Source
	entry.Duration = duration
	entry.HourStart = hour.StartAt
	entry.HourEnd = hour.EndAt
	entry.HourCreated = hour.DateCreated
	entry.HourUpdated = hour.DateUpdated
	entry.HasCheckin = prov.HasCheckin
	entry.HasCheckout = prov.HasCheckout
	entry.HasManagerApproval = prov.HasManagerApproval
	entry.HasKioskActivity = prov.HasKioskActivity
	// The checkout summary only matters while the log is still awaiting
	// approval; resolved logs carry their state in CheckinStatus.
	if strings.Contains(strings.ToLower(hour.Status), "pending") {
		entry.CheckoutStatus = checkoutSummary(prov)
	} else {
		entry.CheckoutStatus = ""
	}
	// The hours-logged rule only trusts the duration field itself; the
	// start/end span stands in for the reported figure but never proves
	// hours were logged.
	entry.CheckinStatus = deriveCheckinStatus(hour, parseDurationField(hour), entry.CheckinStatus)
}

// moreRecent orders time logs by creation time, then update time, then
// start time. Missing timestamps sort oldest.
func moreRecent(a, b *models.Hour) bool {
	if c := compareTimes(a.DateCreated, b.DateCreated); c != 0 {
		return c > 0
	}
	if c := compareTimes(a.DateUpdated, b.DateUpdated); c != 0 {
		return c > 0
	}
	return compareTimes(a.StartAt, b.StartAt) > 0
}

func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return 1
	case a.Before(*b):
		return -1
	default:
		return 0
	}
}
