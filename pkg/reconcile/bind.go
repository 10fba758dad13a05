package reconcile

import (
	"context"
	"strconv"
	"strings"

	"github.com/civicworks/shiftsync/pkg/models"
)

// bindSignups attaches signup intents to the shifts they reference, seeding
// each volunteer's provisional attendance state: an active signup is pending
// until time logs say otherwise, an inactive one is cancelled, and anything
// else defaults to absent.
func (r *Reconciler) bindSignups(ctx context.Context, shifts []*models.ShiftStatus) {
	bound := 0
	for _, shift := range shifts {
		shiftID, err := strconv.Atoi(shift.ID)
		if err != nil || shift.NeedID == 0 {
			r.log.Warn().Str("shift_id", shift.ID).Int("need_id", shift.NeedID).
				Msg("shift missing identity for signup binding, skipping")
			continue
		}

		responses, err := r.responses.ByNeedShift(ctx, shift.NeedID, shiftID)
		if err != nil {
			r.log.Error().Err(err).Str("shift_id", shift.ID).Msg("loading signups for shift")
			continue
		}

		for _, resp := range responses {
			if resp.UserID == 0 {
				r.log.Warn().Int("response_id", resp.ID).Msg("signup missing user id, skipping")
				continue
			}

			status := provisionalStatus(resp.Status)
			if existing := shift.User(resp.UserID); existing != nil {
				// A duplicate signup may only upgrade an absent entry,
				// never downgrade a stronger provisional state.
				if status != models.CheckinAbsent && existing.CheckinStatus == models.CheckinAbsent {
					existing.CheckinStatus = status
				}
				continue
			}

			shift.Users = append(shift.Users, models.ShiftUser{
				ID:            resp.UserID,
				DomainID:      resp.DomainID,
				FirstName:     resp.FirstName,
				LastName:      resp.LastName,
				Email:         resp.Email,
				CheckinStatus: status,
			})
			bound++
		}
	}
	r.log.Info().Int("signups", bound).Int("shifts", len(shifts)).Msg("bound signups to shifts")
}

func provisionalStatus(responseStatus string) string {
	switch strings.ToLower(responseStatus) {
	case "active":
		return models.CheckinPending
	case "inactive":
		return models.CheckinCancelled
	default:
		return models.CheckinAbsent
	}
}
