package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/civicworks/shiftsync/pkg/models"
	"github.com/civicworks/shiftsync/pkg/store"
)

// defaultOrphanHours credits a standard visit length when an approved log
// carries no usable duration.
const defaultOrphanHours = 2.0

type orphanKey struct {
	needID int
	userID int
}

// synthesizeOrphans creates shift records for approved time logs that never
// matched a real shift, so credited hours stay visible. One synthetic shift
// is built per (need, user) pair, skipped when the volunteer already holds a
// completed entry for that need.
func (r *Reconciler) synthesizeOrphans(ctx context.Context, stats *models.RunStats) {
	hours, err := r.hours.Approved(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("loading approved hours for orphan synthesis")
		stats.Errors++
		return
	}

	groups := make(map[orphanKey][]*models.Hour)
	for i := range hours {
		h := &hours[i]
		key := orphanKey{needID: h.NeedID, userID: h.UserID}
		groups[key] = append(groups[key], h)
	}

	keys := make([]orphanKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].needID != keys[j].needID {
			return keys[i].needID < keys[j].needID
		}
		return keys[i].userID < keys[j].userID
	})

	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		covered, err := r.statuses.HasCompletedUser(ctx, key.needID, key.userID)
		if err != nil {
			r.log.Error().Err(err).Int("need_id", key.needID).Int("user_id", key.userID).
				Msg("checking existing completion before synthesis")
			stats.Errors++
			continue
		}
		if covered {
			continue
		}

		shift := r.buildSyntheticShift(ctx, key, group)
		inserted, err := r.statuses.Upsert(ctx, shift)
		if err != nil {
			r.log.Error().Err(err).Str("shift_id", shift.ID).Msg("persisting synthetic shift")
			stats.Errors++
			continue
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
		stats.ShiftsProcessed++
		stats.SyntheticCreated++
	}

	if stats.SyntheticCreated > 0 {
		r.log.Info().Int("synthetic", stats.SyntheticCreated).Msg("synthesized shifts for orphaned hours")
	}
}

func (r *Reconciler) buildSyntheticShift(ctx context.Context, key orphanKey, group []*models.Hour) *models.ShiftStatus {
	first := group[0]

	total := 0.0
	for _, h := range group {
		total += parseDurationField(h)
	}
	if total == 0 {
		total = defaultOrphanHours
	}

	shift := &models.ShiftStatus{
		ID:          fmt.Sprintf("syn_%d_%d_%d", key.needID, key.userID, first.ID),
		NeedID:      key.needID,
		Duration:    total,
		Slots:       1,
		SlotsFilled: 1,
		Origin:      models.OriginSynthetic,
		SyncedAt:    r.now(),
	}

	for _, h := range group {
		if h.StartAt != nil && (shift.Start == nil || h.StartAt.Before(*shift.Start)) {
			shift.Start = h.StartAt
		}
		if h.EndAt != nil && (shift.End == nil || h.EndAt.After(*shift.End)) {
			shift.End = h.EndAt
		}
	}

	need, err := r.needs.ByID(ctx, key.needID)
	switch {
	case err == nil:
		shift.Title = need.Title
	case err == store.ErrNotFound:
		shift.Title = fmt.Sprintf("Need %d", key.needID)
	default:
		r.log.Warn().Err(err).Int("need_id", key.needID).Msg("loading need title for synthetic shift")
		shift.Title = fmt.Sprintf("Need %d", key.needID)
	}

	// An approved log that no shift claimed is assumed to have gone through
	// the full checkin/checkout/approval flow.
	shift.Users = append(shift.Users, models.ShiftUser{
		ID:                 key.userID,
		DomainID:           first.DomainID,
		FirstName:          first.FirstName,
		LastName:           first.LastName,
		Email:              first.Email,
		CheckinStatus:      models.CheckinCompleted,
		CheckoutStatus:     models.CheckoutManagerApproved,
		HourID:             first.ID,
		HourStatus:         first.Status,
		HourSource:         first.Source,
		Duration:           total,
		HourStart:          shift.Start,
		HourEnd:            shift.End,
		HourCreated:        first.DateCreated,
		HourUpdated:        first.DateUpdated,
		HasCheckin:         true,
		HasCheckout:        true,
		HasManagerApproval: true,
		HasKioskActivity:   true,
	})
	return shift
}
