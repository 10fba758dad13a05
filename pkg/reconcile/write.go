package reconcile

import (
	"context"

	"github.com/civicworks/shiftsync/pkg/models"
)

// writeShifts persists the assembled shift records. In fresh mode the table
// is cleared first so stale shifts from prior runs are dropped; otherwise
// existing rows are replaced in place, keeping the run idempotent.
func (r *Reconciler) writeShifts(ctx context.Context, shifts []*models.ShiftStatus, stats *models.RunStats) {
	if r.opts.FreshShiftData {
		if err := r.statuses.DeleteAll(ctx); err != nil {
			r.log.Error().Err(err).Msg("clearing shift data for fresh run")
			stats.Errors++
			return
		}
		r.log.Info().Msg("cleared existing shift data")
	}

	for _, shift := range shifts {
		if shift.ID == "" {
			r.log.Error().Int("need_id", shift.NeedID).Msg("shift without id, not persisting")
			stats.Errors++
			continue
		}
		shift.SyncedAt = r.now()

		inserted, err := r.statuses.Upsert(ctx, shift)
		if err != nil {
			r.log.Error().Err(err).Str("shift_id", shift.ID).Msg("persisting shift")
			stats.Errors++
			continue
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
		stats.ShiftsProcessed++
	}
}
