// Package reconcile derives a single authoritative per-volunteer attendance
// state for every shift from three independently evolving source streams:
// scheduling definitions (needs with embedded shifts), signup intents
// (responses) and logged-time records (hours).
//
// A pass runs in a fixed pipeline: extract shifts, bind signups, correlate
// time logs, write the derived records, then synthesize shifts for approved
// logs nothing claimed. Every stage recovers failures at the smallest
// enclosing unit (record, then shift, then need) so one bad record never
// aborts a run, and the writer's upsert-by-key keeps repeated runs from
// duplicating anything.
package reconcile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/civicworks/shiftsync/pkg/models"
	"github.com/civicworks/shiftsync/pkg/store"
)

// Options configures a Reconciler.
type Options struct {
	// SynthesizeNeedIDs lists needs that publish time logs without a
	// structured shift list; their shifts are rebuilt from the logs, one
	// per calendar day.
	SynthesizeNeedIDs []int
	// FreshShiftData clears the derived collection before writing, turning
	// the pass into a full rebuild instead of an incremental merge.
	FreshShiftData bool
}

// Reconciler runs reconciliation passes over one database.
type Reconciler struct {
	db         *gorm.DB
	needs      *store.NeedStore
	responses  *store.ResponseStore
	hours      *store.HourStore
	statuses   *store.StatusStore
	classifier Classifier
	opts       Options
	now        func() time.Time
	log        zerolog.Logger
}

// New creates a Reconciler over the given database.
func New(db *gorm.DB, opts Options) *Reconciler {
	return &Reconciler{
		db:         db,
		needs:      store.NewNeedStore(db),
		responses:  store.NewResponseStore(db),
		hours:      store.NewHourStore(db),
		statuses:   store.NewStatusStore(db),
		classifier: NewTokenClassifier(),
		opts:       opts,
		now:        time.Now,
		log:        log.With().Str("component", "reconcile").Logger(),
	}
}

// Reconcile runs one full pass. When futureOnly is set, only shifts starting
// at or after now are considered. The returned stats always reflect what was
// attempted; per-record failures are counted, not raised.
func (r *Reconciler) Reconcile(ctx context.Context, futureOnly bool) (*models.RunStats, error) {
	stats := &models.RunStats{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}

	if missing := store.MissingSources(r.db); len(missing) > 0 {
		r.log.Warn().Strs("missing", missing).Msg("source collections absent, skipping reconciliation")
		stats.FinishedAt = r.now()
		return stats, nil
	}

	now := r.now().UTC()
	shifts := r.extractShifts(ctx, futureOnly, now)
	r.bindSignups(ctx, shifts)
	r.correlateHours(ctx, shifts)
	r.writeShifts(ctx, shifts, stats)
	r.synthesizeOrphans(ctx, stats)

	stats.FinishedAt = r.now()
	r.log.Info().
		Str("run_id", stats.RunID).
		Int("processed", stats.ShiftsProcessed).
		Int("inserted", stats.Inserted).
		Int("updated", stats.Updated).
		Int("errors", stats.Errors).
		Int("synthetic", stats.SyntheticCreated).
		Dur("elapsed", stats.FinishedAt.Sub(stats.StartedAt)).
		Msg("reconciliation pass complete")
	return stats, nil
}
