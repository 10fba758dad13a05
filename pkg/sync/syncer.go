// Package sync pulls needs, responses and hours from the Galaxy Digital API
// into the local database, incrementally where the upstream supports it.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/civicworks/shiftsync/pkg/config"
	"github.com/civicworks/shiftsync/pkg/galaxy"
	"github.com/civicworks/shiftsync/pkg/store"
)

const perPage = 150

// Fetcher is the slice of the API client the syncer needs.
type Fetcher interface {
	Get(ctx context.Context, resource string, params url.Values) (json.RawMessage, error)
}

// Syncer mirrors upstream resources into local tables.
type Syncer struct {
	client    Fetcher
	needs     *store.NeedStore
	responses *store.ResponseStore
	hours     *store.HourStore
	meta      *store.MetadataStore
	resources []config.Resource
	now       func() time.Time
	log       zerolog.Logger
}

// New creates a Syncer writing through the given database.
func New(db *gorm.DB, client Fetcher, resources []config.Resource) *Syncer {
	return &Syncer{
		client:    client,
		needs:     store.NewNeedStore(db),
		responses: store.NewResponseStore(db),
		hours:     store.NewHourStore(db),
		meta:      store.NewMetadataStore(db),
		resources: resources,
		now:       time.Now,
		log:       log.With().Str("component", "sync").Logger(),
	}
}

// SyncAll runs one sync pass over every configured resource. A resource
// that fails is logged and skipped; the pass continues.
func (s *Syncer) SyncAll(ctx context.Context) error {
	var failed []string
	for _, res := range s.resources {
		if err := s.syncResource(ctx, res); err != nil {
			s.log.Error().Err(err).Str("resource", res.Name).Msg("resource sync failed")
			failed = append(failed, res.Name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("sync incomplete: %v failed", failed)
	}
	return nil
}

// syncResource pages through one resource and upserts every item. Incremental
// runs constrain the query with the resource's since field, formatted in the
// upstream's home timezone. Pages advance by since_id so rows changing
// mid-run cannot shift page boundaries.
func (s *Syncer) syncResource(ctx context.Context, res config.Resource) error {
	started := s.now()

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("show_inactive", "Yes")

	if res.SinceField != "" {
		last, err := s.meta.LastSync(ctx, res.Name)
		if err != nil {
			return fmt.Errorf("loading last sync for %s: %w", res.Name, err)
		}
		if last != nil {
			since := formatSince(*last)
			params.Set(res.SinceField, since)
			s.log.Info().Str("resource", res.Name).Str("since", since).Msg("incremental sync")
		} else {
			s.log.Info().Str("resource", res.Name).Msg("no previous sync, full fetch")
		}
	}

	total := 0
	lastID := 0
	for {
		if lastID > 0 {
			params.Set("since_id", strconv.Itoa(lastID))
		}

		data, err := s.client.Get(ctx, res.Name, params)
		if err != nil {
			return fmt.Errorf("fetching %s page: %w", res.Name, err)
		}

		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decoding %s page: %w", res.Name, err)
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			id, err := s.upsertItem(ctx, res.Name, item)
			if err != nil {
				s.log.Error().Err(err).Str("resource", res.Name).Msg("storing item")
				continue
			}
			if id > lastID {
				lastID = id
			}
			total++
		}

		if len(items) < perPage {
			break
		}
	}

	if total > 0 {
		if err := s.meta.Touch(ctx, res.Name, started); err != nil {
			return fmt.Errorf("recording sync time for %s: %w", res.Name, err)
		}
	}
	s.log.Info().Str("resource", res.Name).Int("items", total).
		Dur("elapsed", s.now().Sub(started)).Msg("resource synced")
	return nil
}

func (s *Syncer) upsertItem(ctx context.Context, resource string, item json.RawMessage) (int, error) {
	now := s.now()
	switch resource {
	case "needs":
		var p needPayload
		if err := json.Unmarshal(item, &p); err != nil {
			return 0, fmt.Errorf("decoding need: %w", err)
		}
		m := p.model(now)
		return m.ID, s.needs.Upsert(ctx, &m)
	case "responses":
		var p responsePayload
		if err := json.Unmarshal(item, &p); err != nil {
			return 0, fmt.Errorf("decoding response: %w", err)
		}
		m := p.model(now)
		return m.ID, s.responses.Upsert(ctx, &m)
	case "hours":
		var p hourPayload
		if err := json.Unmarshal(item, &p); err != nil {
			return 0, fmt.Errorf("decoding hour: %w", err)
		}
		m := p.model(now)
		return m.ID, s.hours.Upsert(ctx, &m)
	default:
		return 0, fmt.Errorf("unknown resource %q", resource)
	}
}

// formatSince renders a sync watermark the way the upstream expects:
// wall-clock time in America/Chicago. Falls back to UTC when the zone
// database is unavailable.
func formatSince(t time.Time) string {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}
