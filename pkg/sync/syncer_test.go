package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/civicworks/shiftsync/pkg/config"
	"github.com/civicworks/shiftsync/pkg/database"
	"github.com/civicworks/shiftsync/pkg/models"
	"github.com/civicworks/shiftsync/pkg/store"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeFetcher serves canned pages keyed by resource, advancing through them
// as since_id pagination requests the next one.
type fakeFetcher struct {
	pages map[string][]string
	calls []url.Values
}

func (f *fakeFetcher) Get(ctx context.Context, resource string, params url.Values) (json.RawMessage, error) {
	f.calls = append(f.calls, cloneValues(params))
	pages := f.pages[resource]
	idx := 0
	if params.Get("since_id") != "" {
		idx = 1
	}
	if idx >= len(pages) {
		return json.RawMessage("[]"), nil
	}
	return json.RawMessage(pages[idx]), nil
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func TestSyncResourceNeeds(t *testing.T) {
	db := openTestDB(t)

	client := &fakeFetcher{pages: map[string][]string{
		"needs": {`[
			{"id": 100, "agency_id": "12", "need_title": "Food Bank", "need_hours": "2.5",
			 "shifts": [{"id": 1, "start": "2024-06-01 09:00:00", "end": "2024-06-01 11:00:00", "duration": "2", "slots": 5}]},
			{"id": "101", "need_title": "Cleanup"}
		]`},
	}}

	s := New(db, client, []config.Resource{{Name: "needs", SinceField: "since_updated"}})
	require.NoError(t, s.SyncAll(context.Background()))

	var needs []models.Need
	require.NoError(t, db.Order("id").Find(&needs).Error)
	require.Len(t, needs, 2)

	assert.Equal(t, 100, needs[0].ID)
	assert.Equal(t, 12, needs[0].AgencyID)
	assert.Equal(t, 2.5, needs[0].HoursEstimate)
	require.Len(t, needs[0].Shifts, 1)
	assert.Equal(t, 1, needs[0].Shifts[0].ID)
	assert.Equal(t, 5, needs[0].Shifts[0].Slots)
	assert.Equal(t, 101, needs[1].ID)

	// First sync has no watermark.
	require.NotEmpty(t, client.calls)
	assert.Empty(t, client.calls[0].Get("since_updated"))
	assert.Equal(t, "150", client.calls[0].Get("per_page"))
	assert.Equal(t, "Yes", client.calls[0].Get("show_inactive"))

	// Metadata recorded, so the next sync is incremental.
	last, err := store.NewMetadataStore(db).LastSync(context.Background(), "needs")
	require.NoError(t, err)
	require.NotNil(t, last)

	client.calls = nil
	require.NoError(t, s.SyncAll(context.Background()))
	assert.NotEmpty(t, client.calls[0].Get("since_updated"))
}

func TestSyncResourceHoursAltFields(t *testing.T) {
	db := openTestDB(t)

	client := &fakeFetcher{pages: map[string][]string{
		"hours": {`[
			{"id": 9, "need": {"id": 100}, "shift": {"id": 1},
			 "user": {"id": 7, "domain_id": 3, "user_fname": "Ada", "user_lname": "L", "user_email": "ada@example.org"},
			 "date_start": "2024-06-01 09:00:00", "date_end": "2024-06-01 11:00:00",
			 "duration": "2.0", "status": "approved", "source": "/kiosk/checkin",
			 "created_at": "2024-06-01T11:05:00Z"}
		]`},
	}}

	s := New(db, client, []config.Resource{{Name: "hours", SinceField: "since_updated"}})
	require.NoError(t, s.SyncAll(context.Background()))

	var hour models.Hour
	require.NoError(t, db.First(&hour, 9).Error)
	assert.Equal(t, 100, hour.NeedID)
	assert.Equal(t, 1, hour.ShiftID)
	assert.Equal(t, 7, hour.UserID)
	assert.Equal(t, "Ada", hour.FirstName)
	assert.Equal(t, "2.0", hour.Duration)
	assert.Equal(t, "approved", hour.Status)
	require.NotNil(t, hour.StartAt)
	require.NotNil(t, hour.DateCreated)
}

func TestSyncResourceResponses(t *testing.T) {
	db := openTestDB(t)

	client := &fakeFetcher{pages: map[string][]string{
		"responses": {`[
			{"id": 1, "need": {"id": 100}, "shift": {"id": 2},
			 "user": {"id": 7, "user_fname": "Ada"}, "response_status": "active"},
			{"id": 2, "need": {"id": 100}, "shift": {"id": 2},
			 "user": {"id": 8}, "status": "inactive"}
		]`},
	}}

	s := New(db, client, []config.Resource{{Name: "responses"}})
	require.NoError(t, s.SyncAll(context.Background()))

	var responses []models.Response
	require.NoError(t, db.Order("id").Find(&responses).Error)
	require.Len(t, responses, 2)
	assert.Equal(t, "active", responses[0].Status)
	// Fallback status field.
	assert.Equal(t, "inactive", responses[1].Status)
}

func TestSyncUpsertOverwrites(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Create(&models.Need{ID: 100, Title: "Old Title"}).Error)

	client := &fakeFetcher{pages: map[string][]string{
		"needs": {`[{"id": 100, "need_title": "New Title"}]`},
	}}
	s := New(db, client, []config.Resource{{Name: "needs"}})
	require.NoError(t, s.SyncAll(context.Background()))

	var need models.Need
	require.NoError(t, db.First(&need, 100).Error)
	assert.Equal(t, "New Title", need.Title)

	var count int64
	require.NoError(t, db.Model(&models.Need{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
