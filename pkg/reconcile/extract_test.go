package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/civicworks/shiftsync/pkg/models"
)

func TestExtractShiftsFromEmbeddedList(t *testing.T) {
	db := openTestDB(t)
	now := ts(t, "2024-06-01T00:00:00Z")

	need := models.Need{
		ID:    100,
		Title: "Food Bank",
		Shifts: datatypes.JSONSlice[models.Shift]{
			{ID: 1, Start: ts(t, "2024-05-30T09:00:00Z"), End: ts(t, "2024-05-30T11:00:00Z"), Duration: 2, Slots: 5},
			{ID: 2, Start: ts(t, "2024-06-02T09:00:00Z"), End: ts(t, "2024-06-02T11:00:00Z"), Duration: 2, Slots: 5},
			{ID: 0, Start: ts(t, "2024-06-03T09:00:00Z"), End: ts(t, "2024-06-03T11:00:00Z")},
		},
	}
	require.NoError(t, db.Create(&need).Error)

	r := New(db, Options{})
	shifts := r.extractShifts(context.Background(), false, now)
	require.Len(t, shifts, 2)
	assert.Equal(t, "1", shifts[0].ID)
	assert.Equal(t, "Food Bank", shifts[0].Title)
	assert.Equal(t, models.OriginAggregation, shifts[0].Origin)

	// Future-only drops the past shift.
	shifts = r.extractShifts(context.Background(), true, now)
	require.Len(t, shifts, 1)
	assert.Equal(t, "2", shifts[0].ID)
}

func TestExtractShiftsDurationFallback(t *testing.T) {
	db := openTestDB(t)

	need := models.Need{
		ID:            101,
		HoursEstimate: 3.5,
		Shifts: datatypes.JSONSlice[models.Shift]{
			{ID: 10, Start: ts(t, "2024-06-02T09:00:00Z"), End: ts(t, "2024-06-02T12:30:00Z")},
		},
	}
	require.NoError(t, db.Create(&need).Error)

	r := New(db, Options{})
	shifts := r.extractShifts(context.Background(), false, ts(t, "2024-06-01T00:00:00Z"))
	require.Len(t, shifts, 1)
	assert.Equal(t, 3.5, shifts[0].Duration)
}

func TestExtractShiftsFlatDateFallback(t *testing.T) {
	db := openTestDB(t)

	// No need anywhere carries a structured shift list, so the flat date
	// pair becomes one implicit shift per need.
	need := models.Need{
		ID:            102,
		Title:         "Cleanup Day",
		HoursEstimate: 4,
		DateStart:     tsp(t, "2024-06-05T08:00:00Z"),
		DateEnd:       tsp(t, "2024-06-05T12:00:00Z"),
	}
	require.NoError(t, db.Create(&need).Error)

	r := New(db, Options{})
	shifts := r.extractShifts(context.Background(), false, ts(t, "2024-06-01T00:00:00Z"))
	require.Len(t, shifts, 1)
	assert.Equal(t, "102", shifts[0].ID)
	assert.Equal(t, 4.0, shifts[0].Duration)
}

func TestExtractShiftsSynthesizedDays(t *testing.T) {
	db := openTestDB(t)

	need := models.Need{ID: 800197, Title: "Drop-in Center"}
	require.NoError(t, db.Create(&need).Error)

	hours := []models.Hour{
		{ID: 1, NeedID: 800197, UserID: 7, StartAt: tsp(t, "2024-06-03T09:00:00Z"), EndAt: tsp(t, "2024-06-03T11:00:00Z"), Duration: "2"},
		{ID: 2, NeedID: 800197, UserID: 8, StartAt: tsp(t, "2024-06-03T10:00:00Z"), EndAt: tsp(t, "2024-06-03T13:00:00Z"), Duration: "3"},
		{ID: 3, NeedID: 800197, UserID: 7, StartAt: tsp(t, "2024-06-04T09:00:00Z"), EndAt: tsp(t, "2024-06-04T11:00:00Z"), Duration: "2"},
	}
	for i := range hours {
		require.NoError(t, db.Create(&hours[i]).Error)
	}

	r := New(db, Options{SynthesizeNeedIDs: []int{800197}})
	shifts := r.extractShifts(context.Background(), false, ts(t, "2024-06-01T00:00:00Z"))
	require.Len(t, shifts, 2)

	// First day spans the union of its two logs and averages their durations.
	assert.Equal(t, "1", shifts[0].ID)
	assert.Equal(t, ts(t, "2024-06-03T09:00:00Z"), *shifts[0].Start)
	assert.Equal(t, ts(t, "2024-06-03T13:00:00Z"), *shifts[0].End)
	assert.Equal(t, 2.5, shifts[0].Duration)
	assert.Equal(t, 2, shifts[0].Slots)

	assert.Equal(t, "3", shifts[1].ID)
	assert.Equal(t, 1, shifts[1].Slots)
}
