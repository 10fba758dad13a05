package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/shiftsync/pkg/models"
)

func TestBindSignups(t *testing.T) {
	db := openTestDB(t)

	responses := []models.Response{
		{ID: 1, NeedID: 100, ShiftID: 1, UserID: 7, FirstName: "Ada", Status: "active"},
		{ID: 2, NeedID: 100, ShiftID: 1, UserID: 8, FirstName: "Ben", Status: "inactive"},
		{ID: 3, NeedID: 100, ShiftID: 1, UserID: 9, FirstName: "Cal", Status: ""},
		{ID: 4, NeedID: 100, ShiftID: 2, UserID: 7, Status: "active"},
		{ID: 5, NeedID: 100, ShiftID: 1, UserID: 0, Status: "active"},
	}
	for i := range responses {
		require.NoError(t, db.Create(&responses[i]).Error)
	}

	shift := &models.ShiftStatus{ID: "1", NeedID: 100}
	r := New(db, Options{})
	r.bindSignups(context.Background(), []*models.ShiftStatus{shift})

	require.Len(t, shift.Users, 3)
	assert.Equal(t, models.CheckinPending, shift.User(7).CheckinStatus)
	assert.Equal(t, models.CheckinCancelled, shift.User(8).CheckinStatus)
	assert.Equal(t, models.CheckinAbsent, shift.User(9).CheckinStatus)
	assert.Equal(t, "Ada", shift.User(7).FirstName)
}

func TestBindSignupsDuplicateUpgradesAbsentOnly(t *testing.T) {
	db := openTestDB(t)

	responses := []models.Response{
		{ID: 1, NeedID: 100, ShiftID: 1, UserID: 7, Status: "unknown"},
		{ID: 2, NeedID: 100, ShiftID: 1, UserID: 7, Status: "active"},
		{ID: 3, NeedID: 100, ShiftID: 1, UserID: 8, Status: "active"},
		{ID: 4, NeedID: 100, ShiftID: 1, UserID: 8, Status: "inactive"},
	}
	for i := range responses {
		require.NoError(t, db.Create(&responses[i]).Error)
	}

	shift := &models.ShiftStatus{ID: "1", NeedID: 100}
	r := New(db, Options{})
	r.bindSignups(context.Background(), []*models.ShiftStatus{shift})

	require.Len(t, shift.Users, 2)
	// Absent upgraded by the later active signup.
	assert.Equal(t, models.CheckinPending, shift.User(7).CheckinStatus)
	// Pending not downgraded by the later inactive one.
	assert.Equal(t, models.CheckinPending, shift.User(8).CheckinStatus)
}
