package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicworks/shiftsync/pkg/models"
)

func shiftAt(t *testing.T, id, start, end string) *models.ShiftStatus {
	t.Helper()
	return &models.ShiftStatus{
		ID:    id,
		Start: tsp(t, start),
		End:   tsp(t, end),
	}
}

func TestMatchCandidatesDirectReference(t *testing.T) {
	referenced := shiftAt(t, "42", "2024-06-01T09:00:00Z", "2024-06-01T11:00:00Z")
	nearby := shiftAt(t, "43", "2024-09-30T00:30:00Z", "2024-09-30T02:00:00Z")
	shifts := []*models.ShiftStatus{referenced, nearby}

	// A direct reference binds to the referenced shift alone, even when the
	// timestamps would match another shift by proximity.
	hour := &models.Hour{
		ShiftID: 42,
		StartAt: tsp(t, "2024-09-30T00:00:00Z"),
		EndAt:   tsp(t, "2024-09-30T01:00:00Z"),
	}
	got := matchCandidates(shifts, hour)
	require.Len(t, got, 1)
	assert.Same(t, referenced, got[0])
}

func TestMatchCandidatesStaleReferenceFallsBackToTime(t *testing.T) {
	shift := shiftAt(t, "1", "2024-06-01T09:00:00Z", "2024-06-01T11:00:00Z")

	// The referenced shift no longer exists, so the log matches by its
	// recorded window instead of being dropped.
	hour := &models.Hour{
		ShiftID: 999,
		StartAt: tsp(t, "2024-06-01T09:00:00Z"),
		EndAt:   tsp(t, "2024-06-01T11:00:00Z"),
	}
	got := matchCandidates([]*models.ShiftStatus{shift}, hour)
	require.Len(t, got, 1)
	assert.Same(t, shift, got[0])

	// A stale reference with no usable window still matches nothing.
	assert.Empty(t, matchCandidates([]*models.ShiftStatus{shift}, &models.Hour{ShiftID: 999}))
}

func TestMatchByTimeRules(t *testing.T) {
	shift := shiftAt(t, "1", "2024-06-01T09:00:00Z", "2024-06-01T12:00:00Z")

	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"exact bounds", "2024-06-01T09:00:00Z", "2024-06-01T12:00:00Z", true},
		{"contained", "2024-06-01T09:30:00Z", "2024-06-01T11:30:00Z", true},
		{"overlap start", "2024-06-01T08:00:00Z", "2024-06-01T10:00:00Z", true},
		{"overlap end", "2024-06-01T11:00:00Z", "2024-06-01T14:00:00Z", true},
		{"same day within hour", "2024-06-01T08:15:00Z", "2024-06-01T08:45:00Z", true},
		{"same day too far", "2024-06-01T15:00:00Z", "2024-06-01T16:00:00Z", false},
		{"different day", "2024-06-02T09:00:00Z", "2024-06-02T12:00:00Z", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour := &models.Hour{StartAt: tsp(t, tt.start), EndAt: tsp(t, tt.end)}
			assert.Equal(t, tt.want, matchByTime(shift, hour))
		})
	}
}

func TestMatchByTimeDateOnlyTimestamps(t *testing.T) {
	shift := shiftAt(t, "1", "2024-06-01T09:00:00Z", "2024-06-01T12:00:00Z")

	// Midnight start means date-only precision: same calendar day matches,
	// even though a midnight start is hours away from the shift.
	hour := &models.Hour{
		StartAt: tsp(t, "2024-06-01T00:00:00Z"),
		EndAt:   tsp(t, "2024-06-01T00:00:00Z"),
	}
	assert.True(t, matchByTime(shift, hour))

	hour.StartAt = tsp(t, "2024-06-02T00:00:00Z")
	assert.False(t, matchByTime(shift, hour))
}

func TestMatchByTimeMissingTimes(t *testing.T) {
	shift := shiftAt(t, "1", "2024-06-01T09:00:00Z", "2024-06-01T12:00:00Z")

	assert.False(t, matchByTime(shift, &models.Hour{StartAt: tsp(t, "2024-06-01T09:00:00Z")}))
	assert.False(t, matchByTime(shift, &models.Hour{EndAt: tsp(t, "2024-06-01T12:00:00Z")}))
	assert.False(t, matchByTime(shift, &models.Hour{}))
}
