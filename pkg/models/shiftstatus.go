package models

import (
	"time"

	"gorm.io/datatypes"
)

// Per-volunteer attendance states. Exactly one applies per volunteer per
// shift at any time.
const (
	CheckinPending   = "pending"
	CheckinActive    = "active"
	CheckinCompleted = "completed"
	CheckinAbsent    = "absent"
	CheckinCancelled = "cancelled"
)

// Checkout summaries for logs still awaiting approval.
const (
	CheckoutInAndOut        = "checked_in_and_out"
	CheckoutInOnly          = "checked_in_only"
	CheckoutManagerApproved = "manager_approved"
	CheckoutNoActivity      = "no_checkin_activity"
)

// Origin values for a ShiftStatus record.
const (
	OriginAggregation = "aggregation"
	OriginSynthetic   = "synthetic"
)

// ShiftUser is one volunteer's derived state within one shift.
type ShiftUser struct {
	ID                 int        `json:"id"`
	DomainID           int        `json:"domain_id"`
	FirstName          string     `json:"user_fname"`
	LastName           string     `json:"user_lname"`
	Email              string     `json:"user_email"`
	CheckinStatus      string     `json:"checkin_status"`
	HourID             int        `json:"hour_id,omitempty"`
	HourStatus         string     `json:"hour_status,omitempty"`
	HourSource         string     `json:"hour_source,omitempty"`
	Duration           float64    `json:"duration,omitempty"`
	HourStart          *time.Time `json:"hour_date_start,omitempty"`
	HourEnd            *time.Time `json:"hour_date_end,omitempty"`
	HourCreated        *time.Time `json:"hour_date_created,omitempty"`
	HourUpdated        *time.Time `json:"hour_date_updated,omitempty"`
	CheckoutStatus     string     `json:"checkout_status,omitempty"`
	HasCheckin         bool       `json:"has_checkin"`
	HasCheckout        bool       `json:"has_checkout"`
	HasManagerApproval bool       `json:"has_manager_approval"`
	HasKioskActivity   bool       `json:"has_kiosk_activity"`
}

// ShiftStatus is the derived attendance record for one shift, real or
// synthetic. The primary key is the shift identifier rendered as a string;
// synthetic shifts are namespaced ("syn_...") so they cannot collide with
// the numeric identifiers of real shifts.
type ShiftStatus struct {
	ID          string                         `gorm:"primaryKey;size:64" json:"id"`
	Start       *time.Time                     `gorm:"index" json:"start"`
	End         *time.Time                     `json:"end"`
	Duration    float64                        `json:"duration"`
	Slots       int                            `json:"slots"`
	SlotsFilled int                            `json:"slots_filled"`
	NeedID      int                            `gorm:"index" json:"need_id"`
	Title       string                         `json:"title"`
	Users       datatypes.JSONSlice[ShiftUser] `json:"users"`
	Origin      string                         `json:"origin"`
	SyncedAt    time.Time                      `json:"_synced_at"`
}

// User returns a pointer to the entry for the given volunteer, or nil.
func (s *ShiftStatus) User(userID int) *ShiftUser {
	for i := range s.Users {
		if s.Users[i].ID == userID {
			return &s.Users[i]
		}
	}
	return nil
}

// RecomputeSlotsFilled refreshes the non-cancelled user count and backfills
// Slots from the user count when it was never set.
func (s *ShiftStatus) RecomputeSlotsFilled() {
	filled := 0
	for i := range s.Users {
		if s.Users[i].CheckinStatus != CheckinCancelled {
			filled++
		}
	}
	s.SlotsFilled = filled
	if s.Slots == 0 {
		s.Slots = len(s.Users)
	}
}

// ShiftUserIndex is a flattened row per (shift, volunteer) kept alongside
// the JSON user list so volunteer id and checkin status stay queryable with
// plain indexes.
type ShiftUserIndex struct {
	ShiftID       string `gorm:"primaryKey;size:64" json:"shift_id"`
	UserID        int    `gorm:"primaryKey;index" json:"user_id"`
	NeedID        int    `gorm:"index" json:"need_id"`
	CheckinStatus string `gorm:"index" json:"checkin_status"`
}

// TableName keeps the singular index-style name.
func (ShiftUserIndex) TableName() string { return "shift_user_index" }

// RunStats summarizes one reconciliation pass.
type RunStats struct {
	RunID            string    `json:"run_id"`
	ShiftsProcessed  int       `json:"shifts_processed"`
	Inserted         int       `json:"inserted"`
	Updated          int       `json:"updated"`
	Errors           int       `json:"errors"`
	SyntheticCreated int       `json:"synthetic_created"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}
