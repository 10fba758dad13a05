package models

import (
	"time"

	"gorm.io/datatypes"
)

// Need is a scheduling definition owned by the upstream volunteer service.
// It usually carries an embedded list of bookable Shifts; older records only
// have the flat DateStart/DateEnd pair instead.
type Need struct {
	ID            int                        `gorm:"primaryKey" json:"id"`
	AgencyID      int                        `gorm:"index" json:"agency_id"`
	Title         string                     `json:"need_title"`
	HoursEstimate float64                    `json:"need_hours"`
	DateStart     *time.Time                 `json:"need_date_start,omitempty"`
	DateEnd       *time.Time                 `json:"need_date_end,omitempty"`
	Shifts        datatypes.JSONSlice[Shift] `json:"shifts"`
	SyncedAt      time.Time                  `json:"_synced_at"`
}

// Shift is a bookable time window embedded in a Need.
type Shift struct {
	ID       int       `json:"id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration float64   `json:"duration"`
	Slots    int       `json:"slots"`
}

// Response is a volunteer's stated intent to work a shift.
type Response struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	NeedID    int       `gorm:"index" json:"need_id"`
	ShiftID   int       `gorm:"index" json:"shift_id"`
	UserID    int       `gorm:"index" json:"user_id"`
	DomainID  int       `json:"domain_id"`
	FirstName string    `json:"user_fname"`
	LastName  string    `json:"user_lname"`
	Email     string    `json:"user_email"`
	Status    string    `json:"response_status"`
	SyncedAt  time.Time `json:"_synced_at"`
}

// Hour is a logged work record. Status and Source are free text from the
// upstream service; Duration is kept as the raw string it arrives in and
// parsed with a fallback wherever a number is needed.
type Hour struct {
	ID          int        `gorm:"primaryKey" json:"id"`
	NeedID      int        `gorm:"index" json:"need_id"`
	ShiftID     int        `json:"shift_id"`
	UserID      int        `gorm:"index" json:"user_id"`
	DomainID    int        `json:"domain_id"`
	FirstName   string     `json:"user_fname"`
	LastName    string     `json:"user_lname"`
	Email       string     `json:"user_email"`
	StartAt     *time.Time `gorm:"index" json:"hour_date_start,omitempty"`
	EndAt       *time.Time `json:"hour_date_end,omitempty"`
	Duration    string     `json:"hour_duration"`
	Status      string     `json:"hour_status"`
	Source      string     `json:"hour_source"`
	DateCreated *time.Time `json:"hour_date_created,omitempty"`
	DateUpdated *time.Time `json:"hour_date_updated,omitempty"`
	SyncedAt    time.Time  `json:"_synced_at"`
}

// SyncMetadata tracks the last successful sync per upstream resource.
type SyncMetadata struct {
	Resource    string    `gorm:"primaryKey" json:"resource"`
	LastSync    time.Time `json:"last_sync"`
	LastSuccess time.Time `json:"last_success"`
}
