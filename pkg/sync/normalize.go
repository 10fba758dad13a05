package sync

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/civicworks/shiftsync/pkg/models"
)

// The upstream API is loose about scalar types: numeric ids arrive as
// numbers or quoted strings depending on the endpoint, and timestamps come
// in several layouts. The flex* types absorb that variance at decode time.

type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		*f = flexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(int(v))
		return nil
	}
	*f = 0
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexFloat(v)
		return nil
	}
	*f = 0
	return nil
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.Trim(string(b), `"`))
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006-01-02",
}

type flexTime struct {
	t *time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" || s == "0000-00-00 00:00:00" {
		f.t = nil
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			f.t = &t
			return nil
		}
	}
	f.t = nil
	return nil
}

type idRef struct {
	ID flexInt `json:"id"`
}

type userRef struct {
	ID        flexInt    `json:"id"`
	DomainID  flexInt    `json:"domain_id"`
	FirstName flexString `json:"user_fname"`
	LastName  flexString `json:"user_lname"`
	Email     flexString `json:"user_email"`
}

type shiftPayload struct {
	ID       flexInt   `json:"id"`
	Start    flexTime  `json:"start"`
	End      flexTime  `json:"end"`
	Duration flexFloat `json:"duration"`
	Slots    flexInt   `json:"slots"`
}

type needPayload struct {
	ID        flexInt        `json:"id"`
	AgencyID  flexInt        `json:"agency_id"`
	Title     flexString     `json:"need_title"`
	Hours     flexFloat      `json:"need_hours"`
	DateStart flexTime       `json:"need_date_start"`
	DateEnd   flexTime       `json:"need_date_end"`
	Shifts    []shiftPayload `json:"shifts"`
}

func (p needPayload) model(now time.Time) models.Need {
	shifts := make([]models.Shift, 0, len(p.Shifts))
	for _, s := range p.Shifts {
		shift := models.Shift{
			ID:       int(s.ID),
			Duration: float64(s.Duration),
			Slots:    int(s.Slots),
		}
		if s.Start.t != nil {
			shift.Start = *s.Start.t
		}
		if s.End.t != nil {
			shift.End = *s.End.t
		}
		shifts = append(shifts, shift)
	}
	return models.Need{
		ID:            int(p.ID),
		AgencyID:      int(p.AgencyID),
		Title:         string(p.Title),
		HoursEstimate: float64(p.Hours),
		DateStart:     p.DateStart.t,
		DateEnd:       p.DateEnd.t,
		Shifts:        datatypes.JSONSlice[models.Shift](shifts),
		SyncedAt:      now,
	}
}

type responsePayload struct {
	ID        flexInt    `json:"id"`
	Need      idRef      `json:"need"`
	Shift     idRef      `json:"shift"`
	User      userRef    `json:"user"`
	Status    flexString `json:"response_status"`
	StatusAlt flexString `json:"status"`
}

func (p responsePayload) model(now time.Time) models.Response {
	status := string(p.Status)
	if status == "" {
		status = string(p.StatusAlt)
	}
	return models.Response{
		ID:        int(p.ID),
		NeedID:    int(p.Need.ID),
		ShiftID:   int(p.Shift.ID),
		UserID:    int(p.User.ID),
		DomainID:  int(p.User.DomainID),
		FirstName: string(p.User.FirstName),
		LastName:  string(p.User.LastName),
		Email:     string(p.User.Email),
		Status:    status,
		SyncedAt:  now,
	}
}

type hourPayload struct {
	ID          flexInt    `json:"id"`
	Need        idRef      `json:"need"`
	Shift       idRef      `json:"shift"`
	User        userRef    `json:"user"`
	Start       flexTime   `json:"hour_date_start"`
	StartAlt    flexTime   `json:"date_start"`
	End         flexTime   `json:"hour_date_end"`
	EndAlt      flexTime   `json:"date_end"`
	Duration    flexString `json:"hour_duration"`
	DurationAlt flexString `json:"duration"`
	Status      flexString `json:"hour_status"`
	StatusAlt   flexString `json:"status"`
	Source      flexString `json:"hour_source"`
	SourceAlt   flexString `json:"source"`
	Created     flexTime   `json:"hour_date_created"`
	CreatedAlt  flexTime   `json:"created_at"`
	Updated     flexTime   `json:"hour_date_updated"`
	UpdatedAlt  flexTime   `json:"updated_at"`
}

func firstTime(primary, fallback flexTime) *time.Time {
	if primary.t != nil {
		return primary.t
	}
	return fallback.t
}

func firstString(primary, fallback flexString) string {
	if primary != "" {
		return string(primary)
	}
	return string(fallback)
}

func (p hourPayload) model(now time.Time) models.Hour {
	return models.Hour{
		ID:          int(p.ID),
		NeedID:      int(p.Need.ID),
		ShiftID:     int(p.Shift.ID),
		UserID:      int(p.User.ID),
		DomainID:    int(p.User.DomainID),
		FirstName:   string(p.User.FirstName),
		LastName:    string(p.User.LastName),
		Email:       string(p.User.Email),
		StartAt:     firstTime(p.Start, p.StartAlt),
		EndAt:       firstTime(p.End, p.EndAlt),
		Duration:    firstString(p.Duration, p.DurationAlt),
		Status:      firstString(p.Status, p.StatusAlt),
		Source:      firstString(p.Source, p.SourceAlt),
		DateCreated: firstTime(p.Created, p.CreatedAlt),
		DateUpdated: firstTime(p.Updated, p.UpdatedAlt),
		SyncedAt:    now,
	}
}
