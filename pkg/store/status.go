package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/civicworks/shiftsync/pkg/models"
)

// StatusStore owns the derived shift status collection. All writes replace
// every field except the primary key, so repeated runs converge on the same
// stored state. Each write also refreshes the flattened shift_user_index
// rows used for volunteer and checkin-status lookups.
type StatusStore struct {
	db *gorm.DB
}

// NewStatusStore creates a StatusStore.
func NewStatusStore(db *gorm.DB) *StatusStore {
	return &StatusStore{db: db}
}

// Get returns one shift status by key.
func (s *StatusStore) Get(ctx context.Context, id string) (*models.ShiftStatus, error) {
	var status models.ShiftStatus
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading shift status %s: %w", id, err)
	}
	return &status, nil
}

// Upsert inserts the record or replaces all fields except the key on an
// existing match. It reports whether a new row was inserted.
func (s *StatusStore) Upsert(ctx context.Context, status *models.ShiftStatus) (bool, error) {
	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ShiftStatus
		err := tx.Select("id").Where("id = ?", status.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			inserted = true
			if err := tx.Create(status).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			err := tx.Model(&models.ShiftStatus{}).
				Where("id = ?", status.ID).
				Select("*").Omit("id").
				Updates(status).Error
			if err != nil {
				return err
			}
		}
		return s.reindex(tx, status)
	})
	if err != nil {
		return false, fmt.Errorf("upserting shift status %s: %w", status.ID, err)
	}
	return inserted, nil
}

// reindex replaces the flattened user rows for one shift.
func (s *StatusStore) reindex(tx *gorm.DB, status *models.ShiftStatus) error {
	if err := tx.Where("shift_id = ?", status.ID).Delete(&models.ShiftUserIndex{}).Error; err != nil {
		return err
	}
	for i := range status.Users {
		row := models.ShiftUserIndex{
			ShiftID:       status.ID,
			UserID:        status.Users[i].ID,
			NeedID:        status.NeedID,
			CheckinStatus: status.Users[i].CheckinStatus,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// HasCompletedUser reports whether any persisted shift for the need already
// carries a completed entry for the volunteer.
func (s *StatusStore) HasCompletedUser(ctx context.Context, needID, userID int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ShiftUserIndex{}).
		Where("need_id = ? AND user_id = ? AND checkin_status = ?", needID, userID, models.CheckinCompleted).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking completed entry for need %d user %d: %w", needID, userID, err)
	}
	return count > 0, nil
}

// DeleteAll clears the derived collection and its index rows (rebuild mode).
func (s *StatusStore) DeleteAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ShiftUserIndex{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.ShiftStatus{}).Error
	})
}

// Query filters for Search.
type Query struct {
	NeedID        int
	CheckinStatus string
	From          *time.Time
	To            *time.Time
	Limit         int
}

// Search returns shift statuses matching the filters, ordered by start time.
func (s *StatusStore) Search(ctx context.Context, q Query) ([]models.ShiftStatus, error) {
	tx := s.db.WithContext(ctx).Model(&models.ShiftStatus{})
	if q.NeedID != 0 {
		tx = tx.Where("need_id = ?", q.NeedID)
	}
	if q.CheckinStatus != "" {
		tx = tx.Where("id IN (?)",
			s.db.Model(&models.ShiftUserIndex{}).Select("shift_id").
				Where("checkin_status = ?", q.CheckinStatus))
	}
	if q.From != nil {
		tx = tx.Where("start >= ?", *q.From)
	}
	if q.To != nil {
		tx = tx.Where("start < ?", *q.To)
	}
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var statuses []models.ShiftStatus
	if err := tx.Order("start").Limit(limit).Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("searching shift statuses: %w", err)
	}
	return statuses, nil
}
