package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicworks/shiftsync/pkg/models"
)

// HourStore reads and upserts logged-time records.
type HourStore struct {
	db *gorm.DB
}

// NewHourStore creates an HourStore.
func NewHourStore(db *gorm.DB) *HourStore {
	return &HourStore{db: db}
}

// ByNeed returns all time logs recorded against the given need.
func (s *HourStore) ByNeed(ctx context.Context, needID int) ([]models.Hour, error) {
	var hours []models.Hour
	err := s.db.WithContext(ctx).Where("need_id = ?", needID).Find(&hours).Error
	if err != nil {
		return nil, fmt.Errorf("loading hours for need %d: %w", needID, err)
	}
	return hours, nil
}

// Approved returns all time logs whose status marks them approved. Status
// text is free-form, so the comparison is case-insensitive.
func (s *HourStore) Approved(ctx context.Context) ([]models.Hour, error) {
	var hours []models.Hour
	err := s.db.WithContext(ctx).
		Where("LOWER(status) = ? AND need_id <> 0 AND user_id <> 0", "approved").
		Find(&hours).Error
	if err != nil {
		return nil, fmt.Errorf("loading approved hours: %w", err)
	}
	return hours, nil
}

// Upsert inserts or fully replaces a time log by its identifier.
func (s *HourStore) Upsert(ctx context.Context, hour *models.Hour) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(hour).Error
}
