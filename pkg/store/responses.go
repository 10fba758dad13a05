package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicworks/shiftsync/pkg/models"
)

// ResponseStore reads and upserts signup intents.
type ResponseStore struct {
	db *gorm.DB
}

// NewResponseStore creates a ResponseStore.
func NewResponseStore(db *gorm.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

// ByNeedShift returns all signups referencing the given need and shift.
func (s *ResponseStore) ByNeedShift(ctx context.Context, needID, shiftID int) ([]models.Response, error) {
	var responses []models.Response
	err := s.db.WithContext(ctx).
		Where("need_id = ? AND shift_id = ?", needID, shiftID).
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("loading responses for need %d shift %d: %w", needID, shiftID, err)
	}
	return responses, nil
}

// Upsert inserts or fully replaces a response by its identifier.
func (s *ResponseStore) Upsert(ctx context.Context, response *models.Response) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(response).Error
}
