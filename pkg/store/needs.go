package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicworks/shiftsync/pkg/models"
)

// NeedStore reads and upserts scheduling definitions.
type NeedStore struct {
	db *gorm.DB
}

// NewNeedStore creates a NeedStore.
func NewNeedStore(db *gorm.DB) *NeedStore {
	return &NeedStore{db: db}
}

// All returns every need.
func (s *NeedStore) All(ctx context.Context) ([]models.Need, error) {
	var needs []models.Need
	if err := s.db.WithContext(ctx).Find(&needs).Error; err != nil {
		return nil, fmt.Errorf("loading needs: %w", err)
	}
	return needs, nil
}

// ByID returns one need by its identifier.
func (s *NeedStore) ByID(ctx context.Context, id int) (*models.Need, error) {
	var need models.Need
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&need).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading need %d: %w", id, err)
	}
	return &need, nil
}

// Upsert inserts or fully replaces a need by its identifier.
func (s *NeedStore) Upsert(ctx context.Context, need *models.Need) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(need).Error
}
