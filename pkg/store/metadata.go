package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicworks/shiftsync/pkg/models"
)

// MetadataStore tracks the last sync time per upstream resource.
type MetadataStore struct {
	db *gorm.DB
}

// NewMetadataStore creates a MetadataStore.
func NewMetadataStore(db *gorm.DB) *MetadataStore {
	return &MetadataStore{db: db}
}

// LastSync returns the last recorded sync time for a resource, or nil when
// the resource has never synced.
func (s *MetadataStore) LastSync(ctx context.Context, resource string) (*time.Time, error) {
	var meta models.SyncMetadata
	err := s.db.WithContext(ctx).Where("resource = ?", resource).First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading sync metadata for %s: %w", resource, err)
	}
	return &meta.LastSync, nil
}

// Touch records a successful sync for a resource.
func (s *MetadataStore) Touch(ctx context.Context, resource string, at time.Time) error {
	meta := models.SyncMetadata{Resource: resource, LastSync: at, LastSuccess: at}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resource"}},
		UpdateAll: true,
	}).Create(&meta).Error
}

// All returns sync metadata for every resource.
func (s *MetadataStore) All(ctx context.Context) ([]models.SyncMetadata, error) {
	var metas []models.SyncMetadata
	if err := s.db.WithContext(ctx).Find(&metas).Error; err != nil {
		return nil, fmt.Errorf("loading sync metadata: %w", err)
	}
	return metas, nil
}
