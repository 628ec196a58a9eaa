package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/vitrine/internal/models"
	"gorm.io/gorm"
)

// PlaylistItemRepository handles database operations for playlist items
type PlaylistItemRepository struct {
	db *DB
}

// NewPlaylistItemRepository creates a new playlist item repository
func NewPlaylistItemRepository(db *DB) *PlaylistItemRepository {
	return &PlaylistItemRepository{db: db}
}

// GetBySectionID retrieves all playlist items for a section, ordered by position
func (r *PlaylistItemRepository) GetBySectionID(ctx context.Context, sectionID uuid.UUID) ([]*models.PlaylistItem, error) {
	var items []*models.PlaylistItem
	result := r.db.WithContext(ctx).
		Where("section_id = ?", sectionID.String()).
		Order("position ASC").
		Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get playlist items by section: %w", MapGormError(result.Error))
	}
	return items, nil
}

// Replace swaps the whole playlist of a section in one transaction
func (r *PlaylistItemRepository) Replace(ctx context.Context, sectionID uuid.UUID, items []*models.PlaylistItem) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("section_id = ?", sectionID.String()).Delete(&models.PlaylistItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear playlist: %w", MapGormError(err))
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.Create(items).Error; err != nil {
			return fmt.Errorf("failed to insert playlist items: %w", MapGormError(err))
		}
		return nil
	})
}

// DeleteBySectionID deletes all playlist items for a section
func (r *PlaylistItemRepository) DeleteBySectionID(ctx context.Context, sectionID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("section_id = ?", sectionID.String()).Delete(&models.PlaylistItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete playlist items by section: %w", MapGormError(result.Error))
	}
	return nil
}
