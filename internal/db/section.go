// Package db provides database connection management and repositories.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/vitrine/internal/models"
)

// SectionRepository handles database operations for sections
type SectionRepository struct {
	db *DB
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(db *DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// Create inserts a new section into the database
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	result := r.db.WithContext(ctx).Create(section)
	if result.Error != nil {
		return fmt.Errorf("failed to create section: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a section by its UUID
func (r *SectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	var section models.Section
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&section)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &section, nil
}

// List retrieves all sections ordered by name
func (r *SectionRepository) List(ctx context.Context) ([]*models.Section, error) {
	var sections []*models.Section
	result := r.db.WithContext(ctx).Order("name ASC").Find(&sections)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sections: %w", MapGormError(result.Error))
	}
	return sections, nil
}

// Update saves name and start time of an existing section
func (r *SectionRepository) Update(ctx context.Context, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Where("id = ?", section.ID.String()).
		Select("name", "start_time", "updated_at").
		Updates(section)
	if result.Error != nil {
		return fmt.Errorf("failed to update section: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a section by its UUID (cascades to playlist items)
func (r *SectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.Section{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete section: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
