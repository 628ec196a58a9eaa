// Package section manages display sections and their playlists.
package section

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/vitrine/internal/db"
	"github.com/stwalsh4118/vitrine/internal/logger"
	"github.com/stwalsh4118/vitrine/internal/models"
	"github.com/stwalsh4118/vitrine/internal/playback"
)

const maxNameLength = 255

// PlaylistListener is notified after a section's playlist changed or the section was
// deleted
type PlaylistListener interface {
	PlaylistChanged(sectionID uuid.UUID, items []playback.PlaylistItem)
	SectionDeleted(sectionID uuid.UUID)
}

// Service handles business logic for sections and their playlists
type Service struct {
	repos    *db.Repositories
	listener PlaylistListener

	// writeMu orders playlist commits and deletes with their listener notifications
	writeMu sync.Mutex
}

// NewService creates a new section service instance
func NewService(repos *db.Repositories) *Service {
	return &Service{repos: repos}
}

// SetListener registers the listener informed about playlist changes
func (s *Service) SetListener(listener PlaylistListener) {
	s.listener = listener
}

// Create creates a new section
func (s *Service) Create(ctx context.Context, name string, startTime time.Time) (*models.Section, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	section := models.NewSection(name, startTime)
	if err := s.repos.Sections.Create(ctx, section); err != nil {
		if db.IsDuplicate(err) {
			logger.Log.Warn().
				Str("name", name).
				Msg("Section creation failed: duplicate name")
			return nil, ErrDuplicateSectionName
		}
		logger.Log.Error().
			Err(err).
			Str("name", name).
			Msg("Failed to create section in database")
		return nil, fmt.Errorf("failed to create section: %w", err)
	}

	logger.Log.Info().
		Str("section_id", section.ID.String()).
		Str("name", section.Name).
		Msg("Section created successfully")

	return section, nil
}

// GetByID retrieves a section by its ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Section, error) {
	section, err := s.repos.Sections.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrSectionNotFound
		}
		logger.Log.Error().
			Err(err).
			Str("section_id", id.String()).
			Msg("Failed to get section by ID")
		return nil, fmt.Errorf("failed to get section: %w", err)
	}
	return section, nil
}

// List retrieves all sections
func (s *Service) List(ctx context.Context) ([]*models.Section, error) {
	sections, err := s.repos.Sections.List(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to list sections")
		return nil, fmt.Errorf("failed to list sections: %w", err)
	}
	return sections, nil
}

// Update changes the name and/or start time of a section. Nil arguments are left as is.
func (s *Service) Update(ctx context.Context, id uuid.UUID, name *string, startTime *time.Time) (*models.Section, error) {
	section, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if err := validateName(trimmed); err != nil {
			return nil, err
		}
		section.Name = trimmed
	}
	if startTime != nil {
		section.StartTime = startTime.UTC()
	}

	if err := s.repos.Sections.Update(ctx, section); err != nil {
		switch {
		case db.IsDuplicate(err):
			return nil, ErrDuplicateSectionName
		case db.IsNotFound(err):
			return nil, ErrSectionNotFound
		}
		return nil, fmt.Errorf("failed to update section: %w", err)
	}

	logger.Log.Info().
		Str("section_id", section.ID.String()).
		Str("name", section.Name).
		Time("start_time", section.StartTime).
		Msg("Section updated successfully")

	return section, nil
}

// Delete removes a section and its playlist
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repos.Sections.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return ErrSectionNotFound
		}
		return fmt.Errorf("failed to delete section: %w", err)
	}

	if s.listener != nil {
		s.listener.SectionDeleted(id)
	}

	logger.Log.Info().
		Str("section_id", id.String()).
		Msg("Section deleted successfully")

	return nil
}

// GetPlaylist returns the stored playlist of a section in order
func (s *Service) GetPlaylist(ctx context.Context, sectionID uuid.UUID) ([]playback.PlaylistItem, error) {
	if _, err := s.GetByID(ctx, sectionID); err != nil {
		return nil, err
	}

	rows, err := s.repos.PlaylistItems.GetBySectionID(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	items := make([]playback.PlaylistItem, 0, len(rows))
	for _, row := range rows {
		item, err := row.ToPlaybackItem()
		if err != nil {
			logger.Log.Error().
				Err(err).
				Str("section_id", sectionID.String()).
				Str("item_id", row.ItemID).
				Msg("Stored playlist item is invalid")
			return nil, fmt.Errorf("%w: stored item %q: %v", ErrInvalidItem, row.ItemID, err)
		}
		items = append(items, item)
	}

	return items, nil
}

// ReplacePlaylist validates and stores a new playlist for a section, then notifies the
// listener so that playback starts a new generation
func (s *Service) ReplacePlaylist(ctx context.Context, sectionID uuid.UUID, items []playback.PlaylistItem) error {
	if _, err := s.GetByID(ctx, sectionID); err != nil {
		return err
	}

	if err := ValidatePlaylist(items); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("section_id", sectionID.String()).
			Msg("Playlist replacement rejected")
		return err
	}

	rows := make([]*models.PlaylistItem, len(items))
	for i, item := range items {
		rows[i] = models.NewPlaylistItem(sectionID, i, item)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repos.PlaylistItems.Replace(ctx, sectionID, rows); err != nil {
		if db.IsForeignKey(err) {
			return ErrSectionNotFound
		}
		return fmt.Errorf("failed to replace playlist: %w", err)
	}

	if s.listener != nil {
		s.listener.PlaylistChanged(sectionID, items)
	}

	logger.Log.Info().
		Str("section_id", sectionID.String()).
		Int("items", len(items)).
		Msg("Playlist replaced")

	return nil
}

// ValidatePlaylist checks item IDs, content paths, content types and durations
func ValidatePlaylist(items []playback.PlaylistItem) error {
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			return fmt.Errorf("%w: item %d has no id", ErrInvalidItem, i)
		}
		if seen[item.ID] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidItem, item.ID)
		}
		seen[item.ID] = true

		if strings.TrimSpace(item.ContentPath) == "" {
			return fmt.Errorf("%w: item %q has no content path", ErrInvalidItem, item.ID)
		}
		if !item.ContentType.Known() {
			return fmt.Errorf("%w: item %q has unknown content type %q", ErrInvalidItem, item.ID, item.ContentType)
		}
		if !item.Duration.IsSet() {
			return fmt.Errorf("%w: item %q has no duration", ErrInvalidItem, item.ID)
		}
		if err := item.Duration.Validate(); err != nil {
			return fmt.Errorf("%w: item %q: %v", ErrInvalidItem, item.ID, err)
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return ErrInvalidName
	}
	return nil
}
