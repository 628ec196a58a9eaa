package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/vitrine/internal/playback"
)

// PlaylistItem represents one stored section playlist entry.
// Duration holds either "auto" or a decimal number of seconds.
type PlaylistItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	SectionID   uuid.UUID `json:"section_id" gorm:"type:text;not null;column:section_id" validate:"required"`
	Position    int       `json:"position" gorm:"type:integer;not null;column:position" validate:"gte=0"`
	ItemID      string    `json:"item_id" gorm:"type:text;not null;column:item_id" validate:"required"`
	ContentPath string    `json:"content_path" gorm:"type:text;not null;column:content_path" validate:"required"`
	ContentType string    `json:"content_type" gorm:"type:text;not null;column:content_type" validate:"required"`
	Duration    string    `json:"duration" gorm:"type:text;not null;column:duration" validate:"required"`
	Muted       *bool     `json:"muted,omitempty" gorm:"type:integer;column:muted"`
	CreatedAt   time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// NewPlaylistItem converts a playback item into a row at the given position
func NewPlaylistItem(sectionID uuid.UUID, position int, item playback.PlaylistItem) *PlaylistItem {
	return &PlaylistItem{
		ID:          uuid.New(),
		SectionID:   sectionID,
		Position:    position,
		ItemID:      item.ID,
		ContentPath: item.ContentPath,
		ContentType: string(item.ContentType),
		Duration:    item.Duration.String(),
		Muted:       item.Muted,
		CreatedAt:   time.Now().UTC(),
	}
}

// ToPlaybackItem converts the row back into the scheduler's representation
func (p *PlaylistItem) ToPlaybackItem() (playback.PlaylistItem, error) {
	duration, err := playback.ParseDeclaredDuration(p.Duration)
	if err != nil {
		return playback.PlaylistItem{}, err
	}
	return playback.PlaylistItem{
		ID:          p.ItemID,
		ContentPath: p.ContentPath,
		ContentType: playback.ContentType(p.ContentType),
		Duration:    duration,
		Muted:       p.Muted,
	}, nil
}
