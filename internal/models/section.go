// Package models defines the persisted entities of vitrine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Section represents one display surface playing a looping playlist
type Section struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	Name      string    `json:"name" gorm:"type:text;not null;uniqueIndex;column:name" validate:"required,min=1,max=255"`
	StartTime time.Time `json:"start_time" gorm:"type:datetime;not null;column:start_time" validate:"required"`
	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewSection creates a new Section with generated UUID and timestamps.
// startTime anchors the section's elapsed clock.
func NewSection(name string, startTime time.Time) *Section {
	now := time.Now().UTC()
	return &Section{
		ID:        uuid.New(),
		Name:      name,
		StartTime: startTime.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ElapsedMs returns the milliseconds elapsed on the section clock at now.
// The result is negative before StartTime.
func (s *Section) ElapsedMs(now time.Time) int64 {
	return now.Sub(s.StartTime).Milliseconds()
}
