package db

// Repositories provides access to all database repositories
type Repositories struct {
	Sections      *SectionRepository
	PlaylistItems *PlaylistItemRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Sections:      NewSectionRepository(db),
		PlaylistItems: NewPlaylistItemRepository(db),
	}
}
