package playback

// copySuffix is appended to the ID of the duplicate created for single-item playlists
const copySuffix = "-copy"

// Materialize expands a playlist into playback-ready items using resolved durations.
//
// Output order equals input order. All items start hidden and not preloaded, and
// muted defaults to true when the source leaves it unset. A single-item playlist is
// followed by a copy of its only item so that a rendering layer always has two
// elements to alternate between at loop boundaries. An empty playlist yields an empty
// (non-nil) slice.
func Materialize(items []PlaylistItem, durations Durations) []MaterializedItem {
	sequence := make([]MaterializedItem, 0, len(items)+1)

	for _, item := range items {
		durationMs, ok := durations[item.ID]
		if !ok {
			durationMs = DefaultFallbackMs
		}

		muted := true
		if item.Muted != nil {
			muted = *item.Muted
		}

		sequence = append(sequence, MaterializedItem{
			ID:         item.ID,
			Src:        item.ContentPath,
			Type:       item.ContentType,
			DurationMs: durationMs,
			Hidden:     true,
			Preload:    false,
			Muted:      muted,
		})
	}

	if len(sequence) == 1 {
		duplicate := sequence[0]
		duplicate.ID = sequence[0].ID + copySuffix
		sequence = append(sequence, duplicate)
	}

	return sequence
}
