// Package playback schedules looping media playlists for display surfaces.
//
// Everything here is driven by an external elapsed clock: given the same playlist and
// the same elapsed value, every viewer computes the same active item and offset, so a
// reloaded or late-joining viewer resumes exactly where the others are.
package playback

// CalculatePosition maps an elapsed time onto a position inside the sequence.
// This is a pure function with no I/O.
//
// Parameters:
//   - sequence: Materialized items in playback order
//   - elapsedMs: Milliseconds since the loop's nominal start
//   - totalMs: Sum of the sequence durations
//
// Returns:
//   - Position: Active index, offset within it, and cycle information
//   - error: ErrEmptySequence, ErrNotStarted, or nil
//
// Each item covers the half-open range [start, start+duration), so an elapsed value
// landing exactly on an item's end belongs to the next item at offset 0.
func CalculatePosition(sequence []MaterializedItem, elapsedMs, totalMs int64) (Position, error) {
	if len(sequence) == 0 || totalMs <= 0 {
		return Position{}, ErrEmptySequence
	}

	if elapsedMs < 0 {
		return Position{}, ErrNotStarted
	}

	cycleElapsed := elapsedMs % totalMs
	pos := Position{
		CycleElapsedMs: cycleElapsed,
		Cycle:          elapsedMs / totalMs,
	}

	// Single-pass O(n) linear search
	var accumulated int64
	for i, item := range sequence {
		if cycleElapsed < accumulated+item.DurationMs {
			pos.ActiveIndex = i
			pos.OffsetMs = cycleElapsed - accumulated
			return pos, nil
		}
		accumulated += item.DurationMs
	}

	// Only reachable when totalMs exceeds the real sum of durations; the remainder is
	// treated as the start of the next cycle rather than an index past the end.
	pos.ActiveIndex = 0
	pos.OffsetMs = 0
	return pos, nil
}
