package playback

// Project returns a copy of the sequence with UI flags set for the given position:
// only the active item is visible, and only its successor (wrapping to the first
// item) is preloaded. The input slice is never modified.
func Project(sequence []MaterializedItem, pos Position) []MaterializedItem {
	projected := make([]MaterializedItem, len(sequence))
	copy(projected, sequence)

	n := len(projected)
	if n == 0 {
		return projected
	}

	next := (pos.ActiveIndex + 1) % n
	for i := range projected {
		projected[i].Hidden = i != pos.ActiveIndex
		projected[i].Preload = i == next
	}

	return projected
}
