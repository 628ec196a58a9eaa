package playback

import "errors"

var (
	// ErrEmptySequence is returned when there is nothing to play (empty playlist or a
	// sequence whose total duration is zero)
	ErrEmptySequence = errors.New("playback sequence is empty")

	// ErrNotStarted is returned when the elapsed clock is still before the loop start
	ErrNotStarted = errors.New("playback has not started yet")

	// ErrNotSettled is returned while auto durations of the current generation are
	// still being probed
	ErrNotSettled = errors.New("playback durations are not settled yet")

	// ErrInvalidDuration is returned for declared durations that are negative, not
	// finite, or not parseable
	ErrInvalidDuration = errors.New("invalid declared duration")

	// ErrProbeFailed wraps any failure of the duration probe capability
	ErrProbeFailed = errors.New("duration probe failed")
)
