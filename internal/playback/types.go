package playback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ContentType identifies the kind of media a playlist item points at
type ContentType string

const (
	// ContentTypeVideo is a video source whose length can be probed
	ContentTypeVideo ContentType = "video"

	// ContentTypeImage is a still image shown for its declared duration
	ContentTypeImage ContentType = "image"
)

// Known reports whether t is one of the content types the renderer understands
func (t ContentType) Known() bool {
	return t == ContentTypeVideo || t == ContentTypeImage
}

// AutoDuration is the sentinel used in place of a number when an item's duration
// must be discovered from the media itself.
const AutoDuration = "auto"

// MaxItemDurationMs bounds the duration of a single item, declared or probed (7 days).
const MaxItemDurationMs int64 = 7 * 24 * 60 * 60 * 1000

// DeclaredDuration is either a finite number of seconds or the "auto" sentinel. The zero
// value is unset and fails validation; build values with Seconds or Auto.
type DeclaredDuration struct {
	Seconds float64
	Auto    bool

	set bool
}

// Seconds returns a declared duration of n seconds
func Seconds(n float64) DeclaredDuration {
	return DeclaredDuration{Seconds: n, set: true}
}

// Auto returns a declared duration that must be probed
func Auto() DeclaredDuration {
	return DeclaredDuration{Auto: true, set: true}
}

// IsSet reports whether the duration was declared at all
func (d DeclaredDuration) IsSet() bool {
	return d.set
}

// ParseDeclaredDuration parses the textual form stored in the database: "auto" or a
// decimal number of seconds.
func ParseDeclaredDuration(s string) (DeclaredDuration, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, AutoDuration) {
		return Auto(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return DeclaredDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	d := Seconds(f)
	if err := d.Validate(); err != nil {
		return DeclaredDuration{}, err
	}
	return d, nil
}

// Validate reports whether the duration is declared and, when numeric, finite,
// non-negative and no longer than MaxItemDurationMs
func (d DeclaredDuration) Validate() error {
	if !d.set {
		return fmt.Errorf("%w: missing", ErrInvalidDuration)
	}
	if d.Auto {
		return nil
	}
	if math.IsNaN(d.Seconds) || math.IsInf(d.Seconds, 0) || d.Seconds < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, d.Seconds)
	}
	if math.Round(d.Seconds*1000) > float64(MaxItemDurationMs) {
		return fmt.Errorf("%w: %v exceeds %d ms", ErrInvalidDuration, d.Seconds, MaxItemDurationMs)
	}
	return nil
}

// Milliseconds converts a numeric duration to whole milliseconds, rounding to the
// nearest millisecond and clamping to [0, MaxItemDurationMs]. Auto durations return 0.
func (d DeclaredDuration) Milliseconds() int64 {
	if d.Auto {
		return 0
	}
	ms := math.Round(d.Seconds * 1000)
	switch {
	case ms < 0 || math.IsNaN(ms):
		return 0
	case ms > float64(MaxItemDurationMs):
		return MaxItemDurationMs
	}
	return int64(ms)
}

// String returns the textual form used for storage
func (d DeclaredDuration) String() string {
	if d.Auto {
		return AutoDuration
	}
	return strconv.FormatFloat(d.Seconds, 'f', -1, 64)
}

// MarshalJSON encodes auto durations as "auto" and numeric ones as a JSON number
func (d DeclaredDuration) MarshalJSON() ([]byte, error) {
	if d.Auto {
		return json.Marshal(AutoDuration)
	}
	return json.Marshal(d.Seconds)
}

// UnmarshalJSON accepts a JSON number, a numeric string or "auto". null is rejected.
func (d *DeclaredDuration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidDuration)
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseDeclaredDuration(s)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, string(data))
	}
	*d = Seconds(f)
	return d.Validate()
}

// PlaylistItem is one raw entry of a section playlist as supplied by configuration.
type PlaylistItem struct {
	ID          string           `json:"id"`
	ContentPath string           `json:"content_path"`
	ContentType ContentType      `json:"content_type"`
	Duration    DeclaredDuration `json:"duration"`
	Muted       *bool            `json:"muted,omitempty"`
}

// NeedsProbe reports whether the item's duration has to be discovered from the media
func (i PlaylistItem) NeedsProbe() bool {
	return i.Duration.Auto && i.ContentType == ContentTypeVideo
}

// Durations maps item IDs to effective durations in milliseconds
type Durations map[string]int64

// MaterializedItem is a playback-ready entry with resolved duration and UI flags.
type MaterializedItem struct {
	ID         string      `json:"id"`
	Src        string      `json:"src"`
	Type       ContentType `json:"type"`
	DurationMs int64       `json:"duration_ms"`
	Hidden     bool        `json:"hidden"`
	Preload    bool        `json:"preload"`
	Muted      bool        `json:"muted"`
}

// Position describes where playback is inside a materialized sequence.
type Position struct {
	// ActiveIndex is the index of the visible item
	ActiveIndex int `json:"active_index"`

	// OffsetMs is the playback offset inside the active item
	OffsetMs int64 `json:"offset_ms"`

	// CycleElapsedMs is the elapsed time folded into the current cycle
	CycleElapsedMs int64 `json:"cycle_elapsed_ms"`

	// Cycle counts completed traversals of the whole sequence
	Cycle int64 `json:"cycle"`
}

// State is the projected output handed to a rendering layer.
type State struct {
	Generation      uint64             `json:"generation"`
	Items           []MaterializedItem `json:"items"`
	TotalDurationMs int64              `json:"total_duration_ms"`
	Position        Position           `json:"position"`
}

// TotalDuration sums the durations of a materialized sequence, saturating at
// math.MaxInt64
func TotalDuration(sequence []MaterializedItem) int64 {
	var total int64
	for _, item := range sequence {
		if item.DurationMs <= 0 {
			continue
		}
		if total > math.MaxInt64-item.DurationMs {
			return math.MaxInt64
		}
		total += item.DurationMs
	}
	return total
}
