package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestMaterialize_SingleItemIsDuplicated(t *testing.T) {
	items := []PlaylistItem{
		{ID: "a", ContentPath: "/media/a.png", ContentType: ContentTypeImage, Duration: Seconds(5), Muted: boolPtr(false)},
	}

	sequence := Materialize(items, Durations{"a": 5000})

	require.Len(t, sequence, 2)
	assert.Equal(t, "a", sequence[0].ID)
	assert.Equal(t, "a-copy", sequence[1].ID)

	original, duplicate := sequence[0], sequence[1]
	duplicate.ID = original.ID
	assert.Equal(t, original, duplicate, "duplicate must differ only by id")
	assert.Equal(t, int64(5000), sequence[1].DurationMs)
	assert.False(t, sequence[1].Muted)
}

func TestMaterialize_PreservesOrderWithoutDuplication(t *testing.T) {
	items := []PlaylistItem{
		{ID: "x", ContentPath: "x.png", ContentType: ContentTypeImage, Duration: Seconds(5)},
		{ID: "y", ContentPath: "y.mp4", ContentType: ContentTypeVideo, Duration: Auto()},
		{ID: "z", ContentPath: "z.png", ContentType: ContentTypeImage, Duration: Seconds(1)},
	}

	sequence := Materialize(items, Durations{"x": 5000, "y": 10000, "z": 1000})

	require.Len(t, sequence, 3)
	for i, item := range items {
		assert.Equal(t, item.ID, sequence[i].ID)
		assert.Equal(t, item.ContentPath, sequence[i].Src)
		assert.Equal(t, item.ContentType, sequence[i].Type)
	}
	assert.Equal(t, int64(16000), TotalDuration(sequence))
}

func TestMaterialize_DefaultFlags(t *testing.T) {
	items := []PlaylistItem{
		{ID: "a", ContentPath: "a.mp4", ContentType: ContentTypeVideo, Duration: Seconds(1)},
		{ID: "b", ContentPath: "b.mp4", ContentType: ContentTypeVideo, Duration: Seconds(1), Muted: boolPtr(false)},
	}

	sequence := Materialize(items, Durations{"a": 1000, "b": 1000})

	for _, item := range sequence {
		assert.True(t, item.Hidden)
		assert.False(t, item.Preload)
	}
	assert.True(t, sequence[0].Muted, "muted defaults to true")
	assert.False(t, sequence[1].Muted)
}

func TestMaterialize_MissingDurationFallsBack(t *testing.T) {
	items := []PlaylistItem{
		{ID: "a", ContentPath: "a.mp4", ContentType: ContentTypeVideo, Duration: Auto()},
		{ID: "b", ContentPath: "b.png", ContentType: ContentTypeImage, Duration: Seconds(2)},
	}

	sequence := Materialize(items, Durations{"b": 2000})

	assert.Equal(t, DefaultFallbackMs, sequence[0].DurationMs)
}

func TestMaterialize_Empty(t *testing.T) {
	sequence := Materialize(nil, Durations{})

	assert.NotNil(t, sequence)
	assert.Empty(t, sequence)
	assert.Equal(t, int64(0), TotalDuration(sequence))
}
