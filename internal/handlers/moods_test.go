package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodloop/moodloop-backend/internal/models"
)

func sPtr(s string) *string     { return &s }
func boolPtr(b bool) *bool      { return &b }
func f64Ptr(v float64) *float64 { return &v }

func TestBuildMoodUpdateEditsMoodAndSituation(t *testing.T) {
	set, err := buildMoodUpdate(UpdateMoodRequest{
		Mood:           sPtr("Sadness"),
		RadioSituation: sPtr("Alone"),
		Reason:         sPtr("long day"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Sadness", set["mood"])
	assert.Equal(t, "Alone", set["radio_situation"])
	assert.Equal(t, "long day", set["reason"])
}

func TestBuildMoodUpdateRejectsUnknownMood(t *testing.T) {
	_, err := buildMoodUpdate(UpdateMoodRequest{Mood: sPtr("Ecstatic")})
	require.Error(t, err)
}

func TestBuildMoodUpdateNeverTouchesTime(t *testing.T) {
	set, err := buildMoodUpdate(UpdateMoodRequest{
		Mood:   sPtr("Fear"),
		Reason: sPtr("edited"),
	})
	require.NoError(t, err)

	_, hasTime := set["time"]
	assert.False(t, hasTime)
	_, hasID := set["_id"]
	assert.False(t, hasID)
	assert.IsType(t, time.Time{}, set["updated_at"])
}

func TestBuildMoodUpdateLocationRequiresCoordinates(t *testing.T) {
	_, err := buildMoodUpdate(UpdateMoodRequest{HasLocation: boolPtr(true)})
	require.Error(t, err)

	set, err := buildMoodUpdate(UpdateMoodRequest{
		HasLocation: boolPtr(true),
		Latitude:    f64Ptr(59.3),
		Longitude:   f64Ptr(18.1),
	})
	require.NoError(t, err)
	assert.Equal(t, true, set["has_location"])
	assert.Equal(t, 59.3, set["latitude"])
	assert.Equal(t, 18.1, set["longitude"])
}

func TestBuildMoodUpdateClearsLocationWithoutCoordinates(t *testing.T) {
	set, err := buildMoodUpdate(UpdateMoodRequest{HasLocation: boolPtr(false)})
	require.NoError(t, err)

	assert.Equal(t, false, set["has_location"])
	_, hasLat := set["latitude"]
	assert.False(t, hasLat)
}

func TestPaginateEvents(t *testing.T) {
	events := []models.MoodEvent{{Mood: "Happiness"}, {Mood: "Sadness"}, {Mood: "Fear"}}

	assert.Len(t, paginateEvents(events, 2, 0), 2)

	page := paginateEvents(events, 2, 2)
	require.Len(t, page, 1)
	assert.Equal(t, "Fear", page[0].Mood)

	assert.Empty(t, paginateEvents(events, 2, 5))
	assert.Len(t, paginateEvents(events, 0, 0), 3)
}
