package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Moods a user can record. Kept as strings in the store so old documents
// stay readable if the set ever changes.
const (
	MoodAnger     = "Anger"
	MoodConfusion = "Confusion"
	MoodDisgust   = "Disgust"
	MoodFear      = "Fear"
	MoodHappiness = "Happiness"
	MoodSadness   = "Sadness"
	MoodShame     = "Shame"
	MoodSurprise  = "Surprise"
)

// Social situations for a mood event.
const (
	SituationAlone   = "Alone"
	SituationSeveral = "Two or Several"
	SituationCrowd   = "A Crowd"
	SituationNone    = "None"
)

// ValidMoods lists every accepted mood value.
var ValidMoods = []string{
	MoodAnger, MoodConfusion, MoodDisgust, MoodFear,
	MoodHappiness, MoodSadness, MoodShame, MoodSurprise,
}

// IsValidMood reports whether mood is one of the accepted values.
func IsValidMood(mood string) bool {
	for _, m := range ValidMoods {
		if m == mood {
			return true
		}
	}
	return false
}

// MoodEvent represents one journaled emotional event.
//
// PublicStatus is a pointer on purpose: documents written by older clients
// never set the field, and an absent field means the event is public.
// Time is epoch milliseconds, set once at creation and never changed on update.
type MoodEvent struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	UserName       string             `bson:"user_name,omitempty" json:"user_name,omitempty"`
	Mood           string             `bson:"mood" json:"mood"`
	Reason         string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Trigger        string             `bson:"trigger,omitempty" json:"trigger,omitempty"`
	Situation      string             `bson:"situation,omitempty" json:"situation,omitempty"`
	RadioSituation string             `bson:"radio_situation,omitempty" json:"radio_situation,omitempty"`
	Time           int64              `bson:"time" json:"time"`
	ImageURI       string             `bson:"image_uri,omitempty" json:"image_uri,omitempty"`
	HasLocation    bool               `bson:"has_location" json:"has_location"`
	Latitude       float64            `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude      float64            `bson:"longitude,omitempty" json:"longitude,omitempty"`
	PublicStatus   *bool              `bson:"public_status,omitempty" json:"public_status,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsPublic treats an absent public_status field as public.
func (m *MoodEvent) IsPublic() bool {
	return m.PublicStatus == nil || *m.PublicStatus
}
