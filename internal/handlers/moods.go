package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/models"
	"github.com/moodloop/moodloop-backend/internal/services"
)

type CreateMoodRequest struct {
	Mood           string   `json:"mood"`
	Reason         string   `json:"reason,omitempty"`
	Trigger        string   `json:"trigger,omitempty"`
	Situation      string   `json:"situation,omitempty"`
	RadioSituation string   `json:"radio_situation,omitempty"`
	Time           int64    `json:"time,omitempty"`
	ImageURI       string   `json:"image_uri,omitempty"`
	HasLocation    bool     `json:"has_location,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	PublicStatus   *bool    `json:"public_status,omitempty"`
}

type MoodResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Event   *models.MoodEvent `json:"event,omitempty"`
}

type MoodListResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Events  []models.MoodEvent `json:"events"`
	Total   int64              `json:"total"`
}

// CreateMood records a new mood event for the authenticated user.
func CreateMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req CreateMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !models.IsValidMood(req.Mood) {
		writeError(w, http.StatusBadRequest, "Unknown mood")
		return
	}
	if req.Time == 0 {
		req.Time = time.Now().UnixMilli()
	}

	now := time.Now()
	event := models.MoodEvent{
		ID:             primitive.NewObjectID(),
		UserID:         userID.String(),
		Mood:           req.Mood,
		Reason:         req.Reason,
		Trigger:        req.Trigger,
		Situation:      req.Situation,
		RadioSituation: req.RadioSituation,
		Time:           req.Time,
		ImageURI:       req.ImageURI,
		PublicStatus:   req.PublicStatus,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.HasLocation && req.Latitude != nil && req.Longitude != nil {
		event.HasLocation = true
		event.Latitude = *req.Latitude
		event.Longitude = *req.Longitude
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	if _, err := database.DB.Collection("moods").InsertOne(ctx, event); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save mood")
		return
	}

	services.InvalidateRecentPublicCache(ctx, event.UserID)
	writeJSON(w, http.StatusCreated, MoodResponse{Success: true, Message: "Mood recorded", Event: &event})
}

// GetMyMoods returns the authenticated user's own mood history, newest
// first, with the same filters the feed supports.
func GetMyMoods(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	limit := int64(50)
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	skip := int64(0)
	if s := r.URL.Query().Get("skip"); s != "" {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil && parsed >= 0 {
			skip = parsed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID.String()}
	feedFilter := feedFilterFromQuery(r)

	// With an active filter the narrowing happens in memory, so the full
	// history is pulled and paginated afterwards. Total then counts the
	// filtered set, not the raw one.
	findOptions := options.Find().SetSort(bson.M{"time": -1})
	var total int64
	if !feedFilter.Active() {
		var err error
		total, err = database.DB.Collection("moods").CountDocuments(ctx, filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count moods")
			return
		}
		findOptions = findOptions.SetLimit(limit).SetSkip(skip)
	}

	cursor, err := database.DB.Collection("moods").Find(ctx, filter, findOptions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load moods")
		return
	}
	defer cursor.Close(ctx)

	events := []models.MoodEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to decode moods")
		return
	}

	if feedFilter.Active() {
		events = services.FilterFeed(events, feedFilter, time.Now().UnixMilli())
		total = int64(len(events))
		events = paginateEvents(events, limit, skip)
	}
	writeJSON(w, http.StatusOK, MoodListResponse{Success: true, Events: events, Total: total})
}

// paginateEvents slices a filtered result set the way limit/skip would in
// the query.
func paginateEvents(events []models.MoodEvent, limit, skip int64) []models.MoodEvent {
	if skip >= int64(len(events)) {
		return []models.MoodEvent{}
	}
	events = events[skip:]
	if limit > 0 && int64(len(events)) > limit {
		events = events[:limit]
	}
	return events
}

type UpdateMoodRequest struct {
	Mood           *string  `json:"mood,omitempty"`
	Reason         *string  `json:"reason,omitempty"`
	Trigger        *string  `json:"trigger,omitempty"`
	Situation      *string  `json:"situation,omitempty"`
	RadioSituation *string  `json:"radio_situation,omitempty"`
	ImageURI       *string  `json:"image_uri,omitempty"`
	HasLocation    *bool    `json:"has_location,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	PublicStatus   *bool    `json:"public_status,omitempty"`
}

// buildMoodUpdate turns the request into a $set document. Only the event's
// id and time are immutable; everything else can be edited.
func buildMoodUpdate(req UpdateMoodRequest) (bson.M, error) {
	set := bson.M{"updated_at": time.Now()}
	if req.Mood != nil {
		if !models.IsValidMood(*req.Mood) {
			return nil, fmt.Errorf("unknown mood %q", *req.Mood)
		}
		set["mood"] = *req.Mood
	}
	if req.Reason != nil {
		set["reason"] = *req.Reason
	}
	if req.Trigger != nil {
		set["trigger"] = *req.Trigger
	}
	if req.Situation != nil {
		set["situation"] = *req.Situation
	}
	if req.RadioSituation != nil {
		set["radio_situation"] = *req.RadioSituation
	}
	if req.ImageURI != nil {
		set["image_uri"] = *req.ImageURI
	}
	if req.HasLocation != nil {
		if *req.HasLocation {
			if req.Latitude == nil || req.Longitude == nil {
				return nil, fmt.Errorf("has_location requires latitude and longitude")
			}
			set["has_location"] = true
			set["latitude"] = *req.Latitude
			set["longitude"] = *req.Longitude
		} else {
			set["has_location"] = false
		}
	}
	if req.PublicStatus != nil {
		set["public_status"] = *req.PublicStatus
	}
	return set, nil
}

// UpdateMood edits an existing event. The recorded time never changes.
func UpdateMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	eventID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	var req UpdateMoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	set, err := buildMoodUpdate(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := database.DB.Collection("moods").UpdateOne(ctx,
		bson.M{"_id": eventID, "user_id": userID.String()},
		bson.M{"$set": set},
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update mood")
		return
	}
	if result.MatchedCount == 0 {
		writeError(w, http.StatusNotFound, "Mood event not found")
		return
	}

	services.InvalidateRecentPublicCache(ctx, userID.String())
	writeJSON(w, http.StatusOK, MoodResponse{Success: true, Message: "Mood updated"})
}

// DeleteMood removes an event and its comment thread.
func DeleteMood(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	eventID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := database.DB.Collection("moods").DeleteOne(ctx,
		bson.M{"_id": eventID, "user_id": userID.String()},
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete mood")
		return
	}
	if result.DeletedCount == 0 {
		writeError(w, http.StatusNotFound, "Mood event not found")
		return
	}

	// Comments on the event go with it.
	if _, err := database.DB.Collection("comments").DeleteMany(ctx,
		bson.M{"mood_event_id": eventID.Hex()},
	); err != nil {
		writeError(w, http.StatusInternalServerError, "Mood deleted but comments could not be removed")
		return
	}

	services.InvalidateRecentPublicCache(ctx, userID.String())
	writeJSON(w, http.StatusOK, MoodResponse{Success: true, Message: "Mood deleted"})
}

type MoodCount struct {
	Mood  string `bson:"_id" json:"mood"`
	Count int64  `bson:"count" json:"count"`
}

type MoodInsightsResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Days    int         `json:"days"`
	Counts  []MoodCount `json:"counts"`
}

// GetMoodInsights returns per-mood counts over the last N days (default 30).
func GetMoodInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	days := 30
	if s := r.URL.Query().Get("days"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}
	since := time.Now().AddDate(0, 0, -days).UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID.String(), "time": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{"_id": "$mood", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
	}

	cursor, err := database.DB.Collection("moods").Aggregate(ctx, pipeline)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to aggregate moods")
		return
	}
	defer cursor.Close(ctx)

	counts := []MoodCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to decode insights")
		return
	}

	writeJSON(w, http.StatusOK, MoodInsightsResponse{Success: true, Days: days, Counts: counts})
}
