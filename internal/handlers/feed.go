package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/models"
	"github.com/moodloop/moodloop-backend/internal/services"
)

// feedAggregator is initialized once the Mongo connection is up.
var feedAggregator *services.FeedAggregator

// InitFeed wires the feed aggregator to the connected database.
func InitFeed() {
	feedAggregator = services.NewFeedAggregator(database.DB)
}

type FeedResponse struct {
	Success       bool               `json:"success"`
	Message       string             `json:"message,omitempty"`
	Events        []models.MoodEvent `json:"events"`
	FollowedCount int                `json:"followed_count"`
	FailedUsers   int                `json:"failed_users,omitempty"`
}

// feedFilterFromQuery reads filter parameters shared by the feed and the
// own-history endpoint.
func feedFilterFromQuery(r *http.Request) services.FeedFilter {
	q := r.URL.Query()
	return services.FeedFilter{
		Mood:       q.Get("mood"),
		ReasonWord: q.Get("reason_word"),
		RecentWeek: q.Get("recent_week") == "true",
		SeeAll:     q.Get("see_all") == "true",
	}
}

// GetFeed returns recent public mood events from every followed user,
// merged newest first and optionally filtered.
func GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	result, err := feedAggregator.LoadFeed(ctx, userID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load feed")
		return
	}

	events := services.FilterFeed(result.Events, feedFilterFromQuery(r), time.Now().UnixMilli())
	writeJSON(w, http.StatusOK, FeedResponse{
		Success:       true,
		Events:        events,
		FollowedCount: result.FollowedCount,
		FailedUsers:   result.FailedUsers,
	})
}

// GetUserFeed returns all public mood events of a single followed user.
// Unlike the merged feed there is no per-user cap.
func GetUserFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	targetID := chi.URLParam(r, "userID")
	if targetID == "" {
		writeError(w, http.StatusBadRequest, "User id is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	// Only followers see the profile feed.
	if targetID != userID.String() {
		status, err := services.GetFollowStatus(ctx, userID.String(), targetID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to check follow status")
			return
		}
		if status != models.FollowStatusFollowing {
			writeError(w, http.StatusForbidden, "You do not follow this user")
			return
		}
	}

	events, err := feedAggregator.LoadUserPublicMoods(ctx, targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load moods")
		return
	}

	events = services.FilterFeed(events, feedFilterFromQuery(r), time.Now().UnixMilli())
	writeJSON(w, http.StatusOK, FeedResponse{Success: true, Events: events, FollowedCount: 1})
}
