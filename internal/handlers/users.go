package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moodloop/moodloop-backend/internal/models"
	"github.com/moodloop/moodloop-backend/internal/services"
)

type UserSearchResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Users   []models.User `json:"users"`
}

type UserProfileResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message,omitempty"`
	User         *models.User `json:"user,omitempty"`
	FollowStatus string       `json:"follow_status,omitempty"`
}

// SearchUsers finds users by username prefix.
func SearchUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(r); !ok {
		writeUnauthorized(w)
		return
	}

	users, err := services.SearchUsers(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, UserSearchResponse{Success: true, Users: users})
}

// GetUserProfile returns another user's public profile along with the
// caller's follow status toward them.
func GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	targetID := chi.URLParam(r, "userID")

	user, err := services.GetUserByID(targetID)
	if err != nil {
		if err == services.ErrNotFound {
			writeError(w, http.StatusNotFound, "User not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	status, err := services.GetFollowStatus(ctx, userID.String(), targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check follow status")
		return
	}

	writeJSON(w, http.StatusOK, UserProfileResponse{
		Success:      true,
		User:         user,
		FollowStatus: status,
	})
}
