package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moodloop/moodloop-backend/internal/models"
	"github.com/moodloop/moodloop-backend/internal/services"
)

type FollowRequestBody struct {
	TargetID string `json:"target_id"`
}

type FollowResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

type FollowRequestListResponse struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message,omitempty"`
	Requests []models.FollowRequest `json:"requests"`
}

type FollowListEntry struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type FollowListResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Users   []FollowListEntry `json:"users"`
}

// SendFollowRequest asks to follow another user and notifies them.
func SendFollowRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req FollowRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetID == "" || req.TargetID == userID.String() {
		writeError(w, http.StatusBadRequest, "Invalid target user")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	// Target must be an existing active account.
	targetName, err := services.GetUsernameByID(req.TargetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	if targetName == "" {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	requesterName, err := services.GetUsernameByID(userID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve username")
		return
	}

	err = services.RequestFollow(ctx, userID.String(), requesterName, req.TargetID)
	if err == services.ErrAlreadyExists {
		writeError(w, http.StatusConflict, "Already following or request pending")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to send follow request")
		return
	}

	if err := services.PublishNotification(ctx, services.NotificationEvent{
		Type:          services.EventFollowRequest,
		TargetID:      req.TargetID,
		ActorID:       userID.String(),
		ActorUsername: requesterName,
	}); err != nil {
		log.Printf("⚠️ Failed to publish follow request notification: %v", err)
	}

	writeJSON(w, http.StatusCreated, FollowResponse{
		Success: true,
		Message: "Follow request sent",
		Status:  models.FollowStatusRequested,
	})
}

// AcceptFollowRequest approves a pending request and notifies the requester.
func AcceptFollowRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	requesterID := chi.URLParam(r, "requesterID")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	err := services.AcceptFollowRequest(ctx, requesterID, userID.String())
	if err == services.ErrNotFound {
		writeError(w, http.StatusNotFound, "No pending request from this user")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to accept follow request")
		return
	}

	username, _ := services.GetUsernameByID(userID.String())
	if err := services.PublishNotification(ctx, services.NotificationEvent{
		Type:          services.EventFollowAccepted,
		TargetID:      requesterID,
		ActorID:       userID.String(),
		ActorUsername: username,
	}); err != nil {
		log.Printf("⚠️ Failed to publish follow accepted notification: %v", err)
	}

	writeJSON(w, http.StatusOK, FollowResponse{Success: true, Message: "Follow request accepted"})
}

// RejectFollowRequest declines a pending request. The requester is not told.
func RejectFollowRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	requesterID := chi.URLParam(r, "requesterID")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	err := services.RejectFollowRequest(ctx, requesterID, userID.String())
	if err == services.ErrNotFound {
		writeError(w, http.StatusNotFound, "No pending request from this user")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reject follow request")
		return
	}

	writeJSON(w, http.StatusOK, FollowResponse{Success: true, Message: "Follow request rejected"})
}

// Unfollow stops following a user.
func Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	targetID := chi.URLParam(r, "userID")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	err := services.Unfollow(ctx, userID.String(), targetID)
	if err == services.ErrNotFound {
		writeError(w, http.StatusNotFound, "You do not follow this user")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unfollow")
		return
	}

	writeJSON(w, http.StatusOK, FollowResponse{
		Success: true,
		Message: "Unfollowed",
		Status:  models.FollowStatusNone,
	})
}

// GetFollowStatus returns the caller's relation toward another user.
func GetFollowStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}
	targetID := chi.URLParam(r, "userID")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	status, err := services.GetFollowStatus(ctx, userID.String(), targetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check follow status")
		return
	}

	writeJSON(w, http.StatusOK, FollowResponse{Success: true, Status: status})
}

// ListFollowRequests returns the caller's pending incoming requests.
func ListFollowRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	requests, err := services.ListFollowRequests(ctx, userID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load follow requests")
		return
	}

	writeJSON(w, http.StatusOK, FollowRequestListResponse{Success: true, Requests: requests})
}

// ListFollowing returns who the caller follows, with usernames resolved.
func ListFollowing(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	follows, err := services.ListFollowing(ctx, userID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load following")
		return
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowedID)
	}
	names := feedAggregator.ResolveUsernames(ctx, ids)

	users := make([]FollowListEntry, 0, len(follows))
	for _, f := range follows {
		users = append(users, FollowListEntry{UserID: f.FollowedID, Username: names[f.FollowedID]})
	}

	writeJSON(w, http.StatusOK, FollowListResponse{Success: true, Users: users})
}

// ListFollowers returns who follows the caller, with usernames resolved.
func ListFollowers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	follows, err := services.ListFollowers(ctx, userID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load followers")
		return
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowerID)
	}
	names := feedAggregator.ResolveUsernames(ctx, ids)

	users := make([]FollowListEntry, 0, len(follows))
	for _, f := range follows {
		users = append(users, FollowListEntry{UserID: f.FollowerID, Username: names[f.FollowerID]})
	}

	writeJSON(w, http.StatusOK, FollowListResponse{Success: true, Users: users})
}
