package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/models"
	"github.com/moodloop/moodloop-backend/internal/services"
)

// commentStore is initialized once the Mongo connection is up.
var commentStore *services.CommentStore

// InitComments wires the comment store to the connected database.
func InitComments() {
	commentStore = services.NewCommentStore(database.DB)
}

const maxCommentLength = 1000

type AddCommentRequest struct {
	MoodEventID string `json:"mood_event_id"`
	ParentID    string `json:"parent_id,omitempty"`
	Text        string `json:"text"`
}

type CommentResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Comment *models.Comment `json:"comment,omitempty"`
}

type CommentListResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Comments []models.Comment `json:"comments"`
}

// AddComment posts a comment or reply on a mood event.
func AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MoodEventID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, "Event id and text are required")
		return
	}
	if len(req.Text) > maxCommentLength {
		writeError(w, http.StatusBadRequest, "Comment is too long")
		return
	}

	authorName, err := services.GetUsernameByID(userID.String())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve username")
		return
	}

	comment := models.Comment{
		MoodEventID: req.MoodEventID,
		AuthorID:    userID.String(),
		AuthorName:  authorName,
		Text:        req.Text,
	}
	if req.ParentID != "" {
		comment.ParentID = &req.ParentID
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	if err := commentStore.AddComment(ctx, &comment); err != nil {
		if comment.ID.IsZero() {
			writeError(w, http.StatusInternalServerError, "Failed to save comment")
			return
		}
		// The comment itself committed; only the parent back-reference
		// is missing. Report success but log the inconsistency.
		log.Printf("⚠️ %v", err)
	}

	notifyMoodOwner(ctx, &comment, userID.String(), authorName)

	writeJSON(w, http.StatusCreated, CommentResponse{Success: true, Message: "Comment added", Comment: &comment})
}

// notifyMoodOwner pushes a realtime notification to the commented event's
// owner. Best effort, never fails the request.
func notifyMoodOwner(ctx context.Context, comment *models.Comment, actorID, actorName string) {
	owner, err := moodEventOwner(ctx, comment.MoodEventID)
	if err != nil || owner == "" || owner == actorID {
		return
	}
	err = services.PublishNotification(ctx, services.NotificationEvent{
		Type:          services.EventNewComment,
		TargetID:      owner,
		ActorID:       actorID,
		ActorUsername: actorName,
		MoodEventID:   comment.MoodEventID,
		CommentID:     comment.ID.Hex(),
	})
	if err != nil {
		log.Printf("⚠️ Failed to publish comment notification: %v", err)
	}
}

func moodEventOwner(ctx context.Context, moodEventID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(moodEventID)
	if err != nil {
		return "", err
	}
	var event models.MoodEvent
	err = database.DB.Collection("moods").FindOne(ctx, bson.M{"_id": oid}).Decode(&event)
	if err != nil {
		return "", err
	}
	return event.UserID, nil
}

// GetComments returns the top-level comments on a mood event, newest first.
// Pass replies=true to include replies inline.
func GetComments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(r); !ok {
		writeUnauthorized(w)
		return
	}

	moodEventID := chi.URLParam(r, "eventID")
	includeReplies := r.URL.Query().Get("replies") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	comments, err := commentStore.ListComments(ctx, moodEventID, !includeReplies)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load comments")
		return
	}

	writeJSON(w, http.StatusOK, CommentListResponse{Success: true, Comments: comments})
}

// GetReplies returns the replies to one comment, oldest first.
func GetReplies(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAuth(r); !ok {
		writeUnauthorized(w)
		return
	}

	parentID := chi.URLParam(r, "commentID")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	replies, err := commentStore.ListReplies(ctx, parentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load replies")
		return
	}

	writeJSON(w, http.StatusOK, CommentListResponse{Success: true, Comments: replies})
}

// DeleteComment removes a comment the caller authored. Deleting a top-level
// comment removes its replies too.
func DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(r)
	if !ok {
		writeUnauthorized(w)
		return
	}

	commentID := chi.URLParam(r, "commentID")

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeoutSeconds*time.Second)
	defer cancel()

	comment, err := commentStore.GetComment(ctx, commentID)
	if err != nil {
		if err == services.ErrNotFound {
			writeError(w, http.StatusNotFound, "Comment not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to load comment")
		}
		return
	}
	if comment.AuthorID != userID.String() {
		writeError(w, http.StatusForbidden, "You can only delete your own comments")
		return
	}

	if err := commentStore.DeleteComment(ctx, commentID); err != nil {
		if err == services.ErrNotFound {
			writeError(w, http.StatusNotFound, "Comment not found")
			return
		}
		// Partial cascade failures still removed the comment itself.
		log.Printf("⚠️ %v", err)
	}

	writeJSON(w, http.StatusOK, CommentResponse{Success: true, Message: "Comment deleted"})
}
