package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/models"
)

// RequestFollow records a pending follow request from requester to target.
// Already following or already requested returns ErrAlreadyExists.
func RequestFollow(ctx context.Context, requesterID, requesterUsername, targetID string) error {
	follows := database.DB.Collection("follows")
	requests := database.DB.Collection("follow_requests")

	err := follows.FindOne(ctx, bson.M{"follower_id": requesterID, "followed_id": targetID}).Err()
	if err == nil {
		return ErrAlreadyExists
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("check follow: %w", err)
	}

	err = requests.FindOne(ctx, bson.M{"requester_id": requesterID, "target_id": targetID}).Err()
	if err == nil {
		return ErrAlreadyExists
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("check follow request: %w", err)
	}

	_, err = requests.InsertOne(ctx, models.FollowRequest{
		RequesterID:       requesterID,
		RequesterUsername: requesterUsername,
		TargetID:          targetID,
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert follow request: %w", err)
	}
	return nil
}

// AcceptFollowRequest converts a pending request into a follow edge.
// The request is removed first; if no request exists, ErrNotFound.
func AcceptFollowRequest(ctx context.Context, requesterID, targetID string) error {
	requests := database.DB.Collection("follow_requests")
	follows := database.DB.Collection("follows")

	result, err := requests.DeleteOne(ctx, bson.M{"requester_id": requesterID, "target_id": targetID})
	if err != nil {
		return fmt.Errorf("delete follow request: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	_, err = follows.InsertOne(ctx, models.Follow{
		FollowerID: requesterID,
		FollowedID: targetID,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

// RejectFollowRequest removes a pending request without creating a follow.
func RejectFollowRequest(ctx context.Context, requesterID, targetID string) error {
	result, err := database.DB.Collection("follow_requests").
		DeleteOne(ctx, bson.M{"requester_id": requesterID, "target_id": targetID})
	if err != nil {
		return fmt.Errorf("delete follow request: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Unfollow removes the follow edge from follower to followed.
func Unfollow(ctx context.Context, followerID, followedID string) error {
	result, err := database.DB.Collection("follows").
		DeleteOne(ctx, bson.M{"follower_id": followerID, "followed_id": followedID})
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetFollowStatus returns the relation from requester toward target:
// following, requested, or none.
func GetFollowStatus(ctx context.Context, requesterID, targetID string) (string, error) {
	err := database.DB.Collection("follows").
		FindOne(ctx, bson.M{"follower_id": requesterID, "followed_id": targetID}).Err()
	if err == nil {
		return models.FollowStatusFollowing, nil
	}
	if err != mongo.ErrNoDocuments {
		return "", fmt.Errorf("check follow: %w", err)
	}

	err = database.DB.Collection("follow_requests").
		FindOne(ctx, bson.M{"requester_id": requesterID, "target_id": targetID}).Err()
	if err == nil {
		return models.FollowStatusRequested, nil
	}
	if err != mongo.ErrNoDocuments {
		return "", fmt.Errorf("check follow request: %w", err)
	}

	return models.FollowStatusNone, nil
}

// ListFollowRequests returns the pending requests for a target user,
// newest first.
func ListFollowRequests(ctx context.Context, targetID string) ([]models.FollowRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := database.DB.Collection("follow_requests").
		Find(ctx, bson.M{"target_id": targetID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query follow requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := []models.FollowRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("decode follow requests: %w", err)
	}
	return requests, nil
}

// ListFollowing returns the follow edges where userID is the follower.
func ListFollowing(ctx context.Context, userID string) ([]models.Follow, error) {
	cursor, err := database.DB.Collection("follows").
		Find(ctx, bson.M{"follower_id": userID})
	if err != nil {
		return nil, fmt.Errorf("query following: %w", err)
	}
	defer cursor.Close(ctx)

	follows := []models.Follow{}
	if err := cursor.All(ctx, &follows); err != nil {
		return nil, fmt.Errorf("decode following: %w", err)
	}
	return follows, nil
}

// ListFollowers returns the follow edges where userID is being followed.
func ListFollowers(ctx context.Context, userID string) ([]models.Follow, error) {
	cursor, err := database.DB.Collection("follows").
		Find(ctx, bson.M{"followed_id": userID})
	if err != nil {
		return nil, fmt.Errorf("query followers: %w", err)
	}
	defer cursor.Close(ctx)

	follows := []models.Follow{}
	if err := cursor.All(ctx, &follows); err != nil {
		return nil, fmt.Errorf("decode followers: %w", err)
	}
	return follows, nil
}
