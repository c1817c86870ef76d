package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Follow records that FollowerID follows FollowedID. At most one document
// exists per (follower, followed) pair.
type Follow struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FollowerID string             `bson:"follower_id" json:"follower_id"`
	FollowedID string             `bson:"followed_id" json:"followed_id"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// FollowRequest is a pending request from RequesterID to follow TargetID.
// Accepting converts it into a Follow; rejecting deletes it.
type FollowRequest struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequesterID       string             `bson:"requester_id" json:"requester_id"`
	RequesterUsername string             `bson:"requester_username,omitempty" json:"requester_username,omitempty"`
	TargetID          string             `bson:"target_id" json:"target_id"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

// Follow status values returned by the follow service.
const (
	FollowStatusNone      = "none"
	FollowStatusRequested = "requested"
	FollowStatusFollowing = "following"
)
