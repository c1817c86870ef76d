package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment is a comment on a mood event. Threads are two levels deep:
// a top-level comment has ParentID == nil and may carry ReplyIDs; a reply
// has a non-nil ParentID and never has replies of its own.
//
// ReplyIDs is a denormalized back-reference maintained by the comment store.
// The store performs no cross-document transaction, so a failed second write
// can leave a reply missing from its parent's list.
type Comment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MoodEventID string             `bson:"mood_event_id" json:"mood_event_id"`
	ParentID    *string            `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	AuthorID    string             `bson:"author_id" json:"author_id"`
	AuthorName  string             `bson:"author_name,omitempty" json:"author_name,omitempty"`
	Text        string             `bson:"text" json:"text"`
	Timestamp   int64              `bson:"timestamp" json:"timestamp"`
	ReplyIDs    []string           `bson:"reply_ids,omitempty" json:"reply_ids,omitempty"`
}

// IsReply reports whether the comment is a reply to another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}
