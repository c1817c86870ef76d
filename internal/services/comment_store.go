package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moodloop/moodloop-backend/internal/models"
)

// commentCollection is the slice of *mongo.Collection the comment store
// needs. Narrow so tests can swap in fakes built from the driver's
// NewSingleResultFromDocument / NewCursorFromDocuments helpers.
type commentCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateByID(ctx context.Context, id interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// CommentStore manages two-level comment threads on mood events.
//
// The parent/reply relation is denormalized: each reply carries its parent's
// id, and the parent carries a reply_ids list. The two writes involved are
// not transactional. A reply whose second write fails stays committed without
// appearing in its parent's list, and a partially failed cascade delete can
// leave replies behind. Both outcomes are reported in the returned error.
type CommentStore struct {
	col commentCollection
}

// NewCommentStore returns a store over the comments collection of db.
func NewCommentStore(db *mongo.Database) *CommentStore {
	return &CommentStore{col: db.Collection("comments")}
}

// ListComments returns the comments for a mood event, newest first.
// When topLevelOnly is set, replies are excluded.
func (s *CommentStore) ListComments(ctx context.Context, moodEventID string, topLevelOnly bool) ([]models.Comment, error) {
	filter := bson.M{"mood_event_id": moodEventID}
	if topLevelOnly {
		filter["parent_id"] = nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

// ListReplies returns the replies to a comment, oldest first.
func (s *CommentStore) ListReplies(ctx context.Context, parentID string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"parent_id": parentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query replies: %w", err)
	}
	defer cursor.Close(ctx)

	replies := []models.Comment{}
	if err := cursor.All(ctx, &replies); err != nil {
		return nil, fmt.Errorf("decode replies: %w", err)
	}
	return replies, nil
}

// GetComment returns a single comment by id.
func (s *CommentStore) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid comment id %q: %w", id, err)
	}

	var c models.Comment
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch comment: %w", err)
	}
	return &c, nil
}

// AddComment inserts a comment and, when it is a reply, appends its new id
// to the parent's reply_ids. The comment's ID and Timestamp are filled in.
//
// A reply to a parent that no longer exists is kept as a plain insert.
// If the parent update fails after the insert committed, the reply stays in
// the store without a back-reference and the error says so.
func (s *CommentStore) AddComment(ctx context.Context, c *models.Comment) error {
	var parentOID primitive.ObjectID
	if c.IsReply() {
		var err error
		parentOID, err = primitive.ObjectIDFromHex(*c.ParentID)
		if err != nil {
			return fmt.Errorf("invalid parent id %q: %w", *c.ParentID, err)
		}
	}

	if c.Timestamp == 0 {
		c.Timestamp = time.Now().UnixMilli()
	}
	c.ID = primitive.NilObjectID
	c.ReplyIDs = nil

	result, err := s.col.InsertOne(ctx, c)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	c.ID = result.InsertedID.(primitive.ObjectID)

	if !c.IsReply() {
		return nil
	}

	var parent models.Comment
	err = s.col.FindOne(ctx, bson.M{"_id": parentOID}).Decode(&parent)
	if err == mongo.ErrNoDocuments {
		// Parent was deleted between the client loading the thread and
		// replying. The reply is already committed; keep it.
		log.Printf("⚠️ Reply %s added under missing parent %s", c.ID.Hex(), *c.ParentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reply %s committed but parent %s lookup failed: %w", c.ID.Hex(), *c.ParentID, err)
	}

	replyIDs := append(parent.ReplyIDs, c.ID.Hex())
	_, err = s.col.UpdateByID(ctx, parentOID, bson.M{"$set": bson.M{"reply_ids": replyIDs}})
	if err != nil {
		return fmt.Errorf("reply %s committed but parent %s not updated: %w", c.ID.Hex(), *c.ParentID, err)
	}
	return nil
}

// DeleteComment deletes a comment by id.
//
// A top-level comment with replies has each reply deleted first, then the
// comment itself. The comment is deleted even when some reply deletes fail;
// the error then reports how many replies were left behind.
//
// A reply has its id removed from the parent's reply_ids before being
// deleted. A missing parent is fine, the reply is deleted anyway, and the
// delete also proceeds when the parent update fails.
func (s *CommentStore) DeleteComment(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid comment id %q: %w", id, err)
	}

	var c models.Comment
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("fetch comment: %w", err)
	}

	if len(c.ReplyIDs) > 0 {
		return s.deleteWithReplies(ctx, oid, c.ReplyIDs)
	}
	if c.IsReply() {
		return s.deleteReply(ctx, oid, *c.ParentID)
	}

	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *CommentStore) deleteWithReplies(ctx context.Context, oid primitive.ObjectID, replyIDs []string) error {
	failed := 0
	for _, replyID := range replyIDs {
		replyOID, err := primitive.ObjectIDFromHex(replyID)
		if err != nil {
			log.Printf("⚠️ Skipping malformed reply id %q on comment %s", replyID, oid.Hex())
			continue
		}
		if _, err := s.col.DeleteOne(ctx, bson.M{"_id": replyOID}); err != nil {
			log.Printf("⚠️ Failed to delete reply %s of comment %s: %v", replyID, oid.Hex(), err)
			failed++
		}
	}

	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if failed > 0 {
		return fmt.Errorf("comment deleted but %d of %d replies remain", failed, len(replyIDs))
	}
	return nil
}

func (s *CommentStore) deleteReply(ctx context.Context, oid primitive.ObjectID, parentID string) error {
	parentOID, err := primitive.ObjectIDFromHex(parentID)
	if err != nil {
		// Can't resolve the parent, still delete the reply itself.
		log.Printf("⚠️ Reply %s has malformed parent id %q", oid.Hex(), parentID)
		if _, err := s.col.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
			return fmt.Errorf("delete reply: %w", err)
		}
		return nil
	}

	var parent models.Comment
	err = s.col.FindOne(ctx, bson.M{"_id": parentOID}).Decode(&parent)
	switch {
	case err == mongo.ErrNoDocuments:
		// Parent already gone, nothing to detach from.
	case err != nil:
		log.Printf("⚠️ Parent %s lookup failed while deleting reply %s: %v", parentID, oid.Hex(), err)
	default:
		remaining := removeString(parent.ReplyIDs, oid.Hex())
		if len(remaining) != len(parent.ReplyIDs) {
			_, uerr := s.col.UpdateByID(ctx, parentOID, bson.M{"$set": bson.M{"reply_ids": remaining}})
			if uerr != nil {
				log.Printf("⚠️ Parent %s keeps stale reply id %s: %v", parentID, oid.Hex(), uerr)
			}
		}
	}

	if _, err := s.col.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete reply: %w", err)
	}
	return nil
}

func removeString(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}

// EnsureCommentIndexes creates the indexes the comment queries rely on.
func EnsureCommentIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("comments").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "mood_event_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
	})
	return err
}
