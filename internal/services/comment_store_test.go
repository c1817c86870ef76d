package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moodloop/moodloop-backend/internal/models"
)

type updateCall struct {
	id     primitive.ObjectID
	update interface{}
}

// fakeCommentCol is an in-memory stand-in for the comments collection.
type fakeCommentCol struct {
	docs map[primitive.ObjectID]models.Comment

	inserted []models.Comment
	updates  []updateCall
	deletes  []primitive.ObjectID

	findDocs   []interface{}
	lastFilter interface{}

	insertErr   error
	updateErr   error
	deleteErrOn map[primitive.ObjectID]error
}

func newFakeCommentCol() *fakeCommentCol {
	return &fakeCommentCol{
		docs:        make(map[primitive.ObjectID]models.Comment),
		deleteErrOn: make(map[primitive.ObjectID]error),
	}
}

func (f *fakeCommentCol) put(c models.Comment) models.Comment {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	f.docs[c.ID] = c
	return c
}

func filterID(filter interface{}) primitive.ObjectID {
	id, _ := filter.(bson.M)["_id"].(primitive.ObjectID)
	return id
}

func (f *fakeCommentCol) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	f.lastFilter = filter
	return mongo.NewCursorFromDocuments(f.findDocs, nil, nil)
}

func (f *fakeCommentCol) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	doc, ok := f.docs[filterID(filter)]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func (f *fakeCommentCol) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	c := *document.(*models.Comment)
	c.ID = primitive.NewObjectID()
	f.inserted = append(f.inserted, c)
	f.docs[c.ID] = c
	return &mongo.InsertOneResult{InsertedID: c.ID}, nil
}

func (f *fakeCommentCol) UpdateByID(ctx context.Context, id interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, updateCall{id: id.(primitive.ObjectID), update: update})
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (f *fakeCommentCol) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	id := filterID(filter)
	if err, ok := f.deleteErrOn[id]; ok {
		return nil, err
	}
	f.deletes = append(f.deletes, id)
	delete(f.docs, id)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func updatedReplyIDs(t *testing.T, call updateCall) []string {
	t.Helper()
	set, ok := call.update.(bson.M)["$set"].(bson.M)
	require.True(t, ok)
	ids, ok := set["reply_ids"].([]string)
	require.True(t, ok)
	return ids
}

func strPtr(s string) *string { return &s }

func TestAddTopLevelComment(t *testing.T) {
	col := newFakeCommentCol()
	store := &CommentStore{col: col}

	c := models.Comment{MoodEventID: "evt1", AuthorID: "alice", Text: "hang in there"}
	err := store.AddComment(context.Background(), &c)
	require.NoError(t, err)

	assert.False(t, c.ID.IsZero())
	assert.NotZero(t, c.Timestamp)
	require.Len(t, col.inserted, 1)
	assert.Empty(t, col.updates)
}

func TestAddReplyAppendsToParentReplyIDs(t *testing.T) {
	col := newFakeCommentCol()
	parent := col.put(models.Comment{MoodEventID: "evt1", AuthorID: "alice", ReplyIDs: []string{"existing"}})
	store := &CommentStore{col: col}

	c := models.Comment{
		MoodEventID: "evt1",
		ParentID:    strPtr(parent.ID.Hex()),
		AuthorID:    "bob",
		Text:        "same here",
	}
	err := store.AddComment(context.Background(), &c)
	require.NoError(t, err)

	require.Len(t, col.updates, 1)
	assert.Equal(t, parent.ID, col.updates[0].id)
	assert.Equal(t, []string{"existing", c.ID.Hex()}, updatedReplyIDs(t, col.updates[0]))
}

func TestAddReplyToMissingParentKeepsReply(t *testing.T) {
	col := newFakeCommentCol()
	store := &CommentStore{col: col}

	c := models.Comment{
		MoodEventID: "evt1",
		ParentID:    strPtr(primitive.NewObjectID().Hex()),
		AuthorID:    "bob",
		Text:        "replying into the void",
	}
	err := store.AddComment(context.Background(), &c)
	require.NoError(t, err)

	assert.False(t, c.ID.IsZero())
	require.Len(t, col.inserted, 1)
	assert.Empty(t, col.updates)
}

func TestAddReplyParentUpdateFailureLeavesOrphan(t *testing.T) {
	col := newFakeCommentCol()
	parent := col.put(models.Comment{MoodEventID: "evt1", AuthorID: "alice"})
	col.updateErr = errors.New("write conflict")
	store := &CommentStore{col: col}

	c := models.Comment{
		MoodEventID: "evt1",
		ParentID:    strPtr(parent.ID.Hex()),
		AuthorID:    "bob",
		Text:        "orphaned",
	}
	err := store.AddComment(context.Background(), &c)

	require.Error(t, err)
	// The reply itself committed even though the back-reference write failed.
	assert.False(t, c.ID.IsZero())
	require.Len(t, col.inserted, 1)
	assert.Contains(t, err.Error(), "not updated")
}

func TestAddReplyInvalidParentIDRejectedBeforeInsert(t *testing.T) {
	col := newFakeCommentCol()
	store := &CommentStore{col: col}

	c := models.Comment{MoodEventID: "evt1", ParentID: strPtr("not-a-hex-id"), Text: "x"}
	err := store.AddComment(context.Background(), &c)

	require.Error(t, err)
	assert.Empty(t, col.inserted)
}

func TestDeleteCommentCascadesToReplies(t *testing.T) {
	col := newFakeCommentCol()
	reply1 := col.put(models.Comment{MoodEventID: "evt1"})
	reply2 := col.put(models.Comment{MoodEventID: "evt1"})
	parent := col.put(models.Comment{
		MoodEventID: "evt1",
		ReplyIDs:    []string{reply1.ID.Hex(), reply2.ID.Hex()},
	})
	store := &CommentStore{col: col}

	err := store.DeleteComment(context.Background(), parent.ID.Hex())
	require.NoError(t, err)

	// Replies go first, the parent last.
	require.Len(t, col.deletes, 3)
	assert.Equal(t, []primitive.ObjectID{reply1.ID, reply2.ID, parent.ID}, col.deletes)
	assert.Empty(t, col.docs)
}

func TestDeleteCommentPartialCascadeStillDeletesParent(t *testing.T) {
	col := newFakeCommentCol()
	reply1 := col.put(models.Comment{MoodEventID: "evt1"})
	reply2 := col.put(models.Comment{MoodEventID: "evt1"})
	parent := col.put(models.Comment{
		MoodEventID: "evt1",
		ReplyIDs:    []string{reply1.ID.Hex(), reply2.ID.Hex()},
	})
	col.deleteErrOn[reply1.ID] = errors.New("timeout")
	store := &CommentStore{col: col}

	err := store.DeleteComment(context.Background(), parent.ID.Hex())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "replies remain")
	assert.Contains(t, col.deletes, parent.ID)
	assert.Contains(t, col.deletes, reply2.ID)
	assert.NotContains(t, col.deletes, reply1.ID)
}

func TestDeleteReplyDetachesFromParent(t *testing.T) {
	col := newFakeCommentCol()
	reply := col.put(models.Comment{MoodEventID: "evt1"})
	parent := col.put(models.Comment{
		MoodEventID: "evt1",
		ReplyIDs:    []string{"other", reply.ID.Hex()},
	})
	reply.ParentID = strPtr(parent.ID.Hex())
	col.docs[reply.ID] = reply
	store := &CommentStore{col: col}

	err := store.DeleteComment(context.Background(), reply.ID.Hex())
	require.NoError(t, err)

	require.Len(t, col.updates, 1)
	assert.Equal(t, parent.ID, col.updates[0].id)
	assert.Equal(t, []string{"other"}, updatedReplyIDs(t, col.updates[0]))
	assert.Equal(t, []primitive.ObjectID{reply.ID}, col.deletes)
}

func TestDeleteReplyWithMissingParentStillDeletes(t *testing.T) {
	col := newFakeCommentCol()
	reply := col.put(models.Comment{
		MoodEventID: "evt1",
		ParentID:    strPtr(primitive.NewObjectID().Hex()),
	})
	store := &CommentStore{col: col}

	err := store.DeleteComment(context.Background(), reply.ID.Hex())
	require.NoError(t, err)

	assert.Empty(t, col.updates)
	assert.Equal(t, []primitive.ObjectID{reply.ID}, col.deletes)
}

func TestDeleteCommentNotFound(t *testing.T) {
	store := &CommentStore{col: newFakeCommentCol()}

	err := store.DeleteComment(context.Background(), primitive.NewObjectID().Hex())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCommentsTopLevelOnlyFilter(t *testing.T) {
	col := newFakeCommentCol()
	col.findDocs = []interface{}{
		models.Comment{ID: primitive.NewObjectID(), MoodEventID: "evt1", Text: "a"},
	}
	store := &CommentStore{col: col}

	comments, err := store.ListComments(context.Background(), "evt1", true)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	filter, ok := col.lastFilter.(bson.M)
	require.True(t, ok)
	assert.Equal(t, "evt1", filter["mood_event_id"])
	replyFilter, present := filter["parent_id"]
	assert.True(t, present)
	assert.Nil(t, replyFilter)
}

func TestGetCommentNotFound(t *testing.T) {
	store := &CommentStore{col: newFakeCommentCol()}

	_, err := store.GetComment(context.Background(), primitive.NewObjectID().Hex())

	assert.ErrorIs(t, err, ErrNotFound)
}
