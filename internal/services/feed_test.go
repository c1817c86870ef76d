package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moodloop/moodloop-backend/internal/models"
)

// fakeFinder serves canned documents per user_id / follower_id filter.
type fakeFinder struct {
	byKey    map[string][]interface{}
	keyField string
	errFor   map[string]error
	lastOpts []*options.FindOptions
}

func (f *fakeFinder) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	f.lastOpts = opts
	key, _ := filter.(bson.M)[f.keyField].(string)
	if err, ok := f.errFor[key]; ok {
		return nil, err
	}
	return mongo.NewCursorFromDocuments(f.byKey[key], nil, nil)
}

func boolPtr(b bool) *bool { return &b }

func mood(userID string, t int64, public *bool) models.MoodEvent {
	return models.MoodEvent{
		UserID:       userID,
		Mood:         models.MoodHappiness,
		Time:         t,
		PublicStatus: public,
	}
}

func newTestAggregator(follows, moods *fakeFinder, names map[string]string) *FeedAggregator {
	return &FeedAggregator{
		follows: follows,
		moods:   moods,
		lookupUsername: func(id string) (string, error) {
			return names[id], nil
		},
	}
}

func followsFor(follower string, followed ...string) *fakeFinder {
	docs := make([]interface{}, 0, len(followed))
	for _, id := range followed {
		docs = append(docs, models.Follow{FollowerID: follower, FollowedID: id})
	}
	return &fakeFinder{
		keyField: "follower_id",
		byKey:    map[string][]interface{}{follower: docs},
	}
}

func TestLoadFeedMergesNewestFirst(t *testing.T) {
	moods := &fakeFinder{
		keyField: "user_id",
		byKey: map[string][]interface{}{
			"alice": {mood("alice", 300, nil), mood("alice", 100, nil)},
			"bob":   {mood("bob", 400, nil), mood("bob", 200, nil)},
		},
	}
	agg := newTestAggregator(followsFor("me", "alice", "bob"), moods,
		map[string]string{"alice": "alice_a", "bob": "bob_b"})

	result, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	require.Len(t, result.Events, 4)
	times := []int64{result.Events[0].Time, result.Events[1].Time, result.Events[2].Time, result.Events[3].Time}
	assert.Equal(t, []int64{400, 300, 200, 100}, times)
	assert.Equal(t, 2, result.FollowedCount)
	assert.Zero(t, result.FailedUsers)

	assert.Equal(t, "bob_b", result.Events[0].UserName)
	assert.Equal(t, "alice_a", result.Events[1].UserName)
}

func TestLoadFeedCapsPublicEventsPerUser(t *testing.T) {
	docs := []interface{}{}
	for i := 5; i >= 1; i-- {
		docs = append(docs, mood("alice", int64(i*100), nil))
	}
	moods := &fakeFinder{keyField: "user_id", byKey: map[string][]interface{}{"alice": docs}}
	agg := newTestAggregator(followsFor("me", "alice"), moods, map[string]string{"alice": "alice_a"})

	result, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	require.Len(t, result.Events, 3)
	assert.Equal(t, int64(500), result.Events[0].Time)
	assert.Equal(t, int64(300), result.Events[2].Time)
}

func TestLoadFeedSkipsPrivateEvents(t *testing.T) {
	moods := &fakeFinder{
		keyField: "user_id",
		byKey: map[string][]interface{}{
			"alice": {
				mood("alice", 500, boolPtr(false)),
				mood("alice", 400, boolPtr(true)),
				mood("alice", 300, nil), // absent means public
				mood("alice", 200, boolPtr(false)),
			},
		},
	}
	agg := newTestAggregator(followsFor("me", "alice"), moods, map[string]string{"alice": "alice_a"})

	result, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	assert.Equal(t, int64(400), result.Events[0].Time)
	assert.Equal(t, int64(300), result.Events[1].Time)
}

func TestLoadFeedCountsFailedUsers(t *testing.T) {
	moods := &fakeFinder{
		keyField: "user_id",
		byKey:    map[string][]interface{}{"alice": {mood("alice", 100, nil)}},
		errFor:   map[string]error{"bob": errors.New("connection reset")},
	}
	agg := newTestAggregator(followsFor("me", "alice", "bob"), moods,
		map[string]string{"alice": "alice_a", "bob": "bob_b"})

	result, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedUsers)
	assert.Equal(t, 2, result.FollowedCount)
	require.Len(t, result.Events, 1)
	assert.Equal(t, "alice", result.Events[0].UserID)
}

func TestLoadFeedNotFollowingAnyone(t *testing.T) {
	agg := newTestAggregator(followsFor("me"), &fakeFinder{keyField: "user_id"}, nil)

	result, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	assert.Empty(t, result.Events)
	assert.Zero(t, result.FollowedCount)
}

func TestLoadFeedQueriesWithLimit(t *testing.T) {
	moods := &fakeFinder{keyField: "user_id", byKey: map[string][]interface{}{"alice": {}}}
	agg := newTestAggregator(followsFor("me", "alice"), moods, map[string]string{"alice": "alice_a"})

	_, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	require.NotEmpty(t, moods.lastOpts)
	require.NotNil(t, moods.lastOpts[0].Limit)
	assert.Equal(t, int64(10), *moods.lastOpts[0].Limit)
}

func TestLoadFeedUsesCache(t *testing.T) {
	moods := &fakeFinder{
		keyField: "user_id",
		errFor:   map[string]error{"alice": errors.New("must not be queried")},
	}
	agg := newTestAggregator(followsFor("me", "alice"), moods, map[string]string{"alice": "alice_a"})
	agg.getCached = func(ctx context.Context, userID string) ([]models.MoodEvent, bool) {
		return []models.MoodEvent{mood("alice", 700, nil)}, true
	}

	result, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	require.Len(t, result.Events, 1)
	assert.Equal(t, int64(700), result.Events[0].Time)
	assert.Zero(t, result.FailedUsers)
}

func TestResolveUsernamesSkipsFailures(t *testing.T) {
	agg := &FeedAggregator{
		lookupUsername: func(id string) (string, error) {
			switch id {
			case "bad":
				return "", errors.New("lookup failed")
			case "gone":
				return "", nil
			default:
				return "user_" + id, nil
			}
		},
	}

	names := agg.ResolveUsernames(context.Background(), []string{"a", "bad", "b", "gone"})

	assert.Equal(t, map[string]string{"a": "user_a", "b": "user_b"}, names)
}

func TestLoadUserPublicMoodsHasNoCap(t *testing.T) {
	docs := []interface{}{}
	for i := 6; i >= 1; i-- {
		docs = append(docs, mood("alice", int64(i*10), nil))
	}
	moods := &fakeFinder{keyField: "user_id", byKey: map[string][]interface{}{"alice": docs}}
	agg := newTestAggregator(&fakeFinder{keyField: "follower_id"}, moods,
		map[string]string{"alice": "alice_a"})

	events, err := agg.LoadUserPublicMoods(context.Background(), "alice")
	require.NoError(t, err)

	assert.Len(t, events, 6)
	for _, e := range events {
		assert.Equal(t, "alice_a", e.UserName)
	}
}

func TestLoadFeedTwoUserScenario(t *testing.T) {
	happy := models.MoodEvent{UserID: "a", Mood: models.MoodHappiness, Time: 1000}
	sad := models.MoodEvent{UserID: "b", Mood: models.MoodSadness, Time: 2000}
	moods := &fakeFinder{
		keyField: "user_id",
		byKey: map[string][]interface{}{
			"a": {happy},
			"b": {sad},
		},
	}
	agg := newTestAggregator(followsFor("me", "a", "b"), moods,
		map[string]string{"a": "user_a", "b": "user_b"})

	result, err := agg.LoadFeed(context.Background(), "me")
	require.NoError(t, err)

	require.Len(t, result.Events, 2)
	assert.Equal(t, models.MoodSadness, result.Events[0].Mood)
	assert.Equal(t, models.MoodHappiness, result.Events[1].Mood)
}

func TestFilterFeedMoodScenario(t *testing.T) {
	events := []models.MoodEvent{
		{Mood: models.MoodHappiness, Time: 500},
		{Mood: models.MoodAnger, Time: 400},
		{Mood: models.MoodFear, Time: 300},
		{Mood: models.MoodHappiness, Time: 200},
		{Mood: models.MoodSadness, Time: 100},
	}

	out := FilterFeed(events, FeedFilter{Mood: models.MoodHappiness}, 1000)

	require.Len(t, out, 2)
	assert.Equal(t, int64(500), out[0].Time)
	assert.Equal(t, int64(200), out[1].Time)
}

func TestFilterFeedByMood(t *testing.T) {
	events := []models.MoodEvent{
		{Mood: models.MoodSadness, Time: 3},
		{Mood: models.MoodHappiness, Time: 2},
		{Mood: models.MoodSadness, Time: 1},
	}

	out := FilterFeed(events, FeedFilter{Mood: models.MoodSadness}, 10)

	require.Len(t, out, 2)
	assert.Equal(t, int64(3), out[0].Time)
	assert.Equal(t, int64(1), out[1].Time)
}

func TestFilterFeedByReasonWholeWord(t *testing.T) {
	events := []models.MoodEvent{
		{Mood: models.MoodSadness, Reason: "lost my keys today"},
		{Mood: models.MoodSadness, Reason: "keysmash everywhere"},
		{Mood: models.MoodSadness, Reason: "Found my KEYS again"},
	}

	out := FilterFeed(events, FeedFilter{ReasonWord: "keys"}, 10)

	require.Len(t, out, 2)
	assert.Equal(t, "lost my keys today", out[0].Reason)
	assert.Equal(t, "Found my KEYS again", out[1].Reason)
}

func TestFilterFeedRecentWeekBoundary(t *testing.T) {
	now := time.Now().UnixMilli()
	events := []models.MoodEvent{
		{Mood: models.MoodFear, Time: now},
		{Mood: models.MoodFear, Time: now - RecentWindowMillis},     // exactly 7 days old, kept
		{Mood: models.MoodFear, Time: now - RecentWindowMillis - 1}, // just over, dropped
	}

	out := FilterFeed(events, FeedFilter{RecentWeek: true}, now)

	require.Len(t, out, 2)
	assert.Equal(t, now, out[0].Time)
	assert.Equal(t, now-RecentWindowMillis, out[1].Time)
}

func TestFilterFeedSeeAllOverridesEverything(t *testing.T) {
	events := []models.MoodEvent{
		{Mood: models.MoodAnger, Reason: "traffic", Time: 1},
		{Mood: models.MoodShame, Reason: "meeting", Time: 2},
	}

	out := FilterFeed(events, FeedFilter{Mood: models.MoodAnger, ReasonWord: "nothing", RecentWeek: true, SeeAll: true}, 10)

	assert.Equal(t, events, out)
}

func TestFilterFeedCombinesConditions(t *testing.T) {
	now := time.Now().UnixMilli()
	events := []models.MoodEvent{
		{Mood: models.MoodSadness, Reason: "long day at work", Time: now - 1000},
		{Mood: models.MoodSadness, Reason: "long week", Time: now - 2*RecentWindowMillis},
		{Mood: models.MoodHappiness, Reason: "short day", Time: now - 500},
	}

	out := FilterFeed(events, FeedFilter{Mood: models.MoodSadness, ReasonWord: "day", RecentWeek: true}, now)

	require.Len(t, out, 1)
	assert.Equal(t, "long day at work", out[0].Reason)
}

func TestFilterFeedInactiveReturnsInput(t *testing.T) {
	events := []models.MoodEvent{{Mood: models.MoodDisgust, Time: 1}}

	out := FilterFeed(events, FeedFilter{}, 10)

	assert.Equal(t, events, out)
}
