package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/moodloop/moodloop-backend/internal/models"
)

const (
	// feedFetchLimit is how many recent events are pulled per followed user
	// before the public cap is applied.
	feedFetchLimit = 10
	// feedPublicCap is the most public events one followed user contributes.
	feedPublicCap = 3
	// RecentWindowMillis is the "past week" filter window: 7 days in
	// epoch milliseconds.
	RecentWindowMillis int64 = 7 * 24 * 60 * 60 * 1000
)

// finderCollection is the read-only slice of *mongo.Collection the
// aggregator uses.
type finderCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// FeedResult is one assembled feed page.
// FailedUsers counts followed users whose events could not be loaded;
// their entries are simply missing from Events.
type FeedResult struct {
	Events        []models.MoodEvent `json:"events"`
	FollowedCount int                `json:"followed_count"`
	FailedUsers   int                `json:"failed_users,omitempty"`
}

// FeedAggregator assembles the followed-users mood feed. Per followed user
// it pulls the most recent events, keeps a handful of public ones, and
// merges everything into one list sorted newest first. One slow or failing
// user never sinks the whole feed.
type FeedAggregator struct {
	follows        finderCollection
	moods          finderCollection
	lookupUsername func(userID string) (string, error)

	// Optional read-through cache for a user's recent public events.
	getCached func(ctx context.Context, userID string) ([]models.MoodEvent, bool)
	warmCache func(ctx context.Context, userID string, events []models.MoodEvent)
}

// NewFeedAggregator returns an aggregator over the follows and moods
// collections of db, with the Redis recent-moods cache wired in.
func NewFeedAggregator(db *mongo.Database) *FeedAggregator {
	return &FeedAggregator{
		follows:        db.Collection("follows"),
		moods:          db.Collection("moods"),
		lookupUsername: GetUsernameByID,
		getCached:      GetRecentPublicFromCache,
		warmCache:      WarmRecentPublicCache,
	}
}

// LoadFollowedUserIDs returns the IDs of every user that userID follows.
func (a *FeedAggregator) LoadFollowedUserIDs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := a.follows.Find(ctx, bson.M{"follower_id": userID})
	if err != nil {
		return nil, fmt.Errorf("query follows: %w", err)
	}
	defer cursor.Close(ctx)

	var follows []models.Follow
	if err := cursor.All(ctx, &follows); err != nil {
		return nil, fmt.Errorf("decode follows: %w", err)
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowedID)
	}
	return ids, nil
}

// ResolveUsernames looks up all usernames concurrently, one goroutine per
// id writing into its own slot, joined by a WaitGroup. IDs that fail or
// resolve to nothing are left out of the map.
func (a *FeedAggregator) ResolveUsernames(ctx context.Context, ids []string) map[string]string {
	slots := make([]string, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			name, err := a.lookupUsername(id)
			if err != nil {
				log.Printf("⚠️ Username lookup failed for %s: %v", id, err)
				return
			}
			slots[i] = name
		}(i, id)
	}
	wg.Wait()

	names := make(map[string]string, len(ids))
	for i, id := range ids {
		if slots[i] != "" {
			names[id] = slots[i]
		}
	}
	return names
}

// LoadFeed builds the feed for userID: fan out over every followed user,
// collect each one's recent public events, merge and sort newest first.
func (a *FeedAggregator) LoadFeed(ctx context.Context, userID string) (*FeedResult, error) {
	followedIDs, err := a.LoadFollowedUserIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(followedIDs) == 0 {
		return &FeedResult{Events: []models.MoodEvent{}}, nil
	}

	usernames := a.ResolveUsernames(ctx, followedIDs)

	perUser := make([][]models.MoodEvent, len(followedIDs))
	failed := make([]bool, len(followedIDs))
	var wg sync.WaitGroup

	for i, followedID := range followedIDs {
		wg.Add(1)
		go func(i int, followedID string) {
			defer wg.Done()
			events, err := a.loadRecentPublic(ctx, followedID)
			if err != nil {
				log.Printf("⚠️ Feed load failed for followed user %s: %v", followedID, err)
				failed[i] = true
				return
			}
			perUser[i] = events
		}(i, followedID)
	}
	wg.Wait()

	result := &FeedResult{
		Events:        []models.MoodEvent{},
		FollowedCount: len(followedIDs),
	}
	for i, events := range perUser {
		if failed[i] {
			result.FailedUsers++
			continue
		}
		for _, e := range events {
			if name, ok := usernames[e.UserID]; ok {
				e.UserName = name
			}
			result.Events = append(result.Events, e)
		}
	}

	sortEventsByTimeDesc(result.Events)
	return result, nil
}

// loadRecentPublic returns up to feedPublicCap public events from the
// followed user's feedFetchLimit most recent events, newest first.
func (a *FeedAggregator) loadRecentPublic(ctx context.Context, userID string) ([]models.MoodEvent, error) {
	if a.getCached != nil {
		if events, ok := a.getCached(ctx, userID); ok {
			return events, nil
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "time", Value: -1}}).
		SetLimit(feedFetchLimit)
	cursor, err := a.moods.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}
	defer cursor.Close(ctx)

	var recent []models.MoodEvent
	if err := cursor.All(ctx, &recent); err != nil {
		return nil, fmt.Errorf("decode moods: %w", err)
	}

	events := selectPublic(recent, feedPublicCap)
	if a.warmCache != nil {
		a.warmCache(ctx, userID, events)
	}
	return events, nil
}

// LoadUserPublicMoods returns every public event of one user, newest first.
// Used when viewing a single profile: no per-user cap applies.
func (a *FeedAggregator) LoadUserPublicMoods(ctx context.Context, userID string) ([]models.MoodEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}})
	cursor, err := a.moods.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query moods: %w", err)
	}
	defer cursor.Close(ctx)

	var all []models.MoodEvent
	if err := cursor.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode moods: %w", err)
	}

	events := selectPublic(all, 0)
	if name, err := a.lookupUsername(userID); err == nil && name != "" {
		for i := range events {
			events[i].UserName = name
		}
	}
	return events, nil
}

// selectPublic keeps public events in order, stopping at limit (0 = no limit).
func selectPublic(events []models.MoodEvent, limit int) []models.MoodEvent {
	out := []models.MoodEvent{}
	for _, e := range events {
		if !e.IsPublic() {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func sortEventsByTimeDesc(events []models.MoodEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time > events[j].Time
	})
}

// FeedFilter narrows a feed. SeeAll overrides everything else.
// Mood matches by substring, ReasonWord by case-insensitive whole word,
// RecentWeek keeps events from the past 7 days.
type FeedFilter struct {
	Mood       string
	ReasonWord string
	RecentWeek bool
	SeeAll     bool
}

// Active reports whether the filter narrows anything at all.
func (f FeedFilter) Active() bool {
	return !f.SeeAll && (f.Mood != "" || f.ReasonWord != "" || f.RecentWeek)
}

// FilterFeed applies the filter to events and returns the kept ones in
// their original order. now is the current time in epoch milliseconds.
func FilterFeed(events []models.MoodEvent, f FeedFilter, now int64) []models.MoodEvent {
	if !f.Active() {
		return events
	}

	out := []models.MoodEvent{}
	for _, e := range events {
		if f.Mood != "" && !strings.Contains(e.Mood, f.Mood) {
			continue
		}
		if f.ReasonWord != "" && !reasonContainsWord(e.Reason, f.ReasonWord) {
			continue
		}
		if f.RecentWeek && e.Time < now-RecentWindowMillis {
			continue
		}
		out = append(out, e)
	}
	return out
}

// reasonContainsWord splits reason on whitespace and matches the word
// against each token, ignoring case. "sad day" matches "sad" but not "sa".
func reasonContainsWord(reason, word string) bool {
	for _, token := range strings.Fields(reason) {
		if strings.EqualFold(token, word) {
			return true
		}
	}
	return false
}

// EnsureMoodIndexes creates the indexes the mood queries rely on.
func EnsureMoodIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("moods").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "time", Value: -1}}},
	})
	if err != nil {
		return err
	}
	_, err = db.Collection("follows").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "follower_id", Value: 1}, {Key: "followed_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "followed_id", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = db.Collection("follow_requests").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "requester_id", Value: 1}, {Key: "target_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "target_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}
