package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/moodloop/moodloop-backend/internal/database"
	"github.com/moodloop/moodloop-backend/internal/models"
)

const (
	recentMoodKeyPrefix = "feed:user:"
	recentMoodKeySuffix = ":recent"
	recentMoodMaxLen    = feedPublicCap
	recentMoodTTL       = 10 * time.Minute
)

func recentMoodKey(userID string) string {
	return recentMoodKeyPrefix + userID + recentMoodKeySuffix
}

// GetRecentPublicFromCache returns a user's cached recent public events
// (newest-first). Returns (events, true) on hit, (nil, false) on miss.
// An empty cached list is a valid hit for users with no public events.
func GetRecentPublicFromCache(ctx context.Context, userID string) ([]models.MoodEvent, bool) {
	if database.RedisClient == nil {
		return nil, false
	}

	key := recentMoodKey(userID)
	raw, err := database.RedisClient.LRange(ctx, key, 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	events := []models.MoodEvent{}
	for _, item := range raw {
		if item == recentMoodEmptyMarker {
			continue
		}
		var e models.MoodEvent
		if json.Unmarshal([]byte(item), &e) != nil {
			return nil, false
		}
		events = append(events, e)
	}
	return events, true
}

// recentMoodEmptyMarker lets a user with zero public events still produce
// a cache hit, so the feed does not hammer Mongo for quiet accounts.
const recentMoodEmptyMarker = "-"

// WarmRecentPublicCache stores a user's recent public events (newest at
// head). Call after a Mongo fetch during feed assembly.
func WarmRecentPublicCache(ctx context.Context, userID string, events []models.MoodEvent) {
	if database.RedisClient == nil {
		return
	}

	key := recentMoodKey(userID)
	pipe := database.RedisClient.Pipeline()
	pipe.Del(ctx, key)
	if len(events) == 0 {
		pipe.RPush(ctx, key, recentMoodEmptyMarker)
	}
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, 0, recentMoodMaxLen-1)
	pipe.Expire(ctx, key, recentMoodTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("mood_cache: warm failed for user %s: %v", userID, err)
	}
}

// InvalidateRecentPublicCache drops a user's cached feed entries.
// Call after any mood create, update, or delete for that user.
func InvalidateRecentPublicCache(ctx context.Context, userID string) {
	if database.RedisClient == nil {
		return
	}
	if err := database.RedisClient.Del(ctx, recentMoodKey(userID)).Err(); err != nil {
		log.Printf("mood_cache: invalidate failed for user %s: %v", userID, err)
	}
}
