package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moodloop/moodloop-backend/internal/database"
)

// Notification event types pushed to connected clients.
const (
	EventFollowRequest  = "follow_request"
	EventFollowAccepted = "follow_accepted"
	EventNewComment     = "new_comment"
)

// NotificationEvent is the payload broadcast over Redis and WebSocket.
// TargetID picks the Redis channel; the remaining fields describe the actor.
type NotificationEvent struct {
	Type          string    `json:"type"`
	TargetID      string    `json:"target_id"`
	ActorID       string    `json:"actor_id,omitempty"`
	ActorUsername string    `json:"actor_username,omitempty"`
	MoodEventID   string    `json:"mood_event_id,omitempty"`
	CommentID     string    `json:"comment_id,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

// NotifyConn is the minimal interface our WebSocket implementation must satisfy.
type NotifyConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// notifyHub is a per-instance registry of connected users. Cross-instance
// delivery goes through Redis pub/sub, so each instance only writes to its
// own sockets.
type notifyHub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]NotifyConn
}

var (
	hub           = &notifyHub{connections: make(map[uuid.UUID]NotifyConn)}
	notifyStarted sync.Once
)

// RegisterNotifyConnection registers or replaces a user's connection.
func RegisterNotifyConnection(userID uuid.UUID, conn NotifyConn) {
	hub.mu.Lock()
	hub.connections[userID] = conn
	hub.mu.Unlock()
}

// UnregisterNotifyConnection removes a user's connection.
func UnregisterNotifyConnection(userID uuid.UUID) {
	hub.mu.Lock()
	delete(hub.connections, userID)
	hub.mu.Unlock()
}

// fanOutNotification writes the event to the target user's local
// connection, if any.
func fanOutNotification(event NotificationEvent) {
	targetID, err := uuid.Parse(event.TargetID)
	if err != nil {
		return
	}

	hub.mu.RLock()
	conn, ok := hub.connections[targetID]
	hub.mu.RUnlock()
	if !ok {
		return
	}

	// Non-blocking best-effort send.
	go func(c NotifyConn) {
		if err := c.WriteJSON(event); err != nil {
			log.Printf("error writing notification to websocket: %v", err)
		}
	}(conn)
}

// StartRedisNotifySubscriber ensures a single shared Redis listener per instance.
func StartRedisNotifySubscriber(ctx context.Context) {
	notifyStarted.Do(func() {
		go runNotifySubscriber(ctx)
	})
}

func runNotifySubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; notify subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, "notify:user:*")
			defer pubsub.Close()

			log.Println("✅ Notification Redis subscriber started (pattern: notify:user:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event NotificationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal notification: %v", err)
					continue
				}

				fanOutNotification(event)
			}
		}()
	}
}

// PublishNotification publishes an event to the target user's Redis channel.
func PublishNotification(ctx context.Context, event NotificationEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := "notify:user:" + event.TargetID
	return database.RedisClient.Publish(ctx, channel, data).Err()
}
