package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifyConn struct {
	written chan interface{}
}

func (f *fakeNotifyConn) WriteJSON(v interface{}) error {
	f.written <- v
	return nil
}

func (f *fakeNotifyConn) Close() error { return nil }

func TestFanOutNotificationDeliversToTarget(t *testing.T) {
	target := uuid.New()
	conn := &fakeNotifyConn{written: make(chan interface{}, 1)}
	RegisterNotifyConnection(target, conn)
	defer UnregisterNotifyConnection(target)

	event := NotificationEvent{
		Type:          EventFollowRequest,
		TargetID:      target.String(),
		ActorUsername: "alice",
	}
	fanOutNotification(event)

	select {
	case got := <-conn.written:
		delivered, ok := got.(NotificationEvent)
		require.True(t, ok)
		assert.Equal(t, EventFollowRequest, delivered.Type)
		assert.Equal(t, "alice", delivered.ActorUsername)
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestFanOutNotificationIgnoresDisconnectedTarget(t *testing.T) {
	target := uuid.New()
	conn := &fakeNotifyConn{written: make(chan interface{}, 1)}
	RegisterNotifyConnection(target, conn)
	UnregisterNotifyConnection(target)

	fanOutNotification(NotificationEvent{Type: EventFollowAccepted, TargetID: target.String()})

	select {
	case <-conn.written:
		t.Fatal("disconnected target should not receive events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFanOutNotificationIgnoresMalformedTargetID(t *testing.T) {
	// Should not panic or deliver anywhere.
	fanOutNotification(NotificationEvent{Type: EventNewComment, TargetID: "not-a-uuid"})
}
