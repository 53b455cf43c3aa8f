package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"tripchat/internal/bus"
	"tripchat/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testMessages(ids ...string) []models.Message {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	out := make([]models.Message, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.Message{
			ID:             id,
			ConversationID: "conv-1",
			SenderRole:     models.RoleCustomer,
			Content:        "hello",
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		})
	}
	return out
}

func TestMessagesChanged(t *testing.T) {
	a := testMessages("m1", "m2")
	b := testMessages("m1", "m2")
	assert.False(t, messagesChanged(a, b))

	assert.True(t, messagesChanged(a, testMessages("m1")))
	assert.True(t, messagesChanged(a, testMessages("m1", "m3")))
	assert.True(t, messagesChanged(nil, testMessages("m1")))
	assert.False(t, messagesChanged(nil, nil))
}

func TestMessageWatcher_KeepsSnapshotWhenUnchanged(t *testing.T) {
	w := NewMessageWatcher(nil, nil, "conv-1", time.Second, discardLogger(), nil)

	w.apply(testMessages("m1", "m2"))
	first := w.Snapshot()
	require.Len(t, first, 2)

	// Same ids in a freshly allocated slice must not replace the snapshot.
	w.apply(testMessages("m1", "m2"))
	second := w.Snapshot()
	assert.Same(t, &first[0], &second[0], "unchanged poll result must preserve snapshot identity")

	w.apply(testMessages("m1", "m2", "m3"))
	third := w.Snapshot()
	assert.Len(t, third, 3)
	assert.NotSame(t, &first[0], &third[0])
}

func TestMessageWatcher_PushMergesAndDeduplicates(t *testing.T) {
	var notified [][]models.Message
	w := NewMessageWatcher(nil, nil, "conv-1", time.Second, discardLogger(), func(msgs []models.Message) {
		notified = append(notified, msgs)
	})
	ctx := context.Background()

	w.apply(testMessages("m1", "m2"))

	early := models.Message{ID: "m0", ConversationID: "conv-1", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	w.pushMessage(ctx, early)

	snap := w.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "m0", snap[0].ID, "pushed message must sort into place by createdAt")

	// Duplicate push is ignored.
	w.pushMessage(ctx, early)
	assert.Len(t, w.Snapshot(), 3)
	assert.Len(t, notified, 2)
}

func TestMessageWatcher_PollsAndReceivesPush(t *testing.T) {
	var mu sync.Mutex
	history := testMessages("m1")
	listed := make(chan struct{}, 8)

	lister := func(ctx context.Context) ([]models.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case listed <- struct{}{}:
		default:
		}
		out := make([]models.Message, len(history))
		copy(out, history)
		return out, nil
	}

	eventBus := bus.New()
	w := NewMessageWatcher(lister, eventBus, "conv-1", time.Hour, discardLogger(), nil)
	w.Start(context.Background())
	defer w.Stop()

	select {
	case <-listed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never polled")
	}

	require.Eventually(t, func() bool {
		return len(w.Snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A published event lands without waiting for the next tick.
	pushed := models.Message{ID: "m2", ConversationID: "conv-1", CreatedAt: time.Now().UTC()}
	eventBus.Publish(bus.Event{Topic: bus.TopicMessageCreated + "conv-1", At: time.Now(), Payload: pushed})

	require.Eventually(t, func() bool {
		return len(w.Snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMessageWatcher_StartStopIdempotent(t *testing.T) {
	lister := func(ctx context.Context) ([]models.Message, error) { return nil, nil }
	w := NewMessageWatcher(lister, nil, "conv-1", time.Hour, discardLogger(), nil)

	w.Start(context.Background())
	w.Start(context.Background())
	w.Stop()
	w.Stop()
}

func testSummaries(unread int, ids ...string) []models.ConversationSummary {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	out := make([]models.ConversationSummary, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.ConversationSummary{
			Conversation: models.Conversation{
				ID:            id,
				Status:        models.ConversationActive,
				LastMessageAt: base.Add(time.Duration(i) * time.Minute),
			},
			Unread: unread,
		})
	}
	return out
}

func TestSummariesChanged(t *testing.T) {
	a := testSummaries(1, "c1", "c2")

	assert.False(t, summariesChanged(a, testSummaries(1, "c1", "c2")))
	assert.True(t, summariesChanged(a, testSummaries(1, "c1")))
	assert.True(t, summariesChanged(a, testSummaries(2, "c1", "c2")), "unread delta must replace the view")

	bumped := testSummaries(1, "c1", "c2")
	bumped[1].LastMessageAt = bumped[1].LastMessageAt.Add(time.Minute)
	assert.True(t, summariesChanged(a, bumped), "lastMessageAt delta must replace the view")

	closed := testSummaries(1, "c1", "c2")
	closed[0].Status = models.ConversationClosed
	assert.True(t, summariesChanged(a, closed))
}

func TestConversationWatcher_EventTriggersRefetch(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	lister := func(ctx context.Context) ([]models.ConversationSummary, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return testSummaries(calls, "c1"), nil
	}

	eventBus := bus.New()
	w := NewConversationWatcher(lister, eventBus, time.Hour, discardLogger(), nil)
	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 1
	}, 2*time.Second, 10*time.Millisecond)

	eventBus.Publish(bus.Event{Topic: bus.TopicConversationUpdated, At: time.Now(), Payload: models.Conversation{ID: "c1"}})

	require.Eventually(t, func() bool {
		snap := w.Snapshot()
		return len(snap) == 1 && snap[0].Unread >= 2
	}, 2*time.Second, 10*time.Millisecond)
}
