package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tripchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tripchat.db")
	store, err := New("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func testConversation(id string, lastMessageAt time.Time) *models.Conversation {
	return &models.Conversation{
		ID:            id,
		CustomerRef:   "cust-" + id,
		CustomerName:  "Guest-" + id,
		Status:        models.ConversationActive,
		CreatedAt:     lastMessageAt,
		UpdatedAt:     lastMessageAt,
		LastMessageAt: lastMessageAt,
	}
}

func TestConversationCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateConversation(ctx, testConversation("c1", base)))
	require.NoError(t, store.CreateConversation(ctx, testConversation("c2", base.Add(time.Hour))))

	t.Run("list ordered by recency", func(t *testing.T) {
		convs, err := store.ListConversations(ctx, models.ConversationFilter{})
		require.NoError(t, err)
		require.Len(t, convs, 2)
		assert.Equal(t, "c2", convs[0].ID)
		assert.Equal(t, "c1", convs[1].ID)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		conv, err := store.GetConversation(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, conv)
	})

	t.Run("patch update", func(t *testing.T) {
		name := "Dilani Perera"
		status := models.ConversationClosed
		updated, err := store.UpdateConversation(ctx, "c1", models.ConversationPatch{
			CustomerName: &name,
			Status:       &status,
		})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Dilani Perera", updated.CustomerName)
		assert.Equal(t, models.ConversationClosed, updated.Status)
		// Untouched fields survive
		assert.Equal(t, "cust-c1", updated.CustomerRef)
	})

	t.Run("update missing returns nil", func(t *testing.T) {
		name := "X Y"
		updated, err := store.UpdateConversation(ctx, "nope", models.ConversationPatch{CustomerName: &name})
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("filter by status and assignee", func(t *testing.T) {
		staff := "agent-7"
		_, err := store.UpdateConversation(ctx, "c2", models.ConversationPatch{AssignedTo: &staff})
		require.NoError(t, err)

		convs, err := store.ListConversations(ctx, models.ConversationFilter{
			Status:   models.ConversationActive,
			Assignee: "agent-7",
		})
		require.NoError(t, err)
		require.Len(t, convs, 1)
		assert.Equal(t, "c2", convs[0].ID)
	})
}

func testMessage(id, convID string, role models.SenderRole, at time.Time) *models.Message {
	return &models.Message{
		ID:             id,
		ConversationID: convID,
		SenderName:     "Sender",
		SenderRole:     role,
		Content:        "hello",
		Type:           models.MessageTypeText,
		CreatedAt:      at,
	}
}

func TestMessagesOrderAndReadMarking(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateConversation(ctx, testConversation("c1", base)))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m2", "c1", models.RoleCustomer, base.Add(2*time.Second))))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m1", "c1", models.RoleCustomer, base.Add(time.Second))))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m3", "c1", models.RoleStaff, base.Add(3*time.Second))))

	msgs, err := store.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})

	affected, err := store.MarkMessagesRead(ctx, "c1", nil, base.Add(time.Minute))
	require.NoError(t, err)
	// Only the two customer messages are marked
	assert.Equal(t, int64(2), affected)

	msgs, err = store.ListMessages(ctx, "c1")
	require.NoError(t, err)
	for _, m := range msgs {
		if m.SenderRole == models.RoleCustomer {
			assert.NotNil(t, m.ReadAt, m.ID)
		} else {
			assert.Nil(t, m.ReadAt, m.ID)
		}
	}

	// Second pass is a no-op
	affected, err = store.MarkMessagesRead(ctx, "c1", nil, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestMarkMessagesReadSubset(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateConversation(ctx, testConversation("c1", base)))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m1", "c1", models.RoleCustomer, base.Add(time.Second))))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m2", "c1", models.RoleCustomer, base.Add(2*time.Second))))

	affected, err := store.MarkMessagesRead(ctx, "c1", []string{"m1"}, base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	msgs, err := store.ListMessages(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, msgs[0].ReadAt)
	assert.Nil(t, msgs[1].ReadAt)
}

func TestUnreadCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	assigned := testConversation("c1", base)
	assigned.AssignedTo = "agent-7"
	require.NoError(t, store.CreateConversation(ctx, assigned))
	require.NoError(t, store.CreateConversation(ctx, testConversation("c2", base)))

	closed := testConversation("c3", base)
	closed.Status = models.ConversationClosed
	require.NoError(t, store.CreateConversation(ctx, closed))

	require.NoError(t, store.CreateMessage(ctx, testMessage("m1", "c1", models.RoleCustomer, base)))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m2", "c1", models.RoleCustomer, base)))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m3", "c2", models.RoleCustomer, base)))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m4", "c3", models.RoleCustomer, base)))
	require.NoError(t, store.CreateMessage(ctx, testMessage("m5", "c1", models.RoleStaff, base)))

	t.Run("admin sees all active conversations", func(t *testing.T) {
		count, err := store.CountUnread(ctx, models.UnreadFilter{Role: models.RoleAdmin})
		require.NoError(t, err)
		// c3 is closed, m5 is staff-authored
		assert.Equal(t, 3, count)
	})

	t.Run("staff sees only assigned conversations", func(t *testing.T) {
		count, err := store.CountUnread(ctx, models.UnreadFilter{Role: models.RoleStaff, Assignee: "agent-7"})
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = store.CountUnread(ctx, models.UnreadFilter{Role: models.RoleStaff, Assignee: "agent-9"})
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("per-conversation breakdown", func(t *testing.T) {
		byConv, err := store.UnreadByConversation(ctx, models.UnreadFilter{Role: models.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"c1": 2, "c2": 1}, byConv)
	})
}
