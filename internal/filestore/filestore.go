// Package filestore is the local file-backed mirror used when the primary
// store is unreachable or unconfigured. Each collection is a single JSON array
// rewritten in full on every mutation; there is no file locking, which is an
// accepted risk of degraded-mode operation.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	apperrors "tripchat/internal/errors"
	"tripchat/internal/models"
)

const (
	conversationsFile = "conversations.json"
	messagesFile      = "messages.json"
)

// Store reads and rewrites the two collection files under Dir.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, apperrors.NewConfigError("fallback.dir", "fallback directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, apperrors.NewFallbackIOError("init", err)
	}
	return &Store{dir: dir}, nil
}

func readCollection[T any](path, op string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewFallbackIOError(op, err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewFallbackIOError(op, fmt.Errorf("corrupt collection file %s: %w", filepath.Base(path), err))
	}
	return records, nil
}

func writeCollection[T any](path, op string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return apperrors.NewFallbackIOError(op, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return apperrors.NewFallbackIOError(op, err)
	}
	return nil
}

func (s *Store) conversations(op string) ([]models.Conversation, error) {
	return readCollection[models.Conversation](filepath.Join(s.dir, conversationsFile), op)
}

func (s *Store) messages(op string) ([]models.Message, error) {
	return readCollection[models.Message](filepath.Join(s.dir, messagesFile), op)
}

func (s *Store) ListConversations(ctx context.Context, filter models.ConversationFilter) ([]models.Conversation, error) {
	all, err := s.conversations("list_conversations")
	if err != nil {
		return nil, err
	}

	var out []models.Conversation
	for i := range all {
		if filter.Matches(&all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out, nil
}

// GetConversation returns nil, nil when no conversation has the given id.
func (s *Store) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	all, err := s.conversations("get_conversation")
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			c := all[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	all, err := s.conversations("create_conversation")
	if err != nil {
		return err
	}
	all = append(all, *conv)
	return writeCollection(filepath.Join(s.dir, conversationsFile), "create_conversation", all)
}

func (s *Store) UpdateConversation(ctx context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error) {
	all, err := s.conversations("update_conversation")
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		patch.Apply(&all[i])
		updated := all[i]
		if err := writeCollection(filepath.Join(s.dir, conversationsFile), "update_conversation", all); err != nil {
			return nil, err
		}
		return &updated, nil
	}
	return nil, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	all, err := s.messages("list_messages")
	if err != nil {
		return nil, err
	}

	var out []models.Message
	for i := range all {
		if all[i].ConversationID == conversationID {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	all, err := s.messages("create_message")
	if err != nil {
		return err
	}
	all = append(all, *msg)
	return writeCollection(filepath.Join(s.dir, messagesFile), "create_message", all)
}

func (s *Store) MarkMessagesRead(ctx context.Context, conversationID string, messageIDs []string, at time.Time) (int64, error) {
	all, err := s.messages("mark_messages_read")
	if err != nil {
		return 0, err
	}

	idSet := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		idSet[id] = true
	}

	var affected int64
	for i := range all {
		m := &all[i]
		if m.ConversationID != conversationID || m.SenderRole != models.RoleCustomer || m.ReadAt != nil {
			continue
		}
		if len(idSet) > 0 && !idSet[m.ID] {
			continue
		}
		readAt := at
		m.ReadAt = &readAt
		affected++
	}

	if affected == 0 {
		return 0, nil
	}
	if err := writeCollection(filepath.Join(s.dir, messagesFile), "mark_messages_read", all); err != nil {
		return 0, err
	}
	return affected, nil
}

// visibleConversations maps conversation id -> visibility for the unread filter.
func (s *Store) visibleConversations(f models.UnreadFilter, op string) (map[string]bool, error) {
	convs, err := s.conversations(op)
	if err != nil {
		return nil, err
	}
	visible := make(map[string]bool, len(convs))
	for i := range convs {
		c := &convs[i]
		if c.Status != models.ConversationActive {
			continue
		}
		if f.Role == models.RoleStaff && c.AssignedTo != f.Assignee {
			continue
		}
		visible[c.ID] = true
	}
	return visible, nil
}

func (s *Store) CountUnread(ctx context.Context, f models.UnreadFilter) (int, error) {
	byConv, err := s.UnreadByConversation(ctx, f)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range byConv {
		total += n
	}
	return total, nil
}

func (s *Store) UnreadByConversation(ctx context.Context, f models.UnreadFilter) (map[string]int, error) {
	visible, err := s.visibleConversations(f, "unread_by_conversation")
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages("unread_by_conversation")
	if err != nil {
		return nil, err
	}

	out := make(map[string]int)
	for i := range msgs {
		m := &msgs[i]
		if m.SenderRole == models.RoleCustomer && m.ReadAt == nil && visible[m.ConversationID] {
			out[m.ConversationID]++
		}
	}
	return out, nil
}
