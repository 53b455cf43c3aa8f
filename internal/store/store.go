// Package store provides the dual-backend persistence abstraction: every
// operation tries the primary structured store first and falls back to the
// local file-backed mirror. Primary degradation is invisible to callers.
package store

import (
	"context"
	"time"

	apperrors "tripchat/internal/errors"
	"tripchat/internal/metrics"
	"tripchat/internal/models"

	"github.com/sirupsen/logrus"
)

// Backend is the uniform contract both the primary SQL store and the file
// fallback implement. No delete is exposed; records are never hard-deleted.
type Backend interface {
	ListConversations(ctx context.Context, filter models.ConversationFilter) ([]models.Conversation, error)
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	UpdateConversation(ctx context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	MarkMessagesRead(ctx context.Context, conversationID string, messageIDs []string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, f models.UnreadFilter) (int, error)
	UnreadByConversation(ctx context.Context, f models.UnreadFilter) (map[string]int, error)
}

// PrimaryProvider hands out a live primary backend. It returns (nil, nil)
// while the primary is unconfigured, which is an expected mode rather than a
// failure, and an error when the primary is configured but cannot be reached.
// It is invoked on every call so configuration changes take effect
// immediately.
type PrimaryProvider func(ctx context.Context) (Backend, error)

// DualStore routes each call to the primary when available, otherwise to the
// fallback. Writes are at-least-once: a primary write that partially succeeds
// and is retried via the fallback may leave a duplicate record. That gap is
// logged and accepted; reconciling the two backends is an extension point,
// not an inline concern.
type DualStore struct {
	primary  PrimaryProvider
	fallback Backend
	logger   *apperrors.Logger
}

func NewDualStore(primary PrimaryProvider, fallback Backend, logger *logrus.Logger) *DualStore {
	return &DualStore{
		primary:  primary,
		fallback: fallback,
		logger:   apperrors.NewLogger(logger),
	}
}

// acquirePrimary returns the primary backend or nil when the call should go
// straight to the fallback.
func (s *DualStore) acquirePrimary(ctx context.Context, op string) Backend {
	p, err := s.primary(ctx)
	if err != nil {
		s.notePrimaryFailure(op, apperrors.NewTransientBackendError(op, err))
		return nil
	}
	if p == nil {
		// Unconfigured primary is the expected degraded mode.
		s.logger.WithField("operation", op).Debug("Primary store not configured, using fallback")
		return nil
	}
	return p
}

func (s *DualStore) notePrimaryFailure(op string, err error) {
	s.logger.LogWarn(err, "Primary store failed, falling back to file store",
		logrus.Fields{"operation": op})
	metrics.IncrementCounter("store_fallback_activations",
		map[string]string{"operation": op},
		"Operations served by the fallback store after a primary failure")
}

func (s *DualStore) ListConversations(ctx context.Context, filter models.ConversationFilter) ([]models.Conversation, error) {
	const op = "list_conversations"
	if p := s.acquirePrimary(ctx, op); p != nil {
		out, err := p.ListConversations(ctx, filter)
		if err == nil {
			return out, nil
		}
		s.notePrimaryFailure(op, err)
	}
	return s.fallback.ListConversations(ctx, filter)
}

func (s *DualStore) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	const op = "get_conversation"
	if p := s.acquirePrimary(ctx, op); p != nil {
		conv, err := p.GetConversation(ctx, id)
		if err == nil {
			return conv, nil
		}
		s.notePrimaryFailure(op, err)
	}
	return s.fallback.GetConversation(ctx, id)
}

func (s *DualStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	const op = "create_conversation"
	if p := s.acquirePrimary(ctx, op); p != nil {
		if err := p.CreateConversation(ctx, conv); err == nil {
			return nil
		} else {
			s.notePrimaryFailure(op, err)
		}
	}
	return s.fallback.CreateConversation(ctx, conv)
}

func (s *DualStore) UpdateConversation(ctx context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error) {
	const op = "update_conversation"
	if p := s.acquirePrimary(ctx, op); p != nil {
		updated, err := p.UpdateConversation(ctx, id, patch)
		if err == nil {
			return updated, nil
		}
		s.notePrimaryFailure(op, err)
	}
	return s.fallback.UpdateConversation(ctx, id, patch)
}

func (s *DualStore) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	const op = "list_messages"
	if p := s.acquirePrimary(ctx, op); p != nil {
		out, err := p.ListMessages(ctx, conversationID)
		if err == nil {
			return out, nil
		}
		s.notePrimaryFailure(op, err)
	}
	return s.fallback.ListMessages(ctx, conversationID)
}

func (s *DualStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	const op = "create_message"
	if p := s.acquirePrimary(ctx, op); p != nil {
		if err := p.CreateMessage(ctx, msg); err == nil {
			return nil
		} else {
			s.notePrimaryFailure(op, err)
		}
	}
	return s.fallback.CreateMessage(ctx, msg)
}

func (s *DualStore) MarkMessagesRead(ctx context.Context, conversationID string, messageIDs []string, at time.Time) (int64, error) {
	const op = "mark_messages_read"
	if p := s.acquirePrimary(ctx, op); p != nil {
		affected, err := p.MarkMessagesRead(ctx, conversationID, messageIDs, at)
		if err == nil {
			return affected, nil
		}
		s.notePrimaryFailure(op, err)
	}
	return s.fallback.MarkMessagesRead(ctx, conversationID, messageIDs, at)
}

func (s *DualStore) CountUnread(ctx context.Context, f models.UnreadFilter) (int, error) {
	const op = "count_unread"
	if p := s.acquirePrimary(ctx, op); p != nil {
		count, err := p.CountUnread(ctx, f)
		if err == nil {
			return count, nil
		}
		s.notePrimaryFailure(op, err)
	}
	return s.fallback.CountUnread(ctx, f)
}

func (s *DualStore) UnreadByConversation(ctx context.Context, f models.UnreadFilter) (map[string]int, error) {
	const op = "unread_by_conversation"
	if p := s.acquirePrimary(ctx, op); p != nil {
		out, err := p.UnreadByConversation(ctx, f)
		if err == nil {
			return out, nil
		}
		s.notePrimaryFailure(op, err)
	}
	return s.fallback.UnreadByConversation(ctx, f)
}
