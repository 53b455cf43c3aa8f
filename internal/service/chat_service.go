package service

import (
	"context"
	"strings"
	"time"

	"tripchat/internal/bus"
	"tripchat/internal/constants"
	apperrors "tripchat/internal/errors"
	"tripchat/internal/metrics"
	"tripchat/internal/models"
	"tripchat/internal/privacy"
	"tripchat/internal/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the persistence contract the chat service runs against, satisfied
// by the dual-backend store.
type Store interface {
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

// UnreadCache is an optional read-through cache for unread totals.
type UnreadCache interface {
	Get(ctx context.Context, caller models.Caller) (int, bool)
	Set(ctx context.Context, caller models.Caller, count int)
	Invalidate(ctx context.Context)
}

// ChatService implements the conversation lifecycle, the inbound message
// pipeline, and read-state tracking.
type ChatService struct {
	store     Store
	bus       *bus.Bus
	cache     UnreadCache
	agentName string
	logger    *logrus.Logger
	now       func() time.Time
}

func NewChatService(store Store, eventBus *bus.Bus, cache UnreadCache, agentName string, logger *logrus.Logger) *ChatService {
	return &ChatService{
		store:     store,
		bus:       eventBus,
		cache:     cache,
		agentName: agentName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChatService) publish(topic string, payload interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{Topic: topic, At: s.now(), Payload: payload})
}

// CreateConversationRequest carries the customer identity fields supplied by
// the widget's session layer.
type CreateConversationRequest struct {
	CustomerRef   string `json:"customerRef"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
}

// CreateConversation returns the customer's existing non-archived
// conversation when one exists, enforcing one active conversation per
// customer, and creates a fresh one otherwise.
func (s *ChatService) CreateConversation(ctx context.Context, req CreateConversationRequest) (*models.Conversation, error) {
	if req.CustomerPhone != "" {
		if err := validation.ValidatePhoneNumber(req.CustomerPhone); err != nil {
			return nil, err
		}
	}
	if req.CustomerName != "" {
		if err := validation.ValidateSenderName(req.CustomerName); err != nil {
			return nil, err
		}
	}

	if req.CustomerRef != "" {
		if err := validation.ValidateStringLength(req.CustomerRef, "customerRef", 1, 128); err != nil {
			return nil, err
		}
		existing, err := s.store.ListConversations(ctx, models.ConversationFilter{CustomerRef: req.CustomerRef})
		if err != nil {
			return nil, err
		}
		for i := range existing {
			if existing[i].Status != models.ConversationArchived {
				return &existing[i], nil
			}
		}
	}

	now := s.now()
	conv := &models.Conversation{
		ID:            uuid.NewString(),
		CustomerRef:   req.CustomerRef,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Status:        models.ConversationActive,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastMessageAt: now,
	}
	if conv.CustomerName == "" {
		conv.CustomerName = guestName(conv.ID)
	}

	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, err
	}

	metrics.IncrementCounter("chat_conversations_created", nil, "Conversations created")
	s.logger.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"customer_ref":    privacy.MaskCustomerRef(conv.CustomerRef),
		"customer_phone":  privacy.MaskPhoneNumber(conv.CustomerPhone),
		"customer_email":  privacy.MaskEmail(conv.CustomerEmail),
	}).Info("Conversation created")
	s.publish(bus.TopicConversationCreated, *conv)
	return conv, nil
}

// guestName builds a placeholder customer name pending real-name capture.
func guestName(conversationID string) string {
	suffix := conversationID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return constants.GuestNamePrefix + "-" + suffix
}

// ListConversations applies role-scoped visibility on top of the requested
// filter: staff see only their assigned conversations, customers only their
// own, admins everything.
func (s *ChatService) ListConversations(ctx context.Context, caller models.Caller, filter models.ConversationFilter) ([]models.Conversation, error) {
	switch caller.Role {
	case models.RoleStaff:
		filter.Assignee = caller.ID
	case models.RoleCustomer:
		filter.CustomerRef = caller.ID
	}
	return s.store.ListConversations(ctx, filter)
}

// ListConversationSummaries returns the role-scoped conversation list with
// per-conversation unread counts, the shape list views poll and diff on.
func (s *ChatService) ListConversationSummaries(ctx context.Context, caller models.Caller, filter models.ConversationFilter) ([]models.ConversationSummary, error) {
	convs, err := s.ListConversations(ctx, caller, filter)
	if err != nil {
		return nil, err
	}

	var unread map[string]int
	if caller.Role == models.RoleAdmin || caller.Role == models.RoleStaff {
		unread, err = s.store.UnreadByConversation(ctx, models.UnreadFilter{Role: caller.Role, Assignee: caller.ID})
		if err != nil {
			return nil, err
		}
	}

	out := make([]models.ConversationSummary, 0, len(convs))
	for i := range convs {
		out = append(out, models.ConversationSummary{
			Conversation: convs[i],
			Unread:       unread[convs[i].ID],
		})
	}
	return out, nil
}

func (s *ChatService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperrors.NewNotFoundError("conversation", id)
	}
	return conv, nil
}

// UpdateConversation applies an explicit partial update. Archived is
// terminal: no further status transition is accepted.
func (s *ChatService) UpdateConversation(ctx context.Context, id string, patch models.ConversationPatch) (*models.Conversation, error) {
	current, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		if current.Status == models.ConversationArchived {
			return nil, apperrors.NewValidationError("status", "archived conversations cannot change status")
		}
		switch *patch.Status {
		case models.ConversationActive, models.ConversationClosed, models.ConversationArchived:
		default:
			return nil, apperrors.NewValidationError("status", "unknown conversation status")
		}
	}

	now := s.now()
	patch.UpdatedAt = &now
	updated, err := s.store.UpdateConversation(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NewNotFoundError("conversation", id)
	}

	s.publish(bus.TopicConversationUpdated, *updated)
	s.invalidateUnread(ctx)
	return updated, nil
}

// CloseConversation is the explicit staff/admin close action.
func (s *ChatService) CloseConversation(ctx context.Context, id string) (*models.Conversation, error) {
	status := models.ConversationClosed
	return s.UpdateConversation(ctx, id, models.ConversationPatch{Status: &status})
}

// ArchiveConversation is an administrative action; archived is terminal.
func (s *ChatService) ArchiveConversation(ctx context.Context, id string, caller models.Caller) (*models.Conversation, error) {
	if caller.Role != models.RoleAdmin {
		return nil, apperrors.NewValidationError("role", "only admins may archive conversations")
	}
	status := models.ConversationArchived
	return s.UpdateConversation(ctx, id, models.ConversationPatch{Status: &status})
}

// AssignConversation sets the staff member a conversation is visible to.
func (s *ChatService) AssignConversation(ctx context.Context, id, staffID string) (*models.Conversation, error) {
	return s.UpdateConversation(ctx, id, models.ConversationPatch{AssignedTo: &staffID})
}

// CreateMessageRequest is one inbound message from either party.
type CreateMessageRequest struct {
	ConversationID string             `json:"conversationId"`
	SenderRef      string             `json:"senderRef"`
	SenderName     string             `json:"senderName"`
	SenderRole     models.SenderRole  `json:"senderRole"`
	Content        string             `json:"content"`
	Type           models.MessageType `json:"type"`
}

// MessageResult is the pipeline output: the created message plus flags that
// let callers refresh dependent views without a second round trip.
type MessageResult struct {
	Message     models.Message `json:"message"`
	WelcomeSent bool           `json:"welcomeSent"`
	NameUpdated bool           `json:"nameUpdated"`
}

// CreateMessage runs the inbound pipeline: validate, resolve, reopen if
// closed, persist, and apply the first-contact automation (welcome message,
// name extraction). Automation failures are logged and swallowed; they never
// block the primary write.
func (s *ChatService) CreateMessage(ctx context.Context, req CreateMessageRequest) (*MessageResult, error) {
	if err := validateMessageRequest(&req); err != nil {
		return nil, err
	}

	conv, err := s.GetConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}

	// Any new message reopens a closed conversation.
	if conv.Status == models.ConversationClosed {
		now := s.now()
		status := models.ConversationActive
		reopened, err := s.store.UpdateConversation(ctx, conv.ID, models.ConversationPatch{
			Status:    &status,
			UpdatedAt: &now,
		})
		if err != nil {
			return nil, err
		}
		if reopened != nil {
			conv = reopened
		}
		metrics.IncrementCounter("chat_conversations_reopened", nil, "Closed conversations reopened by a new message")
	}

	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderRef:      req.SenderRef,
		SenderName:     strings.TrimSpace(req.SenderName),
		SenderRole:     req.SenderRole,
		Content:        req.Content,
		Type:           req.Type,
		CreatedAt:      s.now(),
	}

	// First-contact decisions need the history as it was before this message
	// is persisted. Any failure here downgrades to no automation.
	sendWelcome, extractedName := s.planAutomation(ctx, conv, &req)

	if err := s.store.CreateMessage(ctx, &msg); err != nil {
		return nil, err
	}
	metrics.IncrementCounter("chat_messages_created",
		map[string]string{"role": string(msg.SenderRole)}, "Messages created")
	s.publish(bus.TopicMessageCreated+conv.ID, msg)

	result := &MessageResult{Message: msg}
	lastMessageAt := msg.CreatedAt

	if sendWelcome {
		welcome, err := s.sendWelcomeMessage(ctx, conv, msg.CreatedAt)
		if err != nil {
			s.logHeuristic(apperrors.NewHeuristicFailure("welcome_dispatch", err), conv.ID)
		} else {
			result.WelcomeSent = true
			lastMessageAt = welcome.CreatedAt
		}
	}

	if extractedName != "" {
		if _, err := s.store.UpdateConversation(ctx, conv.ID, models.ConversationPatch{CustomerName: &extractedName}); err != nil {
			s.logHeuristic(apperrors.NewHeuristicFailure("name_extraction", err), conv.ID)
		} else {
			result.NameUpdated = true
			metrics.IncrementCounter("chat_names_extracted", nil, "Customer names captured by extraction")
			s.logger.WithFields(logrus.Fields{
				"conversation_id": conv.ID,
				"customer_name":   privacy.MaskCustomerName(extractedName),
			}).Info("Customer name captured")
		}
	}

	// Bump activity metadata last. Readers must tolerate the window where the
	// message exists but lastMessageAt is still behind.
	if updated, err := s.store.UpdateConversation(ctx, conv.ID, models.ConversationPatch{
		LastMessageAt: &lastMessageAt,
		UpdatedAt:     &lastMessageAt,
	}); err != nil {
		s.logger.WithError(err).WithField("conversation_id", conv.ID).Warn("Failed to update conversation activity metadata")
	} else if updated != nil {
		s.publish(bus.TopicConversationUpdated, *updated)
	}

	if msg.SenderRole == models.RoleCustomer {
		s.invalidateUnread(ctx)
	}
	return result, nil
}

func validateMessageRequest(req *CreateMessageRequest) error {
	if strings.TrimSpace(req.ConversationID) == "" {
		return apperrors.NewValidationError("conversationId", "conversation id is required")
	}
	if err := validation.ValidateSenderName(req.SenderName); err != nil {
		return err
	}
	if err := validation.ValidateMessageContent(req.Content); err != nil {
		return err
	}
	switch req.SenderRole {
	case models.RoleAdmin, models.RoleStaff, models.RoleCustomer:
	default:
		return apperrors.NewValidationError("senderRole", "unknown sender role")
	}
	if req.Type == "" {
		req.Type = models.MessageTypeText
	}
	return nil
}

// planAutomation decides, from the pre-write history, whether this message
// triggers the welcome greeting and whether a customer name can be extracted.
func (s *ChatService) planAutomation(ctx context.Context, conv *models.Conversation, req *CreateMessageRequest) (sendWelcome bool, extractedName string) {
	if req.SenderRole != models.RoleCustomer {
		return false, ""
	}

	history, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		s.logHeuristic(apperrors.NewHeuristicFailure("history_lookup", err), conv.ID)
		return false, ""
	}

	priorCustomerMessages := 0
	for i := range history {
		if history[i].SenderRole == models.RoleCustomer {
			priorCustomerMessages++
		}
	}
	sendWelcome = priorCustomerMessages == 0

	prompted := len(history) > 0 && isNamePrompt(history[len(history)-1].Content)
	if IsGenericName(conv.CustomerName) || prompted {
		if name, ok := ExtractName(req.Content, prompted); ok {
			extractedName = name
		}
	}
	return sendWelcome, extractedName
}

// sendWelcomeMessage synthesizes the system greeting with a createdAt
// strictly after the triggering message.
func (s *ChatService) sendWelcomeMessage(ctx context.Context, conv *models.Conversation, after time.Time) (*models.Message, error) {
	createdAt := s.now()
	if !createdAt.After(after) {
		createdAt = after.Add(time.Millisecond)
	}

	welcome := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderName:     s.agentName,
		SenderRole:     models.RoleStaff,
		Content:        constants.WelcomeMessage,
		Type:           models.MessageTypeSystem,
		CreatedAt:      createdAt,
	}
	if err := s.store.CreateMessage(ctx, &welcome); err != nil {
		return nil, err
	}

	metrics.IncrementCounter("chat_welcome_messages_sent", nil, "Welcome messages synthesized")
	s.publish(bus.TopicMessageCreated+conv.ID, welcome)
	return &welcome, nil
}

func (s *ChatService) logHeuristic(err error, conversationID string) {
	s.logger.WithError(err).WithField("conversation_id", conversationID).Warn("Message automation failed, continuing without it")
	metrics.IncrementCounter("chat_heuristic_failures", nil, "Swallowed automation failures")
}

// GetConversationFor resolves a conversation and applies role-scoped
// visibility: staff see only conversations assigned to them, customers only
// their own. Hidden conversations are indistinguishable from absent ones.
func (s *ChatService) GetConversationFor(ctx context.Context, caller models.Caller, id string) (*models.Conversation, error) {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case models.RoleStaff:
		if conv.AssignedTo != caller.ID {
			return nil, apperrors.NewNotFoundError("conversation", id)
		}
	case models.RoleCustomer:
		if conv.CustomerRef != caller.ID {
			return nil, apperrors.NewNotFoundError("conversation", id)
		}
	}
	return conv, nil
}

func (s *ChatService) ListMessages(ctx context.Context, caller models.Caller, conversationID string) ([]models.Message, error) {
	if _, err := s.GetConversationFor(ctx, caller, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

// MarkMessagesRead sets readAt on all currently-unread customer messages in
// the conversation, optionally restricted to messageIDs, and returns how many
// were affected.
func (s *ChatService) MarkMessagesRead(ctx context.Context, caller models.Caller, conversationID string, messageIDs []string) (int64, error) {
	if _, err := s.GetConversationFor(ctx, caller, conversationID); err != nil {
		return 0, err
	}

	affected, err := s.store.MarkMessagesRead(ctx, conversationID, messageIDs, s.now())
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.invalidateUnread(ctx)
	}
	return affected, nil
}

// UnreadCount returns the number of unread customer messages visible to the
// caller: all active conversations for admins, assigned ones for staff.
func (s *ChatService) UnreadCount(ctx context.Context, caller models.Caller) (int, error) {
	if caller.Role != models.RoleAdmin && caller.Role != models.RoleStaff {
		return 0, apperrors.NewValidationError("role", "unread counts are only available to staff and admin callers")
	}

	if s.cache != nil {
		if count, ok := s.cache.Get(ctx, caller); ok {
			return count, nil
		}
	}

	count, err := s.store.CountUnread(ctx, models.UnreadFilter{Role: caller.Role, Assignee: caller.ID})
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, caller, count)
	}
	return count, nil
}

func (s *ChatService) invalidateUnread(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
