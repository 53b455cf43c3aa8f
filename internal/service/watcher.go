package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"tripchat/internal/bus"
	"tripchat/internal/models"
	"tripchat/internal/retry"

	"github.com/sirupsen/logrus"
)

// MessageLister fetches the current message history for a watched
// conversation.
type MessageLister func(ctx context.Context) ([]models.Message, error)

// ConversationLister fetches the current conversation summaries for a
// watched caller view.
type ConversationLister func(ctx context.Context) ([]models.ConversationSummary, error)

// MessageWatcher keeps a client view of one conversation's messages fresh.
// Polling is the source of truth; bus events supplement it so new messages
// appear without waiting for the next tick. The snapshot slice is replaced
// only when the fetched history actually differs, so consumers can use slice
// identity to skip redundant re-renders.
type MessageWatcher struct {
	list     MessageLister
	bus      *bus.Bus
	convID   string
	interval time.Duration
	backoff  *retry.Backoff
	logger   *logrus.Logger
	onChange func([]models.Message)

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	snapshot []models.Message
}

func NewMessageWatcher(list MessageLister, eventBus *bus.Bus, conversationID string, interval time.Duration, logger *logrus.Logger, onChange func([]models.Message)) *MessageWatcher {
	return &MessageWatcher{
		list:     list,
		bus:      eventBus,
		convID:   conversationID,
		interval: interval,
		backoff:  retry.NewBackoff(retry.DefaultBackoffConfig()),
		logger:   logger,
		onChange: onChange,
	}
}

// UseBackoff replaces the default fetch retry policy. Must be called before
// Start.
func (w *MessageWatcher) UseBackoff(cfg retry.BackoffConfig) {
	w.backoff = retry.NewBackoff(cfg)
}

// Start begins polling and subscribes for push events. Safe to call once;
// subsequent calls are no-ops until Stop.
func (w *MessageWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	var events <-chan bus.Event
	var unsubscribe func()
	if w.bus != nil {
		events, unsubscribe = w.bus.Subscribe(bus.TopicMessageCreated+w.convID, 16)
	}

	w.wg.Add(1)
	go w.run(runCtx, events, unsubscribe)
}

// Stop halts polling and waits for in-flight work to finish. Results that
// arrive after Stop are discarded.
func (w *MessageWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// Snapshot returns the current message view. The same slice is returned until
// the view changes.
func (w *MessageWatcher) Snapshot() []models.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

func (w *MessageWatcher) run(ctx context.Context, events <-chan bus.Event, unsubscribe func()) {
	defer w.wg.Done()
	if unsubscribe != nil {
		defer unsubscribe()
	}

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if msg, isMsg := evt.Payload.(models.Message); isMsg {
				w.pushMessage(ctx, msg)
			}
		}
	}
}

func (w *MessageWatcher) tick(ctx context.Context) {
	var latest []models.Message
	err := w.backoff.Retry(ctx, func() error {
		var listErr error
		latest, listErr = w.list(ctx)
		return listErr
	})
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WithError(err).WithField("conversation_id", w.convID).Warn("Message poll failed, keeping previous view")
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	w.apply(latest)
}

// apply replaces the snapshot only when the poll result differs from it.
func (w *MessageWatcher) apply(latest []models.Message) {
	w.mu.Lock()
	if !messagesChanged(w.snapshot, latest) {
		w.mu.Unlock()
		return
	}
	w.snapshot = latest
	notify := w.onChange
	w.mu.Unlock()

	if notify != nil {
		notify(latest)
	}
}

// pushMessage folds a bus-delivered message into the view between polls. The
// next tick reconciles against the store regardless.
func (w *MessageWatcher) pushMessage(ctx context.Context, msg models.Message) {
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	for i := range w.snapshot {
		if w.snapshot[i].ID == msg.ID {
			w.mu.Unlock()
			return
		}
	}
	merged := make([]models.Message, 0, len(w.snapshot)+1)
	merged = append(merged, w.snapshot...)
	merged = append(merged, msg)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	w.snapshot = merged
	notify := w.onChange
	w.mu.Unlock()

	if notify != nil {
		notify(merged)
	}
}

// messagesChanged reports whether latest differs from prev by size or by
// containing a message id prev lacks. Message content never changes after the
// write; readAt does, but message views do not render read receipts, so a
// readAt-only delta keeps the previous snapshot until membership changes.
func messagesChanged(prev, latest []models.Message) bool {
	if len(prev) != len(latest) {
		return true
	}
	known := make(map[string]struct{}, len(prev))
	for i := range prev {
		known[prev[i].ID] = struct{}{}
	}
	for i := range latest {
		if _, ok := known[latest[i].ID]; !ok {
			return true
		}
	}
	return false
}

// ConversationWatcher keeps a conversation-list view fresh the same way.
// Conversation events carry no unread counts, so pushes trigger an early
// refetch instead of an in-place merge.
type ConversationWatcher struct {
	list     ConversationLister
	bus      *bus.Bus
	interval time.Duration
	backoff  *retry.Backoff
	logger   *logrus.Logger
	onChange func([]models.ConversationSummary)

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	snapshot []models.ConversationSummary
}

func NewConversationWatcher(list ConversationLister, eventBus *bus.Bus, interval time.Duration, logger *logrus.Logger, onChange func([]models.ConversationSummary)) *ConversationWatcher {
	return &ConversationWatcher{
		list:     list,
		bus:      eventBus,
		interval: interval,
		backoff:  retry.NewBackoff(retry.DefaultBackoffConfig()),
		logger:   logger,
		onChange: onChange,
	}
}

// UseBackoff replaces the default fetch retry policy. Must be called before
// Start.
func (w *ConversationWatcher) UseBackoff(cfg retry.BackoffConfig) {
	w.backoff = retry.NewBackoff(cfg)
}

func (w *ConversationWatcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	var events <-chan bus.Event
	var unsubscribe func()
	if w.bus != nil {
		events, unsubscribe = w.bus.Subscribe(bus.TopicConversationPrefix, 16)
	}

	w.wg.Add(1)
	go w.run(runCtx, events, unsubscribe)
}

func (w *ConversationWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *ConversationWatcher) Snapshot() []models.ConversationSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

func (w *ConversationWatcher) run(ctx context.Context, events <-chan bus.Event, unsubscribe func()) {
	defer w.wg.Done()
	if unsubscribe != nil {
		defer unsubscribe()
	}

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.tick(ctx)
		}
	}
}

func (w *ConversationWatcher) tick(ctx context.Context) {
	var latest []models.ConversationSummary
	err := w.backoff.Retry(ctx, func() error {
		var listErr error
		latest, listErr = w.list(ctx)
		return listErr
	})
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WithError(err).Warn("Conversation poll failed, keeping previous view")
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	if !summariesChanged(w.snapshot, latest) {
		w.mu.Unlock()
		return
	}
	w.snapshot = latest
	notify := w.onChange
	w.mu.Unlock()

	if notify != nil {
		notify(latest)
	}
}

// summariesChanged checks size, id membership, and the mutable fields list
// views render from.
func summariesChanged(prev, latest []models.ConversationSummary) bool {
	if len(prev) != len(latest) {
		return true
	}
	known := make(map[string]models.ConversationSummary, len(prev))
	for i := range prev {
		known[prev[i].ID] = prev[i]
	}
	for i := range latest {
		old, ok := known[latest[i].ID]
		if !ok {
			return true
		}
		if !old.LastMessageAt.Equal(latest[i].LastMessageAt) || old.Unread != latest[i].Unread {
			return true
		}
		if old.Status != latest[i].Status || old.CustomerName != latest[i].CustomerName || old.AssignedTo != latest[i].AssignedTo {
			return true
		}
	}
	return false
}
