package bus

import "time"

// Topic prefixes used across the chat subsystem. Message topics carry the
// conversation id as a suffix so a viewer can subscribe to a single thread.
const (
	TopicMessageCreated      = "message.created."
	TopicConversationCreated = "conversation.created"
	TopicConversationUpdated = "conversation.updated"
	TopicConversationPrefix  = "conversation."
)

// Event is a best-effort live-insert notification. Push delivery is never
// authoritative: the poller re-derives true state every tick, so a dropped
// event costs at most one poll interval of latency.
type Event struct {
	Topic   string
	At      time.Time
	Payload interface{}
}
