package models

import "time"

type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationClosed   ConversationStatus = "closed"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is a support thread between one customer and staff/admin.
// A conversation is never hard-deleted; archived is a terminal state reached
// only through explicit administrative action.
type Conversation struct {
	ID            string             `json:"id"`
	CustomerRef   string             `json:"customerRef,omitempty"`
	CustomerName  string             `json:"customerName"`
	CustomerEmail string             `json:"customerEmail,omitempty"`
	CustomerPhone string             `json:"customerPhone,omitempty"`
	AssignedTo    string             `json:"assignedTo,omitempty"`
	Status        ConversationStatus `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	LastMessageAt time.Time          `json:"lastMessageAt"`
}

// ConversationPatch is a partial update; nil fields are left untouched.
type ConversationPatch struct {
	CustomerName  *string             `json:"customerName,omitempty"`
	CustomerEmail *string             `json:"customerEmail,omitempty"`
	CustomerPhone *string             `json:"customerPhone,omitempty"`
	AssignedTo    *string             `json:"assignedTo,omitempty"`
	Status        *ConversationStatus `json:"status,omitempty"`
	LastMessageAt *time.Time          `json:"lastMessageAt,omitempty"`
	UpdatedAt     *time.Time          `json:"updatedAt,omitempty"`
}

// Apply copies the non-nil patch fields onto c.
func (p ConversationPatch) Apply(c *Conversation) {
	if p.CustomerName != nil {
		c.CustomerName = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		c.CustomerEmail = *p.CustomerEmail
	}
	if p.CustomerPhone != nil {
		c.CustomerPhone = *p.CustomerPhone
	}
	if p.AssignedTo != nil {
		c.AssignedTo = *p.AssignedTo
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.LastMessageAt != nil {
		c.LastMessageAt = *p.LastMessageAt
	}
	if p.UpdatedAt != nil {
		c.UpdatedAt = *p.UpdatedAt
	}
}

// ConversationFilter narrows conversation listings. Zero values match everything.
type ConversationFilter struct {
	Status      ConversationStatus
	Assignee    string
	CustomerRef string
}

// Matches reports whether c satisfies the filter.
func (f ConversationFilter) Matches(c *Conversation) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Assignee != "" && c.AssignedTo != f.Assignee {
		return false
	}
	if f.CustomerRef != "" && c.CustomerRef != f.CustomerRef {
		return false
	}
	return true
}

// ConversationSummary is a conversation plus the tracked fields a list view
// diffs on between poll ticks.
type ConversationSummary struct {
	Conversation
	Unread int `json:"unread"`
}
