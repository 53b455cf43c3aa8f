package models

import "time"

type SenderRole string

const (
	RoleAdmin    SenderRole = "admin"
	RoleStaff    SenderRole = "staff"
	RoleCustomer SenderRole = "customer"
)

type MessageType string

const (
	MessageTypeText         MessageType = "text"
	MessageTypeSystem       MessageType = "system"
	MessageTypeWhatsAppLink MessageType = "whatsapp_link"
)

// Message is a single authored entry within a conversation. Messages are
// immutable after creation except for ReadAt.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderRef      string      `json:"senderRef,omitempty"`
	SenderName     string      `json:"senderName"`
	SenderRole     SenderRole  `json:"senderRole"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	ReadAt         *time.Time  `json:"readAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Caller is the identity the session layer attaches to each request. The chat
// subsystem performs no authentication itself.
type Caller struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role SenderRole `json:"role"`
}

// UnreadFilter scopes unread queries to what the caller may see: admins see
// every active conversation, staff only conversations assigned to them.
type UnreadFilter struct {
	Role     SenderRole
	Assignee string
}
