package domain

import "time"

type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageSystem MessageType = "system"
)

const SystemSender = "system"

type ReplyRef struct {
	MessageID  string `json:"messageId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

type ChatMessage struct {
	ID         string      `json:"id"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderName"`
	SenderRole Role        `json:"senderRole,omitempty"`
	SentAt     time.Time   `json:"sentAt"`
	ReplyTo    *ReplyRef   `json:"replyTo,omitempty"`
	ClientID   string      `json:"clientId,omitempty"`
}

func NewSystemMessage(id, content string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:         id,
		Type:       MessageSystem,
		Content:    content,
		SenderID:   SystemSender,
		SenderName: SystemSender,
		SentAt:     at,
	}
}
