package client

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/protocol"
)

const (
	maxMessageLength = 500
	localIDPrefix    = "local-"
)

// ChatLog is the local, append-only view of the room chat. Outbound messages
// show up at once as a pending echo and are reconciled with the server copy
// by their client id.
type ChatLog struct {
	mu       sync.Mutex
	clock    clock.Clock
	emitter  emitter
	roomID   string
	messages []domain.ChatMessage
	seen     map[string]struct{}
	pending  map[string]int
}

func NewChatLog(roomID string, em emitter, clk clock.Clock) *ChatLog {
	return &ChatLog{
		clock:   clk,
		emitter: em,
		roomID:  roomID,
		seen:    make(map[string]struct{}),
		pending: make(map[string]int),
	}
}

// Seed prepends fetched history. Messages already in the log are skipped.
func (c *ChatLog) Seed(history []domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := make([]domain.ChatMessage, 0, len(history))
	for _, msg := range history {
		if _, ok := c.seen[msg.ID]; ok {
			continue
		}
		c.seen[msg.ID] = struct{}{}
		fresh = append(fresh, msg)
	}

	c.messages = append(fresh, c.messages...)
	for clientID, i := range c.pending {
		c.pending[clientID] = i + len(fresh)
	}
}

// Send posts text, optionally as a reply, and appends the local echo.
func (c *ChatLog) Send(ctx context.Context, text string, replyTo *domain.ReplyRef, self domain.Member) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}
	if len([]rune(text)) > maxMessageLength {
		text = string([]rune(text)[:maxMessageLength])
	}

	clientID := uuid.NewString()
	echo := domain.ChatMessage{
		ID:         localIDPrefix + clientID,
		Type:       domain.MessageUser,
		Content:    text,
		SenderID:   self.UserID,
		SenderName: self.Username,
		SenderRole: self.Role,
		SentAt:     c.clock.Now(),
		ReplyTo:    replyTo,
		ClientID:   clientID,
	}

	c.mu.Lock()
	c.pending[clientID] = len(c.messages)
	c.messages = append(c.messages, echo)
	c.mu.Unlock()

	if err := c.emitter.Emit(ctx, protocol.ChatMessagePayload{
		RoomID:   c.roomID,
		Text:     text,
		Username: self.Username,
		ReplyTo:  replyTo,
		ClientID: clientID,
	}); err != nil {
		c.drop(clientID)
		return domain.ChatMessage{}, err
	}

	return echo, nil
}

// drop removes an echo whose message never left.
func (c *ChatLog) drop(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.pending[clientID]
	if !ok {
		return
	}
	delete(c.pending, clientID)
	c.messages = slices.Delete(c.messages, i, i+1)
	for id, j := range c.pending {
		if j > i {
			c.pending[id] = j - 1
		}
	}
}

// Receive applies a broadcast message. It reports false for a duplicate.
func (c *ChatLog) Receive(msg domain.ChatMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[msg.ID]; ok {
		return false
	}
	c.seen[msg.ID] = struct{}{}

	if msg.ClientID != "" {
		if i, ok := c.pending[msg.ClientID]; ok {
			delete(c.pending, msg.ClientID)
			c.messages[i] = msg
			return true
		}
	}

	c.messages = append(c.messages, msg)
	return true
}

func (c *ChatLog) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.messages)
}

// Pending reports how many sent messages the server has not echoed yet.
func (c *ChatLog) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// ReplyRef snapshots messageID for use as a reply target.
func (c *ChatLog) ReplyRef(messageID string) (*domain.ReplyRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.messages, func(m domain.ChatMessage) bool { return m.ID == messageID })
	if i < 0 || c.messages[i].Type != domain.MessageUser {
		return nil, false
	}

	msg := c.messages[i]
	return &domain.ReplyRef{MessageID: msg.ID, SenderName: msg.SenderName, Content: msg.Content}, true
}
