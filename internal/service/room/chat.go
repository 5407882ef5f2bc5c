package room

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sharetube/watchparty/internal/domain"
	"github.com/sharetube/watchparty/internal/repository/connection"
	"github.com/sharetube/watchparty/internal/repository/room"
)

type SendChatMessageParams struct {
	Sender   *connection.Conn
	Text     string
	ReplyTo  *domain.ReplyRef
	ClientID string
}

type SendChatMessageResponse struct {
	Message domain.ChatMessage
	Conns   []*connection.Conn
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (s service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	v, err := s.viewAs(ctx, params.Sender)
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	text := strings.TrimSpace(params.Text)
	if text == "" {
		return SendChatMessageResponse{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MessageMaxLength {
		return SendChatMessageResponse{}, ErrMessageTooLong
	}

	msg := domain.ChatMessage{
		ID:         uuid.NewString(),
		Type:       domain.MessageUser,
		Content:    text,
		SenderID:   v.sender.UserID,
		SenderName: v.sender.Username,
		SenderRole: v.sender.Role,
		SentAt:     s.now(),
	}

	if params.ReplyTo != nil && params.ReplyTo.MessageID != "" {
		msg.ReplyTo = &domain.ReplyRef{
			MessageID:  params.ReplyTo.MessageID,
			SenderName: params.ReplyTo.SenderName,
			Content:    truncate(params.ReplyTo.Content, replyPreviewLength),
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	if _, err := s.roomRepo.AddMessage(ctx, &room.AddMessageParams{
		RoomID: params.Sender.RoomID,
		Data:   data,
		Limit:  s.chatHistoryLimit,
	}); err != nil {
		s.logger.InfoContext(ctx, "failed to store message", "error", err)
		return SendChatMessageResponse{}, s.mapRepoErr(err)
	}

	// the idempotency key only matters to the sender's echo and is not stored
	msg.ClientID = params.ClientID

	return SendChatMessageResponse{Message: msg, Conns: v.conns}, nil
}
