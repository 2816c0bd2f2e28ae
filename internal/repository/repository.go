package repository

import (
	"context"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
)

// MessageRepository is the persistence contract the engine depends on.
// SaveMessage upserts by permanent id, so a message is never duplicated no
// matter how many times its record is written.
type MessageRepository interface {
	SaveMessage(ctx context.Context, m *domain.Message) error
	GetMessagesByChat(ctx context.Context, chatID string, limit, offset int64) ([]domain.Message, error)
	UpdateStatus(ctx context.Context, messageID string, status domain.Status) error
	SetPinned(ctx context.Context, messageID string, pinned bool) error
	MarkChatRead(ctx context.Context, chatID string) error
	AssignChat(ctx context.Context, chatID, agentID string) error
	GetChats(ctx context.Context) ([]domain.Chat, error)
}
