package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ariel-naviandana/chat-cs/internal/cache"
	"github.com/ariel-naviandana/chat-cs/internal/domain"
	"github.com/ariel-naviandana/chat-cs/internal/kafka"
	"github.com/ariel-naviandana/chat-cs/internal/notify"
	"github.com/ariel-naviandana/chat-cs/internal/repository"
	"github.com/ariel-naviandana/chat-cs/internal/transport"
)

// Bridge routes normalized transport events into persistence and the
// agent broadcast channel. Persistence failures on these paths are
// logged and swallowed; inbound events keep flowing regardless.
type Bridge struct {
	tp       transport.Transport
	repo     repository.MessageRepository
	notifier notify.Notifier
	producer *kafka.Producer
	presence *cache.PresenceStore
	log      *zap.Logger

	mu        sync.Mutex
	seenChats map[string]struct{}
}

func NewBridge(tp transport.Transport, repo repository.MessageRepository, notifier notify.Notifier, producer *kafka.Producer, presence *cache.PresenceStore, log *zap.Logger) *Bridge {
	return &Bridge{
		tp:        tp,
		repo:      repo,
		notifier:  notifier,
		producer:  producer,
		presence:  presence,
		log:       log,
		seenChats: make(map[string]struct{}),
	}
}

// Handlers returns the callback set to register with the transport.
func (b *Bridge) Handlers() transport.Handlers {
	return transport.Handlers{
		OnMessage:    b.handleMessage,
		OnReceipt:    b.handleReceipt,
		OnPresence:   b.handlePresence,
		OnConnection: b.handleConnection,
	}
}

func (b *Bridge) handleMessage(m domain.Message) {
	ctx := context.Background()

	if err := b.repo.SaveMessage(ctx, &m); err != nil {
		b.log.Error("persist inbound message", zap.String("message_id", m.ID), zap.Error(err))
	}

	// Presence subscriptions do not survive a reconnect. Re-subscribe
	// the first time a chat is seen on the current connection.
	if b.firstSeen(m.ChatID) {
		if err := b.tp.SubscribePresence(ctx, m.ChatID); err != nil {
			b.log.Warn("subscribe presence", zap.String("chat_id", m.ChatID), zap.Error(err))
		}
	}

	b.notifier.NotifyNewMessage(m)

	if err := b.producer.PublishMessage(ctx, m); err != nil {
		b.log.Warn("publish inbound message", zap.String("message_id", m.ID), zap.Error(err))
	}
}

func (b *Bridge) handleReceipt(r transport.ReceiptUpdate) {
	ctx := context.Background()
	if err := b.repo.UpdateStatus(ctx, r.MessageID, r.Status); err != nil {
		b.log.Warn("update message status", zap.String("message_id", r.MessageID), zap.Error(err))
	}
	b.notifier.NotifyReceipt(r.MessageID, r.Status)
}

func (b *Bridge) handlePresence(p transport.PresenceUpdate) {
	ctx := context.Background()
	if err := b.presence.SetPresence(ctx, p.ChatID, p.IsOnline, p.LastSeen); err != nil {
		b.log.Warn("cache presence", zap.String("chat_id", p.ChatID), zap.Error(err))
	}
	b.notifier.NotifyPresence(p.ChatID, p.IsOnline, p.LastSeen)
	b.notifier.NotifyTyping(p.ChatID, p.IsTyping)
}

func (b *Bridge) handleConnection(c transport.ConnectionUpdate) {
	switch c.State {
	case transport.StateOpen:
		b.mu.Lock()
		b.seenChats = make(map[string]struct{})
		b.mu.Unlock()
		b.log.Info("transport connected")
	case transport.StateClosed:
		if c.LoggedOut {
			b.log.Error("transport logged out, re-pairing required", zap.String("reason", c.Reason))
		} else {
			b.log.Warn("transport disconnected", zap.String("reason", c.Reason))
		}
	}
}

func (b *Bridge) firstSeen(chatID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seenChats[chatID]; ok {
		return false
	}
	b.seenChats[chatID] = struct{}{}
	return true
}
