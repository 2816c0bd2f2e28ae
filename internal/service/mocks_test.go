package service

import (
	"context"
	"sync"
	"time"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
	"github.com/ariel-naviandana/chat-cs/internal/transport"
)

type mockTransport struct {
	mu sync.Mutex

	sendResult transport.SendResult
	sendErr    error
	sendDelay  time.Duration
	sends      []transport.Content

	subscribed []string
	subErr     error

	typingCalls []bool
	pinErr      error
	pinned      map[string]bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{pinned: make(map[string]bool)}
}

func (m *mockTransport) Initialize(ctx context.Context) error { return nil }
func (m *mockTransport) RegisterHandlers(h transport.Handlers) {}

func (m *mockTransport) SendMessage(ctx context.Context, chatID string, content transport.Content) (transport.SendResult, error) {
	if m.sendDelay > 0 {
		select {
		case <-time.After(m.sendDelay):
		case <-ctx.Done():
			return transport.SendResult{}, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, content)
	return m.sendResult, m.sendErr
}

func (m *mockTransport) SendTyping(ctx context.Context, chatID string, typing bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typingCalls = append(m.typingCalls, typing)
	return nil
}

func (m *mockTransport) SubscribePresence(ctx context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed = append(m.subscribed, chatID)
	return m.subErr
}

func (m *mockTransport) PinMessage(ctx context.Context, chatID, messageID string, pin bool) error {
	if m.pinErr != nil {
		return m.pinErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[messageID] = pin
	return nil
}

func (m *mockTransport) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	return &domain.Chat{ID: chatID}, nil
}

type mockRepo struct {
	mu sync.Mutex

	saved    []domain.Message
	saveErr  error
	statuses map[string]domain.Status
	statErr  error
	pinned   map[string]bool
	readChat string
	assigned map[string]string
	chats    []domain.Chat
	messages []domain.Message
}

func newMockRepo() *mockRepo {
	return &mockRepo{statuses: make(map[string]domain.Status), pinned: make(map[string]bool), assigned: make(map[string]string)}
}

func (m *mockRepo) SaveMessage(ctx context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, *msg)
	return nil
}

func (m *mockRepo) GetMessagesByChat(ctx context.Context, chatID string, limit, offset int64) ([]domain.Message, error) {
	return m.messages, nil
}

func (m *mockRepo) UpdateStatus(ctx context.Context, messageID string, status domain.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statErr != nil {
		return m.statErr
	}
	m.statuses[messageID] = status
	return nil
}

func (m *mockRepo) SetPinned(ctx context.Context, messageID string, pinned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinned[messageID] = pinned
	return nil
}

func (m *mockRepo) MarkChatRead(ctx context.Context, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readChat = chatID
	return nil
}

func (m *mockRepo) AssignChat(ctx context.Context, chatID, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assigned[chatID] = agentID
	return nil
}

func (m *mockRepo) GetChats(ctx context.Context) ([]domain.Chat, error) {
	return m.chats, nil
}

func (m *mockRepo) lastSaved() (domain.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return domain.Message{}, false
	}
	return m.saved[len(m.saved)-1], true
}

type ackEvent struct {
	tempID string
	msg    domain.Message
}

type receiptEvent struct {
	messageID string
	status    domain.Status
}

type presenceEvent struct {
	chatID   string
	isOnline bool
	lastSeen *time.Time
}

type typingEvent struct {
	chatID   string
	isTyping bool
}

type mockNotifier struct {
	mu sync.Mutex

	newMessages []domain.Message
	acks        []ackEvent
	typings     []typingEvent
	presences   []presenceEvent
	receipts    []receiptEvent
}

func (m *mockNotifier) NotifyNewMessage(msg domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newMessages = append(m.newMessages, msg)
}

func (m *mockNotifier) NotifyMessageAck(tempID string, msg domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, ackEvent{tempID: tempID, msg: msg})
}

func (m *mockNotifier) NotifyTyping(chatID string, isTyping bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typings = append(m.typings, typingEvent{chatID: chatID, isTyping: isTyping})
}

func (m *mockNotifier) NotifyPresence(chatID string, isOnline bool, lastSeen *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presences = append(m.presences, presenceEvent{chatID: chatID, isOnline: isOnline, lastSeen: lastSeen})
}

func (m *mockNotifier) NotifyReceipt(messageID string, status domain.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts = append(m.receipts, receiptEvent{messageID: messageID, status: status})
}
