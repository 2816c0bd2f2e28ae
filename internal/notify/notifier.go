package notify

import (
	"time"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
	"github.com/ariel-naviandana/chat-cs/internal/ws"
)

// Notifier fans internal events out to the agent UI. One broadcast per
// event, no batching; the outward transport never acknowledges.
type Notifier interface {
	NotifyNewMessage(m domain.Message)
	NotifyMessageAck(token string, m domain.Message)
	NotifyTyping(chatID string, isTyping bool)
	NotifyPresence(chatID string, isOnline bool, lastSeen *time.Time)
	NotifyReceipt(messageID string, status domain.Status)
}

// Envelope is the wire shape of every outward broadcast.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type AckPayload struct {
	CorrelationToken string         `json:"correlationToken"`
	Message          domain.Message `json:"message"`
}

type TypingPayload struct {
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

type PresencePayload struct {
	ChatID   string     `json:"chatId"`
	IsOnline bool       `json:"isOnline"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type ReceiptPayload struct {
	MessageID string        `json:"messageId"`
	Status    domain.Status `json:"status"`
}

type hubNotifier struct {
	hub *ws.Hub
}

func NewHubNotifier(hub *ws.Hub) Notifier {
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) NotifyNewMessage(m domain.Message) {
	n.hub.Broadcast(Envelope{Event: "newMessage", Payload: m})
}

func (n *hubNotifier) NotifyMessageAck(token string, m domain.Message) {
	n.hub.Broadcast(Envelope{Event: "messageAck", Payload: AckPayload{CorrelationToken: token, Message: m}})
}

func (n *hubNotifier) NotifyTyping(chatID string, isTyping bool) {
	n.hub.Broadcast(Envelope{Event: "typing", Payload: TypingPayload{ChatID: chatID, IsTyping: isTyping}})
}

func (n *hubNotifier) NotifyPresence(chatID string, isOnline bool, lastSeen *time.Time) {
	n.hub.Broadcast(Envelope{Event: "presence", Payload: PresencePayload{ChatID: chatID, IsOnline: isOnline, LastSeen: lastSeen}})
}

func (n *hubNotifier) NotifyReceipt(messageID string, status domain.Status) {
	n.hub.Broadcast(Envelope{Event: "receipt", Payload: ReceiptPayload{MessageID: messageID, Status: status}})
}
