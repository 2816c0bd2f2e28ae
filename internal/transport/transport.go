package transport

import (
	"context"
	"errors"
	"time"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
)

// ErrUninitialized is returned by send operations attempted before the
// session is ready. Fatal to that call only, not to the process.
var ErrUninitialized = errors.New("whatsapp session not initialized")

// ErrLoggedOut signals an explicit remote logout. Terminal: the session
// cannot be recovered without a fresh pairing challenge.
var ErrLoggedOut = errors.New("whatsapp session logged out")

// Content is the payload of an outgoing send.
type Content struct {
	Text     string
	QuotedID string
}

// SendResult carries the transport-assigned permanent message id and the
// authoritative send timestamp. On a partial failure MessageID may be set
// even when SendMessage also returns an error.
type SendResult struct {
	MessageID string
	Timestamp time.Time
}

// Handlers receives normalized events from the transport. Registration
// happens once at startup; the transport invokes handlers sequentially in
// arrival order. Nil handlers are skipped.
type Handlers struct {
	OnMessage    func(domain.Message)
	OnReceipt    func(ReceiptUpdate)
	OnPresence   func(PresenceUpdate)
	OnConnection func(ConnectionUpdate)
}

// Transport is the capability surface of the WhatsApp session consumed by
// the engine. The wire protocol behind it is out of scope.
type Transport interface {
	Initialize(ctx context.Context) error
	RegisterHandlers(h Handlers)
	SendMessage(ctx context.Context, chatID string, content Content) (SendResult, error)
	SendTyping(ctx context.Context, chatID string, typing bool) error
	SubscribePresence(ctx context.Context, chatID string) error
	PinMessage(ctx context.Context, chatID, messageID string, pin bool) error
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)
}
