package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
	"github.com/ariel-naviandana/chat-cs/internal/notify"
	"github.com/ariel-naviandana/chat-cs/internal/repository"
	"github.com/ariel-naviandana/chat-cs/internal/transport"
)

var ErrSendInFlight = errors.New("send already in flight for this correlation token")

const defaultSendTimeout = 30 * time.Second

// Engine reconciles agent-initiated sends with the asynchronous
// confirmations coming back from the transport. It owns the in-flight
// correlation tokens; entries are removed once the send finalizes or
// fails, so the map never grows past the number of concurrent sends.
type Engine struct {
	tp       transport.Transport
	repo     repository.MessageRepository
	notifier notify.Notifier
	log      *zap.Logger

	sendTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*domain.Message
}

type SendRequest struct {
	ChatID           string
	Text             string
	QuotedID         string
	CorrelationToken string
}

func NewEngine(tp transport.Transport, repo repository.MessageRepository, notifier notify.Notifier, log *zap.Logger) *Engine {
	return &Engine{
		tp:          tp,
		repo:        repo,
		notifier:    notifier,
		log:         log,
		sendTimeout: defaultSendTimeout,
		pending:     make(map[string]*domain.Message),
	}
}

// SetSendTimeout overrides the cap on a single transport send call.
func (e *Engine) SetSendTimeout(d time.Duration) {
	if d > 0 {
		e.sendTimeout = d
	}
}

// InFlight reports whether a send for the given correlation token has
// not yet finalized.
func (e *Engine) InFlight(token string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[token]
	return ok
}

// Send relays an agent message to the transport and reconciles the
// provisional record with the transport-assigned id. On success the UI
// receives exactly one event for the content: messageAck when a
// correlation token was supplied, newMessage otherwise.
//
// Content validation is left to the transport; an empty send is passed
// through and its rejection propagated unchanged.
func (e *Engine) Send(ctx context.Context, req SendRequest) (domain.Message, error) {
	msg := &domain.Message{
		ChatID:          req.ChatID,
		From:            "me",
		FromMe:          true,
		Text:            req.Text,
		QuotedMessageID: req.QuotedID,
		Status:          domain.StatusSending,
		Timestamp:       time.Now(),
	}

	token := req.CorrelationToken
	if token == "" {
		token = uuid.NewString()
	}
	if err := e.track(token, msg); err != nil {
		return domain.Message{}, err
	}
	defer e.untrack(token)

	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()

	res, sendErr := e.tp.SendMessage(sendCtx, req.ChatID, transport.Content{Text: req.Text, QuotedID: req.QuotedID})
	if sendErr != nil {
		return e.fail(ctx, msg, res, sendErr)
	}

	msg.ID = res.MessageID
	if !res.Timestamp.IsZero() {
		msg.Timestamp = res.Timestamp
	}
	msg.Status = domain.StatusSent

	if err := e.repo.SaveMessage(ctx, msg); err != nil {
		return *msg, fmt.Errorf("persist sent message %s: %w", msg.ID, err)
	}

	if req.CorrelationToken != "" {
		e.notifier.NotifyMessageAck(req.CorrelationToken, *msg)
	} else {
		e.notifier.NotifyNewMessage(*msg)
	}
	return *msg, nil
}

// fail finalizes a rejected send. A permanent id assigned before the
// failure surfaced means the message may exist on the wire, so it is
// recorded as failed; persistence errors on that path are swallowed.
// The transport error reaches the caller unchanged either way.
func (e *Engine) fail(ctx context.Context, msg *domain.Message, res transport.SendResult, sendErr error) (domain.Message, error) {
	if res.MessageID == "" {
		return *msg, sendErr
	}
	msg.ID = res.MessageID
	msg.Status = domain.StatusFailed
	if err := e.repo.SaveMessage(ctx, msg); err != nil {
		e.log.Warn("persist failed message", zap.String("message_id", msg.ID), zap.Error(err))
	}
	return *msg, sendErr
}

func (e *Engine) track(token string, msg *domain.Message) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[token]; ok {
		return ErrSendInFlight
	}
	e.pending[token] = msg
	return nil
}

func (e *Engine) untrack(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, token)
}

// Pin toggles the pinned flag on both sides: the transport first, then
// the stored record.
func (e *Engine) Pin(ctx context.Context, chatID, messageID string, pinned bool) error {
	if err := e.tp.PinMessage(ctx, chatID, messageID, pinned); err != nil {
		return err
	}
	return e.repo.SetPinned(ctx, messageID, pinned)
}

// Typing forwards an agent's typing indicator to the customer.
func (e *Engine) Typing(ctx context.Context, chatID string, isTyping bool) error {
	return e.tp.SendTyping(ctx, chatID, isTyping)
}
