package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/ariel-naviandana/chat-cs/internal/cache"
	"github.com/ariel-naviandana/chat-cs/internal/notify"
	"github.com/ariel-naviandana/chat-cs/internal/repository"
	"github.com/ariel-naviandana/chat-cs/internal/service"
	"github.com/ariel-naviandana/chat-cs/internal/ws"
)

// AgentHandler dispatches commands coming over the agent websocket.
// Broadcast traffic (new messages, receipts, presence) is pushed by the
// notifier; this handler only covers agent-initiated requests and their
// direct replies.
type AgentHandler struct {
	engine   *service.Engine
	repo     repository.MessageRepository
	presence *cache.PresenceStore
	hub      *ws.Hub
	log      *zap.Logger
}

type command struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type sendMessageCmd struct {
	ChatID           string `json:"chatId"`
	Text             string `json:"text"`
	QuotedID         string `json:"quotedId"`
	CorrelationToken string `json:"correlationToken"`
}

type chatHistoryCmd struct {
	ChatID string `json:"chatId"`
	Limit  int64  `json:"limit"`
	Offset int64  `json:"offset"`
}

type typingCmd struct {
	ChatID string `json:"chatId"`
}

type pinMessageCmd struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	Pinned    bool   `json:"pinned"`
}

type markChatReadCmd struct {
	ChatID string `json:"chatId"`
}

type assignChatCmd struct {
	ChatID  string `json:"chatId"`
	AgentID string `json:"agentId"`
}

func NewAgentHandler(engine *service.Engine, repo repository.MessageRepository, presence *cache.PresenceStore, hub *ws.Hub, log *zap.Logger) *AgentHandler {
	return &AgentHandler{engine: engine, repo: repo, presence: presence, hub: hub, log: log}
}

// WSHandler upgrades an agent connection and pumps it until close.
func (h *AgentHandler) WSHandler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client := ws.NewClient(conn)
		h.hub.Register(client)
		defer func() {
			h.hub.Unregister(client)
			client.Close()
		}()

		go client.WritePump()
		client.ReadLoop(func(data []byte) {
			h.dispatch(client, data)
		})
	}
}

func (h *AgentHandler) dispatch(client *ws.Client, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		h.log.Warn("malformed agent command", zap.Error(err))
		return
	}

	ctx := context.Background()
	switch cmd.Event {
	case "sendMessage":
		h.sendMessage(ctx, client, cmd.Payload)
	case "loadChats":
		h.loadChats(ctx, client)
	case "loadChatHistory":
		h.loadChatHistory(ctx, client, cmd.Payload)
	case "startTyping":
		h.typing(ctx, cmd.Payload, true)
	case "stopTyping":
		h.typing(ctx, cmd.Payload, false)
	case "pinMessage":
		h.pinMessage(ctx, client, cmd.Payload)
	case "markChatRead":
		h.markChatRead(ctx, cmd.Payload)
	case "assignChat":
		h.assignChat(ctx, cmd.Payload)
	default:
		h.log.Warn("unknown agent command", zap.String("event", cmd.Event))
	}
}

func (h *AgentHandler) sendMessage(ctx context.Context, client *ws.Client, payload json.RawMessage) {
	var p sendMessageCmd
	if err := json.Unmarshal(payload, &p); err != nil {
		h.log.Warn("malformed sendMessage payload", zap.Error(err))
		return
	}
	msg, err := h.engine.Send(ctx, service.SendRequest{
		ChatID:           p.ChatID,
		Text:             p.Text,
		QuotedID:         p.QuotedID,
		CorrelationToken: p.CorrelationToken,
	})
	if err != nil {
		h.log.Error("send message", zap.String("chat_id", p.ChatID), zap.Error(err))
		client.Send(notify.Envelope{Event: "messageSent", Payload: map[string]any{
			"success":          false,
			"correlationToken": p.CorrelationToken,
			"error":            err.Error(),
		}})
		return
	}
	// Direct operation result for the issuing socket. The finalized record
	// itself arrives through the ack or newMessage broadcast.
	client.Send(notify.Envelope{Event: "messageSent", Payload: map[string]any{
		"success":          true,
		"correlationToken": p.CorrelationToken,
		"messageId":        msg.ID,
	}})
}

func (h *AgentHandler) loadChats(ctx context.Context, client *ws.Client) {
	chats, err := h.repo.GetChats(ctx)
	if err != nil {
		h.log.Error("load chats", zap.Error(err))
		client.Send(notify.Envelope{Event: "chatsError", Payload: map[string]any{"error": err.Error()}})
		return
	}

	// Seed the UI with the last cached presence per chat so indicators are
	// populated before the first live update arrives.
	presence := make(map[string]*cache.PresenceRecord)
	for _, chat := range chats {
		rec, err := h.presence.GetPresence(ctx, chat.ID)
		if err != nil {
			h.log.Warn("presence lookup", zap.String("chat_id", chat.ID), zap.Error(err))
			continue
		}
		if rec != nil {
			presence[chat.ID] = rec
		}
	}
	client.Send(notify.Envelope{Event: "chats", Payload: map[string]any{"chats": chats, "presence": presence}})
}

func (h *AgentHandler) loadChatHistory(ctx context.Context, client *ws.Client, payload json.RawMessage) {
	var p chatHistoryCmd
	if err := json.Unmarshal(payload, &p); err != nil {
		h.log.Warn("malformed loadChatHistory payload", zap.Error(err))
		return
	}
	msgs, err := h.repo.GetMessagesByChat(ctx, p.ChatID, p.Limit, p.Offset)
	if err != nil {
		h.log.Error("load chat history", zap.String("chat_id", p.ChatID), zap.Error(err))
		client.Send(notify.Envelope{Event: "chatHistoryError", Payload: map[string]any{"chatId": p.ChatID, "error": err.Error()}})
		return
	}
	client.Send(notify.Envelope{Event: "chatHistory", Payload: map[string]any{"chatId": p.ChatID, "messages": msgs}})
}

func (h *AgentHandler) typing(ctx context.Context, payload json.RawMessage, isTyping bool) {
	var p typingCmd
	if err := json.Unmarshal(payload, &p); err != nil {
		h.log.Warn("malformed typing payload", zap.Error(err))
		return
	}
	if err := h.engine.Typing(ctx, p.ChatID, isTyping); err != nil {
		h.log.Warn("send typing", zap.String("chat_id", p.ChatID), zap.Error(err))
	}
}

func (h *AgentHandler) pinMessage(ctx context.Context, client *ws.Client, payload json.RawMessage) {
	var p pinMessageCmd
	if err := json.Unmarshal(payload, &p); err != nil {
		h.log.Warn("malformed pinMessage payload", zap.Error(err))
		return
	}
	if err := h.engine.Pin(ctx, p.ChatID, p.MessageID, p.Pinned); err != nil {
		h.log.Error("pin message", zap.String("message_id", p.MessageID), zap.Error(err))
		client.Send(notify.Envelope{Event: "pinError", Payload: map[string]any{"messageId": p.MessageID, "error": err.Error()}})
		return
	}
	h.hub.Broadcast(notify.Envelope{Event: "messagePinned", Payload: map[string]any{
		"chatId":    p.ChatID,
		"messageId": p.MessageID,
		"pinned":    p.Pinned,
	}})
}

func (h *AgentHandler) markChatRead(ctx context.Context, payload json.RawMessage) {
	var p markChatReadCmd
	if err := json.Unmarshal(payload, &p); err != nil {
		h.log.Warn("malformed markChatRead payload", zap.Error(err))
		return
	}
	if err := h.repo.MarkChatRead(ctx, p.ChatID); err != nil {
		h.log.Warn("mark chat read", zap.String("chat_id", p.ChatID), zap.Error(err))
		return
	}
	h.hub.Broadcast(notify.Envelope{Event: "chatRead", Payload: map[string]any{"chatId": p.ChatID}})
}

func (h *AgentHandler) assignChat(ctx context.Context, payload json.RawMessage) {
	var p assignChatCmd
	if err := json.Unmarshal(payload, &p); err != nil {
		h.log.Warn("malformed assignChat payload", zap.Error(err))
		return
	}
	if err := h.repo.AssignChat(ctx, p.ChatID, p.AgentID); err != nil {
		h.log.Warn("assign chat", zap.String("chat_id", p.ChatID), zap.Error(err))
		return
	}
	h.hub.Broadcast(notify.Envelope{Event: "chatAssigned", Payload: map[string]any{"chatId": p.ChatID, "agentId": p.AgentID}})
}

