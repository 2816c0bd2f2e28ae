package handlers

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
	"github.com/ariel-naviandana/chat-cs/internal/notify"
	"github.com/ariel-naviandana/chat-cs/internal/service"
	"github.com/ariel-naviandana/chat-cs/internal/transport"
	"github.com/ariel-naviandana/chat-cs/internal/ws"
)

type fakeTransport struct {
	sendResult transport.SendResult
	sendErr    error
	typings    []bool
	pinned     map[string]bool
}

func (f *fakeTransport) Initialize(ctx context.Context) error  { return nil }
func (f *fakeTransport) RegisterHandlers(h transport.Handlers) {}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID string, content transport.Content) (transport.SendResult, error) {
	return f.sendResult, f.sendErr
}

func (f *fakeTransport) SendTyping(ctx context.Context, chatID string, typing bool) error {
	f.typings = append(f.typings, typing)
	return nil
}

func (f *fakeTransport) SubscribePresence(ctx context.Context, chatID string) error { return nil }

func (f *fakeTransport) PinMessage(ctx context.Context, chatID, messageID string, pin bool) error {
	if f.pinned == nil {
		f.pinned = make(map[string]bool)
	}
	f.pinned[messageID] = pin
	return nil
}

func (f *fakeTransport) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	return &domain.Chat{ID: chatID}, nil
}

type fakeRepo struct {
	saved    []domain.Message
	chats    []domain.Chat
	chatsErr error
	messages []domain.Message
	histErr  error
	pinned   map[string]bool
	readChat string
	assigned map[string]string
}

func (f *fakeRepo) SaveMessage(ctx context.Context, m *domain.Message) error {
	f.saved = append(f.saved, *m)
	return nil
}

func (f *fakeRepo) GetMessagesByChat(ctx context.Context, chatID string, limit, offset int64) ([]domain.Message, error) {
	return f.messages, f.histErr
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, messageID string, status domain.Status) error {
	return nil
}

func (f *fakeRepo) SetPinned(ctx context.Context, messageID string, pinned bool) error {
	if f.pinned == nil {
		f.pinned = make(map[string]bool)
	}
	f.pinned[messageID] = pinned
	return nil
}

func (f *fakeRepo) MarkChatRead(ctx context.Context, chatID string) error {
	f.readChat = chatID
	return nil
}

func (f *fakeRepo) AssignChat(ctx context.Context, chatID, agentID string) error {
	if f.assigned == nil {
		f.assigned = make(map[string]string)
	}
	f.assigned[chatID] = agentID
	return nil
}

func (f *fakeRepo) GetChats(ctx context.Context) ([]domain.Chat, error) {
	return f.chats, f.chatsErr
}

func newTestHandler(tp *fakeTransport, repo *fakeRepo) (*AgentHandler, *ws.Hub) {
	hub := ws.NewHub()
	engine := service.NewEngine(tp, repo, notify.NewHubNotifier(hub), zap.NewNop())
	return NewAgentHandler(engine, repo, nil, hub, zap.NewNop()), hub
}

func recvEnvelope(t *testing.T, client *ws.Client) notify.Envelope {
	t.Helper()
	select {
	case v := <-client.Outbox():
		env, ok := v.(notify.Envelope)
		if !ok {
			t.Fatalf("queued payload is %T, want notify.Envelope", v)
		}
		return env
	default:
		t.Fatal("no reply queued for the client")
	}
	return notify.Envelope{}
}

func TestDispatchSendMessageRejectionReply(t *testing.T) {
	tp := &fakeTransport{sendErr: errors.New("refusing to send empty message to A")}
	h, _ := newTestHandler(tp, &fakeRepo{})
	client := ws.NewClient(nil)

	h.dispatch(client, []byte(`{"event":"sendMessage","payload":{"chatId":"A","correlationToken":"t1"}}`))

	env := recvEnvelope(t, client)
	if env.Event != "messageSent" {
		t.Fatalf("event = %q, want messageSent", env.Event)
	}
	p := env.Payload.(map[string]any)
	if p["success"] != false {
		t.Errorf("success = %v, want false", p["success"])
	}
	if p["correlationToken"] != "t1" {
		t.Errorf("correlationToken = %v, want t1", p["correlationToken"])
	}
	if p["error"] != "refusing to send empty message to A" {
		t.Errorf("error = %v, want the original rejection text", p["error"])
	}
}

func TestDispatchSendMessageSuccessReply(t *testing.T) {
	tp := &fakeTransport{sendResult: transport.SendResult{MessageID: "X"}}
	h, _ := newTestHandler(tp, &fakeRepo{})
	client := ws.NewClient(nil)

	h.dispatch(client, []byte(`{"event":"sendMessage","payload":{"chatId":"A","text":"hi","correlationToken":"t1"}}`))

	env := recvEnvelope(t, client)
	if env.Event != "messageSent" {
		t.Fatalf("event = %q, want messageSent", env.Event)
	}
	p := env.Payload.(map[string]any)
	if p["success"] != true || p["messageId"] != "X" || p["correlationToken"] != "t1" {
		t.Errorf("payload = %v", p)
	}
}

func TestDispatchMalformedCommandIsIgnored(t *testing.T) {
	h, _ := newTestHandler(&fakeTransport{}, &fakeRepo{})
	client := ws.NewClient(nil)

	h.dispatch(client, []byte(`not json`))
	h.dispatch(client, []byte(`{"event":"sendMessage","payload":"not an object"}`))
	h.dispatch(client, []byte(`{"event":"noSuchCommand","payload":{}}`))

	select {
	case v := <-client.Outbox():
		t.Fatalf("unexpected reply %v", v)
	default:
	}
}

func TestDispatchLoadChats(t *testing.T) {
	repo := &fakeRepo{chats: []domain.Chat{{ID: "A"}, {ID: "B"}}}
	h, _ := newTestHandler(&fakeTransport{}, repo)
	client := ws.NewClient(nil)

	h.dispatch(client, []byte(`{"event":"loadChats","payload":{}}`))

	env := recvEnvelope(t, client)
	if env.Event != "chats" {
		t.Fatalf("event = %q, want chats", env.Event)
	}
	p := env.Payload.(map[string]any)
	chats := p["chats"].([]domain.Chat)
	if len(chats) != 2 {
		t.Errorf("chats = %v", chats)
	}
}

func TestDispatchLoadChatsErrorReply(t *testing.T) {
	repo := &fakeRepo{chatsErr: errors.New("mongo down")}
	h, _ := newTestHandler(&fakeTransport{}, repo)
	client := ws.NewClient(nil)

	h.dispatch(client, []byte(`{"event":"loadChats","payload":{}}`))

	env := recvEnvelope(t, client)
	if env.Event != "chatsError" {
		t.Fatalf("event = %q, want chatsError", env.Event)
	}
	if env.Payload.(map[string]any)["error"] != "mongo down" {
		t.Errorf("payload = %v", env.Payload)
	}
}

func TestDispatchLoadChatHistoryErrorReply(t *testing.T) {
	repo := &fakeRepo{histErr: errors.New("mongo down")}
	h, _ := newTestHandler(&fakeTransport{}, repo)
	client := ws.NewClient(nil)

	h.dispatch(client, []byte(`{"event":"loadChatHistory","payload":{"chatId":"A"}}`))

	env := recvEnvelope(t, client)
	if env.Event != "chatHistoryError" {
		t.Fatalf("event = %q, want chatHistoryError", env.Event)
	}
	p := env.Payload.(map[string]any)
	if p["chatId"] != "A" || p["error"] != "mongo down" {
		t.Errorf("payload = %v", p)
	}
}

func TestDispatchTypingRelay(t *testing.T) {
	tp := &fakeTransport{}
	h, _ := newTestHandler(tp, &fakeRepo{})
	client := ws.NewClient(nil)

	h.dispatch(client, []byte(`{"event":"startTyping","payload":{"chatId":"A"}}`))
	h.dispatch(client, []byte(`{"event":"stopTyping","payload":{"chatId":"A"}}`))

	if len(tp.typings) != 2 || !tp.typings[0] || tp.typings[1] {
		t.Errorf("typings = %v, want [true false]", tp.typings)
	}
}

func TestDispatchMarkChatRead(t *testing.T) {
	repo := &fakeRepo{}
	h, hub := newTestHandler(&fakeTransport{}, repo)
	client := ws.NewClient(nil)
	hub.Register(client)

	h.dispatch(client, []byte(`{"event":"markChatRead","payload":{"chatId":"A"}}`))

	if repo.readChat != "A" {
		t.Errorf("readChat = %q, want A", repo.readChat)
	}
	env := recvEnvelope(t, client)
	if env.Event != "chatRead" {
		t.Errorf("event = %q, want chatRead broadcast", env.Event)
	}
}
