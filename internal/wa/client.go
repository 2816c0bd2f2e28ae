package wa

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	waCommon "go.mau.fi/whatsmeow/proto/waCommon"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
	"github.com/ariel-naviandana/chat-cs/internal/transport"
)

type Config struct {
	StoreURI      string
	LogLevel      string
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

// Client adapts a whatsmeow session to the transport port. Raw wire events
// are reduced to the transport package's raw shapes here and normalized
// before they reach any handler; nothing untyped leaves this package.
type Client struct {
	cfg       Config
	log       *zap.Logger
	wm        *whatsmeow.Client
	container *sqlstore.Container
	lc        *Lifecycle
	handlers  transport.Handlers
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "WARN"
	}
	return &Client{cfg: cfg, log: log}
}

// RegisterHandlers must be called once, before Initialize.
func (c *Client) RegisterHandlers(h transport.Handlers) {
	c.handlers = h
}

// Lifecycle exposes the session state machine, mainly for the bootstrap to
// observe terminal logout.
func (c *Client) Lifecycle() *Lifecycle {
	return c.lc
}

// SessionState is safe to call before Initialize.
func (c *Client) SessionState() SessionState {
	if c.lc == nil {
		return StateDisconnected
	}
	return c.lc.State()
}

func (c *Client) Initialize(ctx context.Context) error {
	container, err := sqlstore.New(ctx, "sqlite3", c.cfg.StoreURI, waLog.Stdout("Database", c.cfg.LogLevel, true))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}
	c.container = container

	c.wm = whatsmeow.NewClient(device, waLog.Stdout("Client", c.cfg.LogLevel, true))
	// The lifecycle manager is the only reconnect authority.
	c.wm.EnableAutoReconnect = false
	c.wm.AddEventHandler(c.handleEvent)

	c.lc = NewLifecycle(func(context.Context) error {
		return c.wm.Connect()
	}, c.cfg.ReconnectBase, c.cfg.ReconnectMax, c.log)
	c.lc.OnStateChange(c.observeLifecycle)

	if c.wm.Store.ID == nil {
		// Fresh device: surface the pairing challenge before dialing. The
		// code expires on the transport's own timer; each new challenge is
		// printed once.
		qrChan, err := c.wm.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("qr channel: %w", err)
		}
		go c.drainQR(qrChan)
	}

	return c.lc.Start(ctx)
}

func (c *Client) drainQR(ch <-chan whatsmeow.QRChannelItem) {
	for evt := range ch {
		switch evt.Event {
		case "code":
			c.log.Info("scan the QR code below to pair this device")
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
		case "success":
			c.log.Info("device paired")
			return
		case "timeout":
			c.log.Warn("pairing challenge expired")
		}
	}
}

func (c *Client) handleEvent(rawEvt interface{}) {
	switch v := rawEvt.(type) {
	case *events.Message:
		raw := rawFromMessage(v)
		if msg, ok := transport.NormalizeMessage(raw); ok {
			if h := c.handlers.OnMessage; h != nil {
				h(msg)
			}
		}
	case *events.Receipt:
		for _, upd := range transport.NormalizeReceipts(rawFromReceipt(v)) {
			if h := c.handlers.OnReceipt; h != nil {
				h(upd)
			}
		}
	case *events.Presence:
		upd := transport.NormalizePresence(transport.RawPresence{
			ChatJID:     v.From.String(),
			Available:   !v.Unavailable,
			Unavailable: v.Unavailable,
			LastSeen:    v.LastSeen,
		})
		if h := c.handlers.OnPresence; h != nil {
			h(upd)
		}
	case *events.ChatPresence:
		if v.IsFromMe {
			return
		}
		upd := transport.NormalizePresence(transport.RawPresence{
			ChatJID: v.Chat.String(),
			State:   string(v.State),
		})
		if h := c.handlers.OnPresence; h != nil {
			h(upd)
		}
	case *events.Connected:
		c.lc.HandleConnected()
		_ = c.wm.SendPresence(context.Background(), types.PresenceAvailable)
		c.emitConnection(transport.ConnectionUpdate{State: transport.StateOpen})
	case *events.Disconnected:
		c.emitConnection(transport.ConnectionUpdate{State: transport.StateClosed, Reason: "stream closed"})
		c.lc.HandleDisconnect(context.Background(), "stream closed", false)
	case *events.LoggedOut:
		reason := v.Reason.String()
		c.emitConnection(transport.ConnectionUpdate{State: transport.StateClosed, Reason: reason, LoggedOut: true})
		c.lc.HandleDisconnect(context.Background(), reason, true)
	case *events.PairSuccess:
		c.log.Info("paired", zap.String("jid", v.ID.String()))
	}
}

// observeLifecycle surfaces every dial attempt as an opening update, cold
// start and reconnects alike. Open and closed are emitted from the stream
// events themselves.
func (c *Client) observeLifecycle(s SessionState, reason string) {
	if s == StateConnecting {
		c.emitConnection(transport.ConnectionUpdate{State: transport.StateOpening, Reason: reason})
	}
}

func (c *Client) emitConnection(upd transport.ConnectionUpdate) {
	if h := c.handlers.OnConnection; h != nil {
		h(upd)
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID string, content transport.Content) (transport.SendResult, error) {
	if c.wm == nil {
		return transport.SendResult{}, transport.ErrUninitialized
	}
	if c.lc.State() == StateLoggedOut {
		return transport.SendResult{}, transport.ErrLoggedOut
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return transport.SendResult{}, fmt.Errorf("parse chat jid: %w", err)
	}
	if content.Text == "" {
		return transport.SendResult{}, fmt.Errorf("refusing to send empty message to %s", chatID)
	}

	msg := &waE2E.Message{}
	if content.QuotedID != "" {
		msg.ExtendedTextMessage = &waE2E.ExtendedTextMessage{
			Text: proto.String(content.Text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(content.QuotedID),
				Participant:   proto.String(jid.String()),
				QuotedMessage: &waE2E.Message{Conversation: proto.String("")},
			},
		}
	} else {
		msg.Conversation = proto.String(content.Text)
	}

	resp, err := c.wm.SendMessage(ctx, jid, msg)
	if err != nil {
		return transport.SendResult{}, err
	}
	return transport.SendResult{MessageID: resp.ID, Timestamp: resp.Timestamp}, nil
}

func (c *Client) SendTyping(ctx context.Context, chatID string, typing bool) error {
	if c.wm == nil {
		return transport.ErrUninitialized
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return err
	}
	state := types.ChatPresencePaused
	if typing {
		state = types.ChatPresenceComposing
	}
	_ = c.wm.SubscribePresence(ctx, jid)
	return c.wm.SendChatPresence(ctx, jid, state, "")
}

func (c *Client) SubscribePresence(ctx context.Context, chatID string) error {
	if c.wm == nil {
		return transport.ErrUninitialized
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return err
	}
	return c.wm.SubscribePresence(ctx, jid)
}

func (c *Client) PinMessage(ctx context.Context, chatID, messageID string, pin bool) error {
	if c.wm == nil {
		return transport.ErrUninitialized
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return err
	}
	pinType := waE2E.PinInChatMessage_PIN_FOR_ALL
	if !pin {
		pinType = waE2E.PinInChatMessage_UNPIN_FOR_ALL
	}
	msg := &waE2E.Message{
		PinInChatMessage: &waE2E.PinInChatMessage{
			Key: &waCommon.MessageKey{
				RemoteJID: proto.String(jid.String()),
				FromMe:    proto.Bool(true),
				ID:        proto.String(messageID),
			},
			Type:              pinType.Enum(),
			SenderTimestampMS: proto.Int64(time.Now().UnixMilli()),
		},
	}
	_, err = c.wm.SendMessage(ctx, jid, msg)
	return err
}

func (c *Client) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	if c.wm == nil {
		return nil, transport.ErrUninitialized
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return nil, err
	}
	chat := &domain.Chat{ID: chatID, IsGroup: jid.Server == types.GroupServer}
	if chat.IsGroup {
		info, err := c.wm.GetGroupInfo(ctx, jid)
		if err != nil {
			c.log.Warn("group metadata fetch failed", zap.String("chat", chatID), zap.Error(err))
			return chat, nil
		}
		for _, p := range info.Participants {
			chat.Participants = append(chat.Participants, p.JID.String())
		}
	}
	return chat, nil
}

// Disconnect tears the session down for shutdown.
func (c *Client) Disconnect() {
	if c.wm != nil {
		c.wm.Disconnect()
	}
	if c.container != nil {
		_ = c.container.Close()
	}
}
