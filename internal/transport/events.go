package transport

import (
	"time"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
)

// Raw shapes are what the session adapter extracts from wire events before
// normalization. They stay inside this package and internal/wa; nothing
// untyped crosses into the engine.

type RawMessage struct {
	ID      string
	ChatJID string
	// ChatJIDAlt is the canonical conversation id the transport supplies
	// alongside a linked-device (@lid) routing id, when it has one.
	ChatJIDAlt string
	SenderJID  string
	FromMe     bool
	Timestamp  time.Time
	Text       string
	Media      *domain.Media
	QuotedID   string
}

// RawReceipt is one per-message record of a receipt batch. Either timestamp
// may be missing; records with neither are noise.
type RawReceipt struct {
	MessageID   string
	DeliveredAt *time.Time
	ReadAt      *time.Time
}

type RawPresence struct {
	ChatJID   string
	Available bool
	// Unavailable is the transport's explicit offline flag; it coexists
	// with State in some wire encodings, so it is carried separately.
	Unavailable bool
	// State is the chat-level sub-state ("composing", "paused", ...) or
	// empty for plain online/offline updates.
	State    string
	LastSeen time.Time
}

// ReceiptUpdate is the single highest-priority status derived from one
// receipt record.
type ReceiptUpdate struct {
	MessageID string
	Status    domain.Status
}

type PresenceUpdate struct {
	ChatID   string
	IsOnline bool
	IsTyping bool
	LastSeen *time.Time
}

type ConnState string

const (
	StateOpening ConnState = "opening"
	StateOpen    ConnState = "open"
	StateClosed  ConnState = "closed"
)

type ConnectionUpdate struct {
	State  ConnState
	Reason string
	// LoggedOut marks a close caused by explicit logout; everything else
	// is reconnect-worthy.
	LoggedOut bool
}
