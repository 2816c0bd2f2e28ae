package transport

import (
	"strings"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
)

const linkedDeviceSuffix = "@lid"

// NormalizeMessage converts a raw inbound record into a canonical Message.
// Returns false when the record must be dropped: self-originated echoes
// (those are confirmations of our own sends, re-emitting them would
// duplicate the message in the UI) and records with no renderable content.
func NormalizeMessage(raw RawMessage) (domain.Message, bool) {
	if raw.FromMe {
		return domain.Message{}, false
	}

	chatID := raw.ChatJID
	if strings.HasSuffix(chatID, linkedDeviceSuffix) {
		// Linked-device routing id; substitute the canonical conversation
		// id, falling back to the sender.
		switch {
		case raw.ChatJIDAlt != "":
			chatID = raw.ChatJIDAlt
		case raw.SenderJID != "":
			chatID = raw.SenderJID
		}
	}

	from := raw.SenderJID
	if from == "" {
		from = chatID
	}

	msg := domain.Message{
		ID:              raw.ID,
		ChatID:          chatID,
		From:            from,
		FromMe:          false,
		Text:            raw.Text,
		Media:           raw.Media,
		QuotedMessageID: raw.QuotedID,
		Status:          domain.StatusDelivered,
		Timestamp:       raw.Timestamp,
	}
	if !msg.HasContent() {
		return domain.Message{}, false
	}
	return msg, true
}

// NormalizeReceipts reduces a receipt batch to at most one status update per
// record. A record carrying both timestamps yields only read; records with
// neither are discarded.
func NormalizeReceipts(batch []RawReceipt) []ReceiptUpdate {
	out := make([]ReceiptUpdate, 0, len(batch))
	for _, r := range batch {
		if r.MessageID == "" {
			continue
		}
		switch {
		case r.ReadAt != nil:
			out = append(out, ReceiptUpdate{MessageID: r.MessageID, Status: domain.StatusRead})
		case r.DeliveredAt != nil:
			out = append(out, ReceiptUpdate{MessageID: r.MessageID, Status: domain.StatusDelivered})
		}
	}
	return out
}

// NormalizePresence maps a raw presence record to the internal shape.
// IsTyping is true only for a non-unavailable composing sub-state; IsOnline
// is strictly the transport's available flag.
func NormalizePresence(raw RawPresence) PresenceUpdate {
	upd := PresenceUpdate{
		ChatID:   raw.ChatJID,
		IsOnline: raw.Available,
		IsTyping: !raw.Unavailable && raw.State == "composing",
	}
	if !raw.LastSeen.IsZero() {
		ls := raw.LastSeen
		upd.LastSeen = &ls
	}
	return upd
}
