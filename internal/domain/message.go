package domain

import "time"

// Status is the delivery lifecycle of a message. Transitions only move
// forward along sending -> sent -> delivered -> read; failed is a terminal
// escape reachable from sending or sent.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

var statusRank = map[Status]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// CanTransition reports whether a message may move from one status to
// another. failed is irreversible, and nothing moves backward.
func CanTransition(from, to Status) bool {
	if from == StatusFailed {
		return false
	}
	if to == StatusFailed {
		return from == StatusSending || from == StatusSent
	}
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// PriorStatuses returns every status a message may hold immediately before
// reaching to. Repository status updates filter on this set so replayed
// receipts are no-ops.
func PriorStatuses(to Status) []Status {
	var out []Status
	for _, s := range []Status{StatusSending, StatusSent, StatusDelivered, StatusRead} {
		if CanTransition(s, to) {
			out = append(out, s)
		}
	}
	return out
}

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
	MediaAudio    MediaType = "audio"
	MediaSticker  MediaType = "sticker"
)

type Media struct {
	Type     MediaType `bson:"type" json:"type"`
	URL      string    `bson:"url,omitempty" json:"url,omitempty"`
	MimeType string    `bson:"mime_type,omitempty" json:"mimeType,omitempty"`
	FileName string    `bson:"file_name,omitempty" json:"fileName,omitempty"`
}

// Message is the canonical record of one WhatsApp message. ID is the
// transport-assigned permanent identifier; it is empty on a provisional
// outgoing message and immutable once set.
type Message struct {
	ID              string    `bson:"_id" json:"id"`
	ChatID          string    `bson:"chat_id" json:"chatId"`
	From            string    `bson:"from" json:"from"`
	FromMe          bool      `bson:"from_me" json:"fromMe"`
	Text            string    `bson:"text,omitempty" json:"text,omitempty"`
	Media           *Media    `bson:"media,omitempty" json:"media,omitempty"`
	QuotedMessageID string    `bson:"quoted_message_id,omitempty" json:"quotedMessageId,omitempty"`
	Status          Status    `bson:"status" json:"status"`
	Timestamp       time.Time `bson:"timestamp" json:"timestamp"`
	IsPinned        bool      `bson:"is_pinned" json:"isPinned"`
}

// HasContent reports whether the message carries anything renderable.
func (m *Message) HasContent() bool {
	return m.Text != "" || m.Media != nil
}
