package wa

import (
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/ariel-naviandana/chat-cs/internal/domain"
	"github.com/ariel-naviandana/chat-cs/internal/transport"
)

func rawFromMessage(evt *events.Message) transport.RawMessage {
	raw := transport.RawMessage{
		ID:        evt.Info.ID,
		ChatJID:   evt.Info.Chat.String(),
		SenderJID: evt.Info.Sender.String(),
		FromMe:    evt.Info.IsFromMe,
		Timestamp: evt.Info.Timestamp,
	}
	if !evt.Info.SenderAlt.IsEmpty() {
		raw.ChatJIDAlt = evt.Info.SenderAlt.String()
	}
	if evt.Message == nil {
		return raw
	}
	raw.Text = extractText(evt.Message)
	raw.Media = extractMedia(evt.Message)
	raw.QuotedID = extractQuotedID(evt.Message)
	return raw
}

func extractText(msg *waE2E.Message) string {
	switch {
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage().GetCaption() != "":
		return msg.GetDocumentMessage().GetCaption()
	}
	return ""
}

func extractMedia(msg *waE2E.Message) *domain.Media {
	if im := msg.GetImageMessage(); im != nil {
		return &domain.Media{Type: domain.MediaImage, URL: im.GetURL(), MimeType: im.GetMimetype()}
	}
	if vi := msg.GetVideoMessage(); vi != nil {
		return &domain.Media{Type: domain.MediaVideo, URL: vi.GetURL(), MimeType: vi.GetMimetype()}
	}
	if au := msg.GetAudioMessage(); au != nil {
		return &domain.Media{Type: domain.MediaAudio, URL: au.GetURL(), MimeType: au.GetMimetype()}
	}
	if st := msg.GetStickerMessage(); st != nil {
		return &domain.Media{Type: domain.MediaSticker, URL: st.GetURL(), MimeType: st.GetMimetype()}
	}
	if doc := msg.GetDocumentMessage(); doc != nil {
		return &domain.Media{
			Type:     domain.MediaDocument,
			URL:      doc.GetURL(),
			MimeType: doc.GetMimetype(),
			FileName: doc.GetFileName(),
		}
	}
	return nil
}

func extractQuotedID(msg *waE2E.Message) string {
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetContextInfo().GetStanzaID()
	}
	return ""
}

func rawFromReceipt(evt *events.Receipt) []transport.RawReceipt {
	ts := evt.Timestamp
	batch := make([]transport.RawReceipt, 0, len(evt.MessageIDs))
	for _, id := range evt.MessageIDs {
		r := transport.RawReceipt{MessageID: id}
		switch evt.Type {
		case types.ReceiptTypeRead, types.ReceiptTypeReadSelf:
			r.ReadAt = &ts
		case types.ReceiptTypeDelivered:
			r.DeliveredAt = &ts
		default:
			// sender/retry/played receipts carry no status we track.
			continue
		}
		batch = append(batch, r)
	}
	return batch
}
