package gateway

import (
	"fmt"
	"strings"
	"time"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// handleEvent is the main whatsmeow event dispatcher.
func (w *WhatsApp) handleEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Message:
		w.handleMessageEvt(evt)

	case *events.Connected:
		w.connected.Store(true)
		w.errorCount.Store(0)
		w.reconnectAttempts.Store(0)
		w.logger.Info("whatsapp: connected", "jid", w.selfJID())

	case *events.Disconnected:
		wasConnected := w.connected.Swap(false)
		w.logger.Warn("whatsapp: disconnected", "was_connected", wasConnected)
		if wasConnected && w.ctx.Err() == nil {
			go w.attemptReconnect()
		}

	case *events.StreamReplaced:
		w.connected.Store(false)
		w.logger.Error("whatsapp: stream replaced, another device connected")

	case *events.LoggedOut:
		w.connected.Store(false)
		w.logger.Error("whatsapp: logged out, session invalidated", "reason", evt.Reason.String())
		go func() {
			if err := w.loginWithQR(w.ctx); err != nil {
				w.logger.Warn("whatsapp: QR re-login failed", "error", err)
			}
		}()

	case *events.TemporaryBan:
		w.connected.Store(false)
		w.logger.Error("whatsapp: temporary ban", "code", evt.Code, "expire", evt.Expire)

	case *events.KeepAliveTimeout:
		w.errorCount.Add(1)
		w.logger.Warn("whatsapp: keep-alive timeout", "error_count", evt.ErrorCount)
		if evt.ErrorCount >= 3 && w.connected.Load() {
			w.connected.Store(false)
			go w.attemptReconnect()
		}

	case *events.KeepAliveRestored:
		w.errorCount.Store(0)

	case *events.ConnectFailure:
		w.connected.Store(false)
		permanent := evt.PermanentDisconnectDescription()
		w.logger.Error("whatsapp: connect failure",
			"reason", evt.Reason.String(), "permanent", permanent)
		if permanent == "" && w.ctx.Err() == nil {
			go w.attemptReconnect()
		}

	case *events.HistorySync:
		w.handleHistorySync(evt)

	case *events.PairSuccess:
		w.logger.Info("whatsapp: device paired", "jid", evt.ID, "platform", evt.Platform)
	}
}

// handleMessageEvt converts an incoming message event and emits it. No
// filtering happens here; the pipeline owns those decisions.
func (w *WhatsApp) handleMessageEvt(evt *events.Message) {
	// Status broadcasts are noise, never user conversation.
	if evt.Info.Chat.Server == "broadcast" {
		return
	}

	out := &Event{
		ID:         string(evt.Info.ID),
		ChatJID:    w.resolveJID(evt.Info.Chat),
		SenderJID:  w.resolveJID(evt.Info.Sender),
		PushName:   evt.Info.PushName,
		Timestamp:  evt.Info.Timestamp,
		IsFromMe:   evt.Info.IsFromMe,
		IsGroup:    evt.Info.IsGroup,
		IsEdit:     evt.IsEdit,
		IsViewOnce: evt.IsViewOnce || evt.IsViewOnceV2,
	}

	w.extractContent(evt.Message, out)
	w.emit(out)
}

// resolveJID maps LID-format JIDs back to phone JIDs where possible, so
// the rest of the system keys on a stable identity.
func (w *WhatsApp) resolveJID(jid types.JID) string {
	if jid.Server == "lid" && w.client != nil && w.client.Store != nil {
		if altJID, err := w.client.Store.GetAltJID(w.ctx, jid); err == nil && !altJID.IsEmpty() {
			return altJID.String()
		}
	}
	return jid.String()
}

// extractContent pulls text and media out of the wire message. Media is
// downloaded eagerly, bounded by MaxMediaSizeMB, so the pipeline works
// with plain bytes.
func (w *WhatsApp) extractContent(waMsg *waE2E.Message, out *Event) {
	if waMsg == nil {
		return
	}

	// Edits wrap the replacement content in a protocol message.
	if proto := waMsg.ProtocolMessage; proto != nil && proto.EditedMessage != nil {
		out.IsEdit = true
		waMsg = proto.EditedMessage
	}

	if waMsg.Conversation != nil {
		out.Text = waMsg.GetConversation()
		return
	}
	if ext := waMsg.ExtendedTextMessage; ext != nil {
		out.Text = ext.GetText()
		return
	}

	maxBytes := uint64(w.cfg.MaxMediaSizeMB) * 1024 * 1024

	if img := waMsg.ImageMessage; img != nil {
		out.Text = img.GetCaption()
		att := &Attachment{
			Kind:     AttachmentImage,
			MimeType: img.GetMimetype(),
			Caption:  img.GetCaption(),
		}
		if img.GetFileLength() > maxBytes {
			w.logger.Warn("whatsapp: image too large, skipping download",
				"bytes", img.GetFileLength())
		} else if data, err := w.client.Download(w.ctx, img); err != nil {
			w.logger.Warn("whatsapp: image download failed", "error", err)
		} else {
			att.Data = data
		}
		out.Attachment = att
		return
	}

	if audio := waMsg.AudioMessage; audio != nil {
		att := &Attachment{
			Kind:     AttachmentAudio,
			MimeType: audio.GetMimetype(),
			Filename: "voice.ogg",
		}
		if audio.GetFileLength() > maxBytes {
			w.logger.Warn("whatsapp: audio too large, skipping download",
				"bytes", audio.GetFileLength())
		} else if data, err := w.client.Download(w.ctx, audio); err != nil {
			w.logger.Warn("whatsapp: audio download failed", "error", err)
		} else {
			att.Data = data
		}
		out.Attachment = att
		return
	}

	if doc := waMsg.DocumentMessage; doc != nil {
		out.Text = doc.GetCaption()
		att := &Attachment{
			Kind:     AttachmentDocument,
			MimeType: doc.GetMimetype(),
			Filename: doc.GetFileName(),
			Caption:  doc.GetCaption(),
		}
		if doc.GetFileLength() > maxBytes {
			w.logger.Warn("whatsapp: document too large, skipping download",
				"bytes", doc.GetFileLength())
		} else if data, err := w.client.Download(w.ctx, doc); err != nil {
			w.logger.Warn("whatsapp: document download failed", "error", err)
		} else {
			att.Data = data
		}
		out.Attachment = att
		return
	}

	if video := waMsg.VideoMessage; video != nil {
		out.Text = video.GetCaption()
		if out.Text == "" {
			out.Text = "[video]"
		}
		return
	}

	if sticker := waMsg.StickerMessage; sticker != nil {
		out.Text = "[sticker]"
		return
	}

	if loc := waMsg.LocationMessage; loc != nil {
		out.Text = fmt.Sprintf("[location: %.6f, %.6f]",
			loc.GetDegreesLatitude(), loc.GetDegreesLongitude())
		return
	}

	if contact := waMsg.ContactMessage; contact != nil {
		out.Text = fmt.Sprintf("[contact: %s]", contact.GetDisplayName())
		return
	}
}

// handleHistorySync forwards plain text messages from the initial history
// sync so the conversation store can be backfilled.
func (w *WhatsApp) handleHistorySync(evt *events.HistorySync) {
	if w.HistoryFunc == nil {
		w.logger.Debug("whatsapp: history sync received, no handler")
		return
	}

	var msgs []HistoryMessage
	for _, conv := range evt.Data.GetConversations() {
		chatJID := conv.GetID()
		for _, histMsg := range conv.GetMessages() {
			webMsg := histMsg.GetMessage()
			if webMsg == nil {
				continue
			}
			text := webMsg.GetMessage().GetConversation()
			if text == "" {
				text = webMsg.GetMessage().GetExtendedTextMessage().GetText()
			}
			if text == "" {
				continue
			}
			msgs = append(msgs, HistoryMessage{
				ChatJID:   chatJID,
				Text:      text,
				Timestamp: time.Unix(int64(webMsg.GetMessageTimestamp()), 0),
				FromMe:    webMsg.GetKey().GetFromMe(),
			})
		}
	}

	if len(msgs) > 0 {
		w.logger.Info("whatsapp: history sync", "messages", len(msgs))
		w.HistoryFunc(msgs)
	}
}

// parseJID converts a string JID to types.JID. Accepts bare phone numbers
// ("358401234567"), user JIDs and group JIDs.
func parseJID(s string) (types.JID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.JID{}, fmt.Errorf("empty JID")
	}

	if strings.Contains(s, "@") {
		return types.ParseJID(s)
	}

	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(digits) < 10 {
		return types.JID{}, fmt.Errorf("phone number too short: %s", s)
	}
	return types.NewJID(digits, types.DefaultUserServer), nil
}
