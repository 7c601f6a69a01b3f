package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.mau.fi/whatsmeow"
	waE2E "go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"
)

// SendText sends a plain text message.
func (w *WhatsApp) SendText(ctx context.Context, to, text string) error {
	if !w.connected.Load() {
		return ErrDisconnected
	}
	jid, err := parseJID(to)
	if err != nil {
		return fmt.Errorf("invalid JID %q: %w", to, err)
	}

	msg := &waE2E.Message{
		Conversation: proto.String(text),
	}
	if _, err := w.client.SendMessage(ctx, jid, msg); err != nil {
		w.errorCount.Add(1)
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// SendImage uploads and sends an image file with an optional caption.
func (w *WhatsApp) SendImage(ctx context.Context, to, path, caption string) error {
	if !w.connected.Load() {
		return ErrDisconnected
	}
	jid, err := parseJID(to)
	if err != nil {
		return fmt.Errorf("invalid JID %q: %w", to, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image %s: %w", path, err)
	}

	uploaded, err := w.client.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		w.errorCount.Add(1)
		return fmt.Errorf("uploading image: %w", err)
	}

	msg := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(detectMime(path, data)),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		},
	}
	if _, err := w.client.SendMessage(ctx, jid, msg); err != nil {
		w.errorCount.Add(1)
		return fmt.Errorf("sending image: %w", err)
	}
	return nil
}

// SendAudio uploads and sends an audio file.
func (w *WhatsApp) SendAudio(ctx context.Context, to, path string) error {
	if !w.connected.Load() {
		return ErrDisconnected
	}
	jid, err := parseJID(to)
	if err != nil {
		return fmt.Errorf("invalid JID %q: %w", to, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading audio %s: %w", path, err)
	}

	uploaded, err := w.client.Upload(ctx, data, whatsmeow.MediaAudio)
	if err != nil {
		w.errorCount.Add(1)
		return fmt.Errorf("uploading audio: %w", err)
	}

	msg := &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{
			Mimetype:      proto.String(detectMime(path, data)),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
		},
	}
	if _, err := w.client.SendMessage(ctx, jid, msg); err != nil {
		w.errorCount.Add(1)
		return fmt.Errorf("sending audio: %w", err)
	}
	return nil
}

// detectMime resolves a mime type from the file extension, falling back
// to content sniffing.
func detectMime(path string, data []byte) string {
	switch filepath.Ext(path) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg; codecs=opus"
	}
	return http.DetectContentType(data)
}
