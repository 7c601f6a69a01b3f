// Package gateway abstracts the chat transport. The production
// implementation speaks WhatsApp Web via whatsmeow; tests use an in-memory
// fake.
package gateway

import (
	"context"
	"errors"
	"time"
)

// ErrDisconnected is returned by send operations while the transport is down.
var ErrDisconnected = errors.New("gateway disconnected")

// AttachmentKind classifies incoming media.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment is downloaded media from an incoming message.
type Attachment struct {
	Kind     AttachmentKind
	MimeType string
	Filename string
	Caption  string
	Data     []byte
}

// Event is one incoming message, converted from the transport's native
// format. Events are emitted unfiltered; the processing pipeline decides
// what to drop.
type Event struct {
	ID        string
	ChatJID   string
	SenderJID string
	PushName  string
	Timestamp time.Time
	Text      string

	IsFromMe   bool
	IsGroup    bool
	IsEdit     bool
	IsViewOnce bool

	Attachment *Attachment
}

// HistoryMessage is one message recovered from the transport's history
// sync, used to seed the conversation store on first link.
type HistoryMessage struct {
	ChatJID   string
	Text      string
	Timestamp time.Time
	FromMe    bool
}

// Gateway is the chat transport surface the assistant runs on.
type Gateway interface {
	// Connect establishes the transport connection. First-time logins
	// run asynchronously (QR scan) and resolve in the background.
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	// Events returns the incoming event stream. Closed on Disconnect.
	Events() <-chan *Event

	SendText(ctx context.Context, to, text string) error
	SendImage(ctx context.Context, to, path, caption string) error
	SendAudio(ctx context.Context, to, path string) error

	MarkRead(ctx context.Context, chatJID string, messageIDs []string) error
	SetTyping(ctx context.Context, to string, typing bool) error
}
