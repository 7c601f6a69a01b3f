package assistant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bottihq/botti/pkg/botti/extract"
	"github.com/bottihq/botti/pkg/botti/gateway"
	"github.com/bottihq/botti/pkg/botti/llm"
	"github.com/bottihq/botti/pkg/botti/session"
	"github.com/bottihq/botti/pkg/botti/store"
)

// process runs one event through the pipeline. Stages either pass the
// event on or drop it; a drop is silent from the user's point of view.
func (a *Assistant) process(ctx context.Context, evt *gateway.Event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("pipeline panic", "event_id", evt.ID, "panic", r)
		}
	}()

	userID := userIDFromJID(evt.ChatJID)
	log := a.logger.With("user", userID, "event_id", evt.ID)

	// Stale messages arrive after reconnects and history replays.
	// Answering them now would confuse the conversation.
	if age := a.now().Sub(evt.Timestamp); age > a.cfg.Staleness {
		log.Info("dropping stale message", "age", age.Round(time.Second))
		return
	}

	// Never react to our own messages: that path is a feedback loop.
	if evt.IsFromMe {
		return
	}

	// One-on-one text conversation only. Groups, edits and view-once
	// messages are out of scope for responses.
	if evt.IsGroup || evt.IsEdit || evt.IsViewOnce {
		log.Debug("dropping event", "group", evt.IsGroup, "edit", evt.IsEdit, "view_once", evt.IsViewOnce)
		return
	}

	if err := a.gw.MarkRead(ctx, evt.ChatJID, []string{evt.ID}); err != nil {
		log.Warn("mark read failed", "error", err)
	}

	// Rate limit before any model or network work.
	if !a.sessions.Allow(userID, a.now()) {
		log.Info("rate limit reached, suppressing response")
		return
	}

	// Command interception. Commands never touch conversation history.
	if strings.HasPrefix(strings.TrimSpace(evt.Text), "!") {
		a.handleCommand(ctx, evt, userID, log)
		return
	}

	// First contact is decided before persisting this message.
	priorCount, err := a.store.Count(ctx, userID)
	if err != nil {
		log.Error("counting history failed", "error", err)
		return
	}

	if err := a.store.Append(ctx, store.Message{
		UserID:    userID,
		Content:   evt.Text,
		Timestamp: evt.Timestamp.Unix(),
		FromMe:    false,
	}); err != nil {
		log.Error("persisting message failed", "error", err)
		return
	}

	// Paused messages are stored but never answered.
	if a.paused.Load() {
		log.Info("assistant paused, message stored without reply")
		return
	}

	_ = a.gw.SetTyping(ctx, evt.ChatJID, true)
	defer func() { _ = a.gw.SetTyping(ctx, evt.ChatJID, false) }()

	if priorCount == 0 && a.cfg.Greeting {
		a.sendGreeting(ctx, evt, userID, log)
	}

	if a.cfg.ScrapeLinks {
		a.handleLink(ctx, evt, userID, log)
	}
	if a.cfg.IngestFiles {
		a.ingestAttachment(ctx, evt, userID, log)
	}

	toolStart := a.now()
	toolResult := a.resolveTool(ctx, evt, userID, log)

	answer, err := a.finalAnswer(ctx, evt, userID, toolResult)
	if err != nil {
		log.Error("final response failed", "error", err)
		return
	}
	if answer == "" {
		log.Warn("empty final response, nothing to send")
		return
	}

	// Pacing: the reply should land a few seconds after the tool pass
	// started, so answers read as typed rather than instant.
	if remaining := a.pacingDelay() - a.now().Sub(toolStart); remaining > 0 {
		a.sleep(ctx, remaining)
	}
	if ctx.Err() != nil {
		return
	}

	a.deliver(ctx, evt.ChatJID, userID, answer, log)
}

// sendGreeting handles the first message from a new user.
func (a *Assistant) sendGreeting(ctx context.Context, evt *gateway.Event, userID string, log logLike) {
	name := evt.PushName
	if name == "" {
		name = "User"
	}
	greeting, err := a.llm.CompleteShort(ctx,
		greetingPrompt(a.cfg.AssistantName, name, evt.Text), evt.Text)
	if err != nil {
		log.Warn("greeting generation failed", "error", err)
		return
	}
	a.deliver(ctx, evt.ChatJID, userID, greeting, log)
	log.Info("sent first-contact greeting")
}

// handleLink scrapes the first URL in the message, after telling the user
// to hold on. Scraped text lands in the session content cache so the tool
// pass and the final answer both see it.
func (a *Assistant) handleLink(ctx context.Context, evt *gateway.Event, userID string, log logLike) {
	link := extract.FindFirstURL(evt.Text)
	if link == "" {
		return
	}
	log.Info("link detected", "url", link)

	wait, err := a.llm.CompleteShort(ctx, waitPrompt(evt.Text), evt.Text)
	if err != nil {
		log.Warn("wait message generation failed", "error", err)
		wait = "Hetkinen, tarkistan linkin... / One moment, checking the link..."
	}
	a.deliver(ctx, evt.ChatJID, userID, wait, log)

	content, err := a.extract.ScrapeURL(ctx, link)
	if err != nil {
		log.Warn("link scrape failed", "url", link, "error", err)
		a.sessions.AppendContent(userID, session.ContentItem{
			Kind: session.KindLink, Source: link, Err: err.Error(),
		})
		return
	}
	a.sessions.AppendContent(userID, session.ContentItem{
		Kind: session.KindLink, Source: link, Content: content,
	})
}

// ingestAttachment converts incoming media into session content: images
// become the latest-image slot plus a description, audio becomes
// transcribed text, documents become extracted text.
func (a *Assistant) ingestAttachment(ctx context.Context, evt *gateway.Event, userID string, log logLike) {
	att := evt.Attachment
	if att == nil {
		return
	}
	if len(att.Data) == 0 {
		log.Warn("attachment has no data", "kind", att.Kind)
		return
	}

	switch att.Kind {
	case gateway.AttachmentImage:
		path, err := a.stageFile(att.Data, extFromMime(att.MimeType))
		if err != nil {
			log.Warn("staging image failed", "error", err)
			return
		}
		a.sessions.SetLatestImage(userID, path)

		desc, err := a.llm.DescribeImage(ctx, llm.ImageDataURL(att.Data, att.MimeType), "")
		if err != nil {
			log.Warn("image description failed", "error", err)
			a.sessions.AppendContent(userID, session.ContentItem{
				Kind: session.KindImage, Source: path, Err: err.Error(),
			})
			return
		}
		a.sessions.AppendContent(userID, session.ContentItem{
			Kind: session.KindImage, Source: path, Content: desc,
		})

	case gateway.AttachmentAudio:
		transcript, err := a.llm.Transcribe(ctx, att.Data, att.Filename)
		if err != nil {
			log.Warn("transcription failed", "error", err)
			a.sessions.AppendContent(userID, session.ContentItem{
				Kind: session.KindAudio, Source: att.Filename, Err: err.Error(),
			})
			return
		}
		// The transcript is what the user said; treat it as the message.
		if evt.Text == "" {
			evt.Text = transcript
		} else {
			evt.Text += "\n" + transcript
		}
		a.sessions.AppendContent(userID, session.ContentItem{
			Kind: session.KindAudio, Source: att.Filename, Content: transcript,
		})

	case gateway.AttachmentDocument:
		text, err := a.extract.ConvertDocument(att.Filename, att.MimeType, att.Data)
		if err != nil {
			log.Warn("document conversion failed", "file", att.Filename, "error", err)
			a.sessions.AppendContent(userID, session.ContentItem{
				Kind: session.KindDocument, Source: att.Filename, Err: err.Error(),
			})
			return
		}
		a.sessions.AppendContent(userID, session.ContentItem{
			Kind: session.KindDocument, Source: att.Filename, Content: text,
		})
	}
}

// finalAnswer generates the reply from scenario persona, recent history
// and session content.
func (a *Assistant) finalAnswer(ctx context.Context, evt *gateway.Event, userID, toolResult string) (string, error) {
	recent, err := a.store.ListRecent(ctx, userID, a.cfg.HistoryWindow)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}
	prompt := finalResponsePrompt(
		a.cfg.AssistantName,
		a.scenario.ResponsePrompt,
		store.FormatHistory(recent),
		a.sessions.FormatContent(userID),
		toolResult,
	)
	return a.llm.Complete(ctx, prompt, evt.Text)
}

// deliver sends a text reply, persists it and counts it against the rate
// window.
func (a *Assistant) deliver(ctx context.Context, chatJID, userID, text string, log logLike) {
	if err := a.gw.SendText(ctx, chatJID, text); err != nil {
		log.Error("sending reply failed", "error", err)
		return
	}
	if err := a.store.Append(ctx, store.Message{
		UserID:    userID,
		Content:   text,
		Timestamp: a.now().Unix(),
		FromMe:    true,
	}); err != nil {
		log.Warn("persisting reply failed", "error", err)
	}
	a.sessions.Record(userID, a.now())
}

// stageFile writes bytes under DownloadDir with a unique name.
func (a *Assistant) stageFile(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(a.cfg.DownloadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}
	path := filepath.Join(a.cfg.DownloadDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

func extFromMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/png"):
		return ".png"
	case strings.HasPrefix(mime, "image/webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}

// logLike is the slog surface the stage helpers need.
type logLike interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
