package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bottihq/botti/pkg/botti/extract"
	"github.com/bottihq/botti/pkg/botti/gateway"
	"github.com/bottihq/botti/pkg/botti/llm"
	"github.com/bottihq/botti/pkg/botti/scenario"
	"github.com/bottihq/botti/pkg/botti/session"
	"github.com/bottihq/botti/pkg/botti/store"
)

// Completer is the slice of the completion service the pipeline uses.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
	CompleteShort(ctx context.Context, systemPrompt, userText string) (string, error)
	CompleteWithTools(ctx context.Context, systemPrompt, userText string, tools []llm.ToolDefinition) (*llm.ToolCall, error)
	DescribeImage(ctx context.Context, dataURL, prompt string) (string, error)
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// MediaGenerator produces image and speech files.
type MediaGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	EditImage(ctx context.Context, image []byte, instructions string) (string, error)
	SpeakText(ctx context.Context, text string) (string, error)
}

// Extractor turns links, documents and search queries into text.
type Extractor interface {
	ScrapeURL(ctx context.Context, pageURL string) (string, error)
	ConvertDocument(filename, mimeType string, data []byte) (string, error)
	Search(ctx context.Context, query string, maxResults int) ([]extract.SearchResult, error)
}

// Assistant runs the message processing pipeline: one worker consuming an
// unbounded FIFO of gateway events, so conversations are handled strictly
// in arrival order.
type Assistant struct {
	cfg      *Config
	gw       gateway.Gateway
	store    store.Store
	sessions *session.Store
	llm      Completer
	media    MediaGenerator
	extract  Extractor
	scenario *scenario.Scenario
	logger   *slog.Logger

	queue  *eventQueue
	paused atomic.Bool

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New wires an Assistant. The scenario is resolved from cfg.Scenario.
func New(cfg *Config, gw gateway.Gateway, st store.Store, sessions *session.Store,
	completer Completer, mediaGen MediaGenerator, extractor Extractor,
	registry *scenario.Registry, logger *slog.Logger) (*Assistant, error) {

	if logger == nil {
		logger = slog.Default()
	}
	scn, err := registry.Get(cfg.Scenario)
	if err != nil {
		return nil, err
	}

	return &Assistant{
		cfg:      cfg,
		gw:       gw,
		store:    st,
		sessions: sessions,
		llm:      completer,
		media:    mediaGen,
		extract:  extractor,
		scenario: scn,
		logger:   logger.With("component", "assistant"),
		queue:    newEventQueue(),
		now:      time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
		},
	}, nil
}

// Run starts the ingress pump and the pipeline worker, then blocks until
// ctx is cancelled and the worker drains.
func (a *Assistant) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if wa, ok := a.gw.(*gateway.WhatsApp); ok {
		wa.HistoryFunc = func(msgs []gateway.HistoryMessage) {
			a.importHistory(ctx, msgs)
		}
	}

	if err := a.gw.Connect(ctx); err != nil {
		return fmt.Errorf("connecting gateway: %w", err)
	}

	a.logger.Info("assistant running",
		"scenario", a.scenario.Name,
		"assistant_name", a.cfg.AssistantName,
		"admins", len(a.cfg.Admins),
	)

	// Ingress pump: gateway stream to unbounded queue.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				a.queue.Close()
				return
			case evt, ok := <-a.gw.Events():
				if !ok {
					a.queue.Close()
					return
				}
				a.queue.Push(evt)
				if depth := a.queue.Len(); depth > 8 {
					a.logger.Warn("ingress queue growing", "depth", depth)
				}
			}
		}
	}()

	// Single pipeline worker: one conversation turn at a time, in
	// arrival order.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			evt, ok := a.queue.Pop()
			if !ok {
				return
			}
			a.process(ctx, evt)
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	return nil
}

// Stop cancels the run context and disconnects the gateway.
func (a *Assistant) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	_ = a.gw.Disconnect()
	a.sessions.StopPruning()
}

// importHistory backfills the conversation store from a transport history
// sync. Append is idempotent, so replays are harmless.
func (a *Assistant) importHistory(ctx context.Context, msgs []gateway.HistoryMessage) {
	imported := 0
	for _, m := range msgs {
		err := a.store.Append(ctx, store.Message{
			UserID:    userIDFromJID(m.ChatJID),
			Content:   m.Text,
			Timestamp: m.Timestamp.Unix(),
			FromMe:    m.FromMe,
		})
		if err != nil {
			a.logger.Warn("history import failed", "error", err)
			continue
		}
		imported++
	}
	a.logger.Info("history imported", "messages", imported)
}

// pacingDelay returns a random delay in [PacingMin, PacingMax] applied
// before delivery so replies read as typed, not instant.
func (a *Assistant) pacingDelay() time.Duration {
	span := a.cfg.PacingMax - a.cfg.PacingMin
	if span <= 0 {
		return a.cfg.PacingMin
	}
	return a.cfg.PacingMin + time.Duration(rand.Int63n(int64(span)+1))
}

// isAdmin reports whether the sender may run ! commands. Matching is on
// the user part so device suffixes and servers don't matter.
func (a *Assistant) isAdmin(senderJID string) bool {
	sender := userIDFromJID(senderJID)
	for _, admin := range a.cfg.Admins {
		if userIDFromJID(admin) == sender {
			return true
		}
	}
	return false
}

// userIDFromJID reduces a JID to the stable user identifier (the phone
// number part, without device suffix or server).
func userIDFromJID(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		jid = jid[:i]
	}
	if i := strings.IndexByte(jid, ':'); i >= 0 {
		jid = jid[:i]
	}
	if i := strings.IndexByte(jid, '.'); i >= 0 {
		jid = jid[:i]
	}
	return jid
}
