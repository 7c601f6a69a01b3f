package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for the session store.
)

// WhatsAppConfig holds the WhatsApp transport configuration.
type WhatsAppConfig struct {
	// SessionDB is the SQLite file holding the whatsmeow session tables.
	SessionDB string `yaml:"session_db"`

	// DeviceName is shown in the WhatsApp linked devices list.
	DeviceName string `yaml:"device_name"`

	// MaxMediaSizeMB caps incoming media downloads.
	MaxMediaSizeMB int `yaml:"max_media_size_mb"`

	// ReconnectBackoff is the initial backoff for reconnection attempts.
	ReconnectBackoff time.Duration `yaml:"reconnect_backoff"`

	// MaxReconnectAttempts limits reconnection tries (0 = unlimited).
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
}

// DefaultWhatsAppConfig returns a config with sensible defaults.
func DefaultWhatsAppConfig() WhatsAppConfig {
	return WhatsAppConfig{
		SessionDB:            "./data/whatsapp.db",
		DeviceName:           "Botti",
		MaxMediaSizeMB:       16,
		ReconnectBackoff:     5 * time.Second,
		MaxReconnectAttempts: 10,
	}
}

// WhatsApp implements Gateway over whatsmeow.
type WhatsApp struct {
	cfg    WhatsAppConfig
	client *whatsmeow.Client
	logger *slog.Logger

	events       chan *Event
	eventsClosed atomic.Bool

	connected         atomic.Bool
	errorCount        atomic.Int64
	reconnectAttempts atomic.Int32
	reconnectGuard    atomic.Bool

	// QRFunc receives login QR codes. Set before Connect; defaults to
	// logging the raw code.
	QRFunc func(code string)

	// HistoryFunc receives messages recovered from history sync so the
	// conversation store can be seeded. Optional.
	HistoryFunc func(msgs []HistoryMessage)

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
}

var _ Gateway = (*WhatsApp)(nil)

// NewWhatsApp creates a WhatsApp gateway.
func NewWhatsApp(cfg WhatsAppConfig, logger *slog.Logger) *WhatsApp {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = 5 * time.Second
	}
	if cfg.MaxMediaSizeMB == 0 {
		cfg.MaxMediaSizeMB = 16
	}
	if cfg.DeviceName == "" {
		cfg.DeviceName = "Botti"
	}
	return &WhatsApp{
		cfg:    cfg,
		logger: logger.With("component", "whatsapp"),
		events: make(chan *Event, 256),
	}
}

// Connect initializes the session store and connects. When no session is
// linked yet, the QR login flow runs in the background and codes are
// delivered through QRFunc.
func (w *WhatsApp) Connect(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.logger.Info("whatsapp: initializing connection", "session_db", w.cfg.SessionDB)

	if dir := filepath.Dir(w.cfg.SessionDB); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating session dir: %w", err)
		}
	}

	container, err := sqlstore.New(w.ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL", w.cfg.SessionDB),
		waLog.Noop)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}

	device, err := w.getDevice(w.ctx, container)
	if err != nil {
		return fmt.Errorf("getting device: %w", err)
	}

	store.SetOSInfo(w.cfg.DeviceName, [3]uint32{1, 0, 0})

	w.client = whatsmeow.NewClient(device, waLog.Noop)
	w.client.AddEventHandler(w.handleEvent)
	w.client.EnableAutoReconnect = true
	w.client.InitialAutoReconnect = true

	if w.client.Store.ID == nil {
		w.logger.Info("whatsapp: no existing session, QR scan required")
		go func() {
			if err := w.loginWithQR(w.ctx); err != nil {
				w.logger.Warn("whatsapp: QR login pending", "error", err)
			}
		}()
		return nil
	}

	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}

	w.connected.Store(true)
	w.logger.Info("whatsapp: connected (existing session)", "jid", w.selfJID())
	return nil
}

// Disconnect closes the connection and the event stream. The close is
// taken under the write lock so an in-flight emit can never send on the
// closed channel.
func (w *WhatsApp) Disconnect() error {
	w.connected.Store(false)
	if w.cancel != nil {
		w.cancel()
	}
	if w.client != nil {
		w.client.Disconnect()
	}
	w.mu.Lock()
	if w.eventsClosed.CompareAndSwap(false, true) {
		close(w.events)
	}
	w.mu.Unlock()
	w.logger.Info("whatsapp: disconnected")
	return nil
}

// IsConnected reports whether the transport is up.
func (w *WhatsApp) IsConnected() bool { return w.connected.Load() }

// Events returns the incoming event stream.
func (w *WhatsApp) Events() <-chan *Event { return w.events }

func (w *WhatsApp) selfJID() string {
	if w.client != nil && w.client.Store.ID != nil {
		return w.client.Store.ID.String()
	}
	return ""
}

// getDevice retrieves the existing linked device or creates a new one.
func (w *WhatsApp) getDevice(ctx context.Context, container *sqlstore.Container) (*store.Device, error) {
	devices, err := container.GetAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) > 0 {
		return devices[0], nil
	}
	return container.NewDevice(), nil
}

// loginWithQR runs the QR pairing flow until success or timeout.
func (w *WhatsApp) loginWithQR(ctx context.Context) error {
	qrChan, err := w.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("getting QR channel: %w", err)
	}
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connecting for QR: %w", err)
	}

	w.logger.Info("whatsapp: waiting for QR code scan")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-qrChan:
			if !ok {
				return fmt.Errorf("QR channel closed unexpectedly")
			}
			switch evt.Event {
			case "code":
				w.logger.Info("whatsapp: QR code ready")
				if w.QRFunc != nil {
					w.QRFunc(evt.Code)
				} else {
					w.logger.Info("whatsapp: scan to link", "code", evt.Code)
				}
			case "success":
				w.connected.Store(true)
				w.reconnectAttempts.Store(0)
				w.logger.Info("whatsapp: login successful", "jid", w.selfJID())
				return nil
			case "timeout":
				w.logger.Warn("whatsapp: QR code expired")
				return fmt.Errorf("QR code timeout")
			default:
				if evt.Error != nil {
					return fmt.Errorf("QR login error: %v", evt.Error)
				}
			}
		}
	}
}

// attemptReconnect retries the connection with linear backoff. Guarded so
// only one attempt loop runs at a time.
func (w *WhatsApp) attemptReconnect() {
	if !w.reconnectGuard.CompareAndSwap(false, true) {
		return
	}
	defer w.reconnectGuard.Store(false)

	for {
		if w.ctx.Err() != nil {
			return
		}

		attempts := w.reconnectAttempts.Add(1)
		if w.cfg.MaxReconnectAttempts > 0 && attempts > int32(w.cfg.MaxReconnectAttempts) {
			w.logger.Error("whatsapp: max reconnect attempts reached", "attempts", attempts)
			return
		}

		backoff := min(w.cfg.ReconnectBackoff*time.Duration(attempts), 5*time.Minute)
		w.logger.Info("whatsapp: attempting reconnect", "attempt", attempts, "backoff", backoff)

		select {
		case <-time.After(backoff):
		case <-w.ctx.Done():
			return
		}

		if w.client == nil {
			return
		}
		if w.client.IsConnected() {
			w.client.Disconnect()
			time.Sleep(100 * time.Millisecond)
		}
		if err := w.client.Connect(); err != nil {
			w.logger.Warn("whatsapp: reconnect attempt failed", "attempt", attempts, "error", err)
			continue
		}
		return
	}
}

// emit delivers an event to the stream, dropping when the consumer
// stalls. The read lock holds Disconnect's close off until the send has
// resolved; the select never blocks, so the lock is held only briefly.
func (w *WhatsApp) emit(evt *Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.eventsClosed.Load() {
		return
	}
	select {
	case w.events <- evt:
	case <-w.ctx.Done():
	default:
		w.logger.Warn("whatsapp: event channel full, dropping", "from", evt.SenderJID)
	}
}

// MarkRead sends read receipts for the given message IDs.
func (w *WhatsApp) MarkRead(ctx context.Context, chatJID string, messageIDs []string) error {
	if !w.connected.Load() {
		return nil
	}
	jid, err := parseJID(chatJID)
	if err != nil {
		return err
	}
	ids := make([]types.MessageID, len(messageIDs))
	for i, id := range messageIDs {
		ids[i] = types.MessageID(id)
	}
	return w.client.MarkRead(ctx, ids, time.Now(), jid, jid)
}

// SetTyping toggles the composing indicator in the chat.
func (w *WhatsApp) SetTyping(ctx context.Context, to string, typing bool) error {
	if !w.connected.Load() {
		return nil
	}
	jid, err := parseJID(to)
	if err != nil {
		return err
	}
	state := types.ChatPresencePaused
	if typing {
		state = types.ChatPresenceComposing
	}
	return w.client.SendChatPresence(ctx, jid, state, types.ChatPresenceMediaText)
}
