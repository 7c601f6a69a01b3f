package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bottihq/botti/pkg/botti/extract"
	"github.com/bottihq/botti/pkg/botti/gateway"
	"github.com/bottihq/botti/pkg/botti/llm"
	"github.com/bottihq/botti/pkg/botti/scenario"
	"github.com/bottihq/botti/pkg/botti/session"
	"github.com/bottihq/botti/pkg/botti/store"
)

// ---------- Fakes ----------

type sentText struct {
	to   string
	text string
}

type fakeGateway struct {
	mu         sync.Mutex
	events     chan *gateway.Event
	texts      []sentText
	images     []string
	audios     []string
	markedRead []string
	sendOrder  []string // "text" / "image" / "audio"
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{events: make(chan *gateway.Event, 16)}
}

func (g *fakeGateway) Connect(ctx context.Context) error { return nil }
func (g *fakeGateway) Disconnect() error                 { return nil }
func (g *fakeGateway) IsConnected() bool                 { return true }
func (g *fakeGateway) Events() <-chan *gateway.Event     { return g.events }

func (g *fakeGateway) SendText(ctx context.Context, to, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, sentText{to, text})
	g.sendOrder = append(g.sendOrder, "text")
	return nil
}

func (g *fakeGateway) SendImage(ctx context.Context, to, path, caption string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.images = append(g.images, path)
	g.sendOrder = append(g.sendOrder, "image")
	return nil
}

func (g *fakeGateway) SendAudio(ctx context.Context, to, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audios = append(g.audios, path)
	g.sendOrder = append(g.sendOrder, "audio")
	return nil
}

func (g *fakeGateway) MarkRead(ctx context.Context, chatJID string, ids []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markedRead = append(g.markedRead, ids...)
	return nil
}

func (g *fakeGateway) SetTyping(ctx context.Context, to string, typing bool) error { return nil }

func (g *fakeGateway) sentTexts() []sentText {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentText(nil), g.texts...)
}

type fakeLLM struct {
	mu           sync.Mutex
	answer       string
	toolCall     *llm.ToolCall
	description  string
	transcript   string
	completeErr  error
	finalPrompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.finalPrompts = append(f.finalPrompts, system)
	f.mu.Unlock()
	if f.completeErr != nil {
		return "", f.completeErr
	}
	if f.answer == "" {
		return "final answer", nil
	}
	return f.answer, nil
}

func (f *fakeLLM) CompleteShort(ctx context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "first interaction"):
		return "Hei! Olen tekoälyavustaja.", nil
	case strings.Contains(system, "language expert"):
		return "Hetkinen, tarkistan linkin...", nil
	}
	return "short", nil
}

func (f *fakeLLM) CompleteWithTools(ctx context.Context, system, user string, tools []llm.ToolDefinition) (*llm.ToolCall, error) {
	return f.toolCall, nil
}

func (f *fakeLLM) DescribeImage(ctx context.Context, dataURL, prompt string) (string, error) {
	if f.description == "" {
		return "an image", nil
	}
	return f.description, nil
}

func (f *fakeLLM) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if f.transcript == "" {
		return "", fmt.Errorf("no transcript configured")
	}
	return f.transcript, nil
}

func (f *fakeLLM) lastFinalPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.finalPrompts) == 0 {
		return ""
	}
	return f.finalPrompts[len(f.finalPrompts)-1]
}

type fakeMedia struct {
	dir string
}

func (f *fakeMedia) stage(name string) (string, error) {
	path := filepath.Join(f.dir, name)
	return path, os.WriteFile(path, []byte("fake"), 0o644)
}

func (f *fakeMedia) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return f.stage("generated.png")
}

func (f *fakeMedia) EditImage(ctx context.Context, image []byte, instructions string) (string, error) {
	return f.stage("edited.png")
}

func (f *fakeMedia) SpeakText(ctx context.Context, text string) (string, error) {
	return f.stage("speech.mp3")
}

type fakeExtractor struct {
	scraped   string
	scrapeErr error
	docText   string
	docErr    error
}

func (f *fakeExtractor) ScrapeURL(ctx context.Context, pageURL string) (string, error) {
	if f.scrapeErr != nil {
		return "", f.scrapeErr
	}
	return f.scraped, nil
}

func (f *fakeExtractor) ConvertDocument(filename, mimeType string, data []byte) (string, error) {
	if f.docErr != nil {
		return "", f.docErr
	}
	return f.docText, nil
}

func (f *fakeExtractor) Search(ctx context.Context, query string, maxResults int) ([]extract.SearchResult, error) {
	return []extract.SearchResult{{URL: "https://example.com", Snippet: "search snippet"}}, nil
}

// ---------- Harness ----------

type harness struct {
	a   *Assistant
	gw  *fakeGateway
	llm *fakeLLM
	ex  *fakeExtractor

	now    time.Time
	slept  []time.Duration
	userID string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Database = filepath.Join(dir, "botti.db")
	cfg.DownloadDir = filepath.Join(dir, "downloads")
	cfg.Admins = []string{"358400000001"}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := store.OpenSQLite(cfg.Database, logger)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	h := &harness{
		gw:     newFakeGateway(),
		llm:    &fakeLLM{},
		ex:     &fakeExtractor{scraped: "scraped page text"},
		now:    time.Now(),
		userID: "358401234567",
	}

	a, err := New(cfg, h.gw, st, session.NewStore(cfg.RateLimit, logger),
		h.llm, &fakeMedia{dir: dir}, h.ex,
		scenario.NewRegistry(scenario.NewBackend()), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.now = func() time.Time { return h.now }
	a.sleep = func(ctx context.Context, d time.Duration) { h.slept = append(h.slept, d) }
	h.a = a
	return h
}

func (h *harness) event(text string) *gateway.Event {
	return &gateway.Event{
		ID:        "MSG-" + fmt.Sprint(len(h.gw.texts)),
		ChatJID:   h.userID + "@s.whatsapp.net",
		SenderJID: h.userID + "@s.whatsapp.net",
		PushName:  "Matti",
		Timestamp: h.now,
		Text:      text,
	}
}

func (h *harness) adminEvent(text string) *gateway.Event {
	evt := h.event(text)
	evt.ChatJID = "358400000001@s.whatsapp.net"
	evt.SenderJID = "358400000001:12@s.whatsapp.net"
	return evt
}

// seed puts prior history in place so greeting logic stays out of the way.
func (h *harness) seed(t *testing.T) {
	t.Helper()
	err := h.a.store.Append(context.Background(), store.Message{
		UserID: h.userID, Content: "aiempi viesti", Timestamp: h.now.Add(-time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

// ---------- Pipeline Tests ----------

func TestDropsStaleMessages(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	evt := h.event("vanha viesti")
	evt.Timestamp = h.now.Add(-2 * time.Minute)

	h.a.process(context.Background(), evt)

	if len(h.gw.sentTexts()) != 0 {
		t.Errorf("stale message produced %d sends", len(h.gw.sentTexts()))
	}
}

func TestDropsOwnAndFilteredMessages(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	cases := map[string]func(*gateway.Event){
		"from me":   func(e *gateway.Event) { e.IsFromMe = true },
		"group":     func(e *gateway.Event) { e.IsGroup = true },
		"edit":      func(e *gateway.Event) { e.IsEdit = true },
		"view once": func(e *gateway.Event) { e.IsViewOnce = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			evt := h.event("hei")
			mutate(evt)
			h.a.process(context.Background(), evt)
			if len(h.gw.sentTexts()) != 0 {
				t.Errorf("%s message produced a reply", name)
			}
		})
	}
}

func TestMarkReadHappensForProcessedMessages(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	evt := h.event("hei")
	h.a.process(context.Background(), evt)

	if len(h.gw.markedRead) != 1 || h.gw.markedRead[0] != evt.ID {
		t.Errorf("markedRead = %v", h.gw.markedRead)
	}
}

func TestRateLimitSuppressesSixthResponse(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.a.process(ctx, h.event(fmt.Sprintf("viesti %d", i)))
	}
	if got := len(h.gw.sentTexts()); got != 5 {
		t.Fatalf("sends = %d, want 5", got)
	}

	h.a.process(ctx, h.event("kuudes"))
	if got := len(h.gw.sentTexts()); got != 5 {
		t.Errorf("sixth message within window produced a reply (sends = %d)", got)
	}

	// The window slides: half a minute later the user is served again.
	h.now = h.now.Add(31 * time.Second)
	h.a.process(ctx, h.event("myöhemmin"))
	if got := len(h.gw.sentTexts()); got != 6 {
		t.Errorf("sends after window = %d, want 6", got)
	}
}

func TestFirstContactGreeting(t *testing.T) {
	h := newHarness(t)
	h.a.process(context.Background(), h.event("moi"))

	texts := h.gw.sentTexts()
	if len(texts) != 2 {
		t.Fatalf("sends = %d, want greeting + answer", len(texts))
	}
	if !strings.Contains(texts[0].text, "tekoälyavustaja") {
		t.Errorf("first send should be the greeting, got %q", texts[0].text)
	}

	// Greeting is part of history.
	msgs, err := h.a.store.ListAll(context.Background(), h.userID)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	var greetingStored bool
	for _, m := range msgs {
		if m.FromMe && strings.Contains(m.Content, "tekoälyavustaja") {
			greetingStored = true
		}
	}
	if !greetingStored {
		t.Error("greeting not persisted")
	}

	// Second message from the same user: no second greeting.
	h.a.process(context.Background(), h.event("mitä kuuluu"))
	for _, s := range h.gw.sentTexts()[2:] {
		if strings.Contains(s.text, "tekoälyavustaja") {
			t.Error("greeting repeated on later message")
		}
	}
}

func TestDuplicateEventStoredOnce(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	evt := h.event("sama viesti")
	h.a.process(ctx, evt)
	h.a.process(ctx, evt)

	msgs, _ := h.a.store.ListAll(ctx, h.userID)
	inbound := 0
	for _, m := range msgs {
		if !m.FromMe && m.Content == "sama viesti" {
			inbound++
		}
	}
	if inbound != 1 {
		t.Errorf("duplicate event stored %d times", inbound)
	}
}

func TestLinkScrapeFlow(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.a.process(context.Background(), h.event("katso https://example.com/sivu"))

	texts := h.gw.sentTexts()
	if len(texts) != 2 {
		t.Fatalf("sends = %d, want wait notice + answer", len(texts))
	}
	if !strings.Contains(texts[0].text, "Hetkinen") {
		t.Errorf("first send should be the wait notice, got %q", texts[0].text)
	}
	if !strings.Contains(h.llm.lastFinalPrompt(), "scraped page text") {
		t.Error("scraped content missing from final prompt")
	}
}

func TestLinkScrapeFailureKeepsAnnotatedItem(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.ex.scrapeErr = fmt.Errorf("status 404")

	h.a.process(context.Background(), h.event("katso https://example.com/rikki"))

	prompt := h.llm.lastFinalPrompt()
	if !strings.Contains(prompt, "could not be read") || !strings.Contains(prompt, "404") {
		t.Errorf("failed scrape should surface as annotation, prompt = %q", prompt)
	}
	// Pipeline still answers.
	texts := h.gw.sentTexts()
	if len(texts) == 0 || texts[len(texts)-1].text != "final answer" {
		t.Error("final answer missing after scrape failure")
	}
}

func TestAudioTranscriptBecomesMessageText(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.llm.transcript = "puhuttu kysymys"

	evt := h.event("")
	evt.Attachment = &gateway.Attachment{
		Kind: gateway.AttachmentAudio, MimeType: "audio/ogg",
		Filename: "voice.ogg", Data: []byte("OggS"),
	}
	h.a.process(context.Background(), evt)

	if evt.Text != "puhuttu kysymys" {
		t.Errorf("event text = %q, want transcript", evt.Text)
	}
	if !strings.Contains(h.llm.lastFinalPrompt(), "puhuttu kysymys") {
		t.Error("transcript missing from final prompt")
	}
}

func TestImageAttachmentSetsLatestImage(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.llm.description = "kuva kissasta"

	evt := h.event("mikä tämä on?")
	evt.Attachment = &gateway.Attachment{
		Kind: gateway.AttachmentImage, MimeType: "image/jpeg", Data: []byte{0xff, 0xd8},
	}
	h.a.process(context.Background(), evt)

	if h.a.sessions.LatestImage(h.userID) == "" {
		t.Error("latest image not recorded")
	}
	if !strings.Contains(h.llm.lastFinalPrompt(), "kuva kissasta") {
		t.Error("image description missing from final prompt")
	}
}

func TestDocumentConversionFailureAnnotated(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.ex.docErr = fmt.Errorf(`unsupported document type "application/pdf"`)

	evt := h.event("tässä tiedosto")
	evt.Attachment = &gateway.Attachment{
		Kind: gateway.AttachmentDocument, MimeType: "application/pdf",
		Filename: "scan.pdf", Data: []byte("%PDF"),
	}
	h.a.process(context.Background(), evt)

	if !strings.Contains(h.llm.lastFinalPrompt(), "could not be read") {
		t.Error("document failure should surface as annotation")
	}
}

func TestScenarioToolDispatch(t *testing.T) {
	h := newHarness(t)
	h.a.cfg.Scenario = "hairdresser"
	scn, _ := scenario.NewRegistry(scenario.NewBackend()).Get("hairdresser")
	h.a.scenario = scn
	h.seed(t)

	h.llm.toolCall = &llm.ToolCall{
		ID: "call_1", Type: "function",
		Function: llm.FunctionCall{
			Name:      "get_services_tool",
			Arguments: `{"gender":"female"}`,
		},
	}
	h.a.process(context.Background(), h.event("mitä palveluita teillä on?"))

	prompt := h.llm.lastFinalPrompt()
	if !strings.Contains(prompt, "Coloring") {
		t.Errorf("tool result missing from final prompt: %q", prompt)
	}
	texts := h.gw.sentTexts()
	if len(texts) != 1 {
		t.Fatalf("sends = %d, want exactly one reply", len(texts))
	}
}

func TestGenerateImageSentBeforeConfirmation(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.llm.toolCall = &llm.ToolCall{
		ID: "call_1", Type: "function",
		Function: llm.FunctionCall{
			Name:      scenario.ToolGenerateImage,
			Arguments: `{"prompt":"punainen kettu"}`,
		},
	}
	h.a.process(context.Background(), h.event("piirrä kettu"))

	if len(h.gw.images) != 1 {
		t.Fatalf("images sent = %d", len(h.gw.images))
	}
	// The image goes out before the text confirmation.
	var iImage, iText = -1, -1
	for i, kind := range h.gw.sendOrder {
		if kind == "image" && iImage == -1 {
			iImage = i
		}
		if kind == "text" {
			iText = i
		}
	}
	if iImage == -1 || iText == -1 || iImage > iText {
		t.Errorf("send order = %v, want image before text", h.gw.sendOrder)
	}
	if h.a.sessions.LatestImage(h.userID) == "" {
		t.Error("generated image should become the latest image")
	}
}

func TestEditImageWithoutPrior(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.llm.toolCall = &llm.ToolCall{
		ID: "call_1", Type: "function",
		Function: llm.FunctionCall{
			Name:      scenario.ToolEditImage,
			Arguments: `{"prompt":"tee siitä sininen"}`,
		},
	}
	h.a.process(context.Background(), h.event("muokkaa kuvaa"))

	if len(h.gw.images) != 0 {
		t.Error("no image should be sent without a prior image")
	}
	if !strings.Contains(h.llm.lastFinalPrompt(), "no previous image") {
		t.Error("missing-image condition should be visible to the final answer")
	}
}

func TestWebSearchToolFeedsFinalPrompt(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.llm.toolCall = &llm.ToolCall{
		ID: "call_1", Type: "function",
		Function: llm.FunctionCall{
			Name:      scenario.ToolWebSearch,
			Arguments: `{"query":"sää Oulu"}`,
		},
	}
	h.a.process(context.Background(), h.event("millainen sää Oulussa on?"))

	if !strings.Contains(h.llm.lastFinalPrompt(), "search snippet") {
		t.Error("search results missing from final prompt")
	}
}

func TestPacingWithinConfiguredRange(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	h.a.process(context.Background(), h.event("hei"))

	if len(h.slept) != 1 {
		t.Fatalf("sleeps = %d, want 1", len(h.slept))
	}
	if d := h.slept[0]; d < h.a.cfg.PacingMin || d > h.a.cfg.PacingMax {
		t.Errorf("pacing delay %s outside [%s, %s]", d, h.a.cfg.PacingMin, h.a.cfg.PacingMax)
	}
}

// ---------- Command Tests ----------

func TestCommandsAdminOnly(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	// Non-admin command: silent drop, no reply, no LLM call.
	h.a.process(context.Background(), h.event("!reset"))
	if len(h.gw.sentTexts()) != 0 {
		t.Error("non-admin command produced a reply")
	}
	if len(h.llm.finalPrompts) != 0 {
		t.Error("non-admin command reached the model")
	}
}

func TestResetCommandClearsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	adminID := "358400000001"
	if err := h.a.store.Append(ctx, store.Message{
		UserID: adminID, Content: "vanhaa historiaa", Timestamp: h.now.Unix(),
	}); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	h.a.process(ctx, h.adminEvent("!reset"))

	texts := h.gw.sentTexts()
	if len(texts) != 1 || !strings.Contains(texts[0].text, "Cleared") {
		t.Fatalf("texts = %v", texts)
	}
	count, _ := h.a.store.Count(ctx, adminID)
	if count != 0 {
		t.Errorf("history count after reset = %d", count)
	}

	// Command replies are not conversation history.
	msgs, _ := h.a.store.ListAll(ctx, adminID)
	if len(msgs) != 0 {
		t.Errorf("command reply persisted: %v", msgs)
	}
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ctx := context.Background()

	h.a.process(ctx, h.adminEvent("!pause"))
	h.a.process(ctx, h.event("hei siellä"))
	if len(h.llm.finalPrompts) != 0 {
		t.Error("paused assistant still answered")
	}

	h.a.process(ctx, h.adminEvent("!resume"))
	h.a.process(ctx, h.event("hei taas"))
	if len(h.llm.finalPrompts) != 1 {
		t.Error("resumed assistant did not answer")
	}
}

func TestPromptsCommand(t *testing.T) {
	h := newHarness(t)
	h.a.process(context.Background(), h.adminEvent("!prompts"))

	texts := h.gw.sentTexts()
	if len(texts) != 1 {
		t.Fatalf("texts = %v", texts)
	}
	if !strings.Contains(texts[0].text, h.a.scenario.Name) ||
		!strings.Contains(texts[0].text, h.a.scenario.ResponsePrompt) {
		t.Errorf("prompt listing incomplete: %q", texts[0].text)
	}
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	h.a.process(context.Background(), h.adminEvent("!foo"))
	texts := h.gw.sentTexts()
	if len(texts) != 1 || !strings.Contains(texts[0].text, "Unknown command") {
		t.Errorf("texts = %v", texts)
	}
}

// ---------- Queue and Run Tests ----------

func TestEventQueueOrder(t *testing.T) {
	q := newEventQueue()
	for i := 0; i < 100; i++ {
		q.Push(&gateway.Event{ID: fmt.Sprint(i)})
	}
	for i := 0; i < 100; i++ {
		evt, ok := q.Pop()
		if !ok {
			t.Fatal("queue closed early")
		}
		if evt.ID != fmt.Sprint(i) {
			t.Fatalf("got %s at position %d", evt.ID, i)
		}
	}
	q.Close()
	if _, ok := q.Pop(); ok {
		t.Error("Pop after close+drain should report closed")
	}
}

func TestEventQueueCloseWakesConsumer(t *testing.T) {
	q := newEventQueue()
	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case ok := <-done:
		if ok {
			t.Error("Pop on closed empty queue returned ok")
		}
	case <-time.After(time.Second):
		t.Fatal("consumer not woken by Close")
	}
}

func TestRunProcessesEventsInOrder(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	events := make([]*gateway.Event, 3)
	for i := range events {
		events[i] = h.event(fmt.Sprintf("viesti %d", i))
		events[i].ID = fmt.Sprintf("RUN-%d", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- h.a.Run(ctx) }()

	for _, evt := range events {
		h.gw.events <- evt
	}

	deadline := time.After(2 * time.Second)
	for len(h.gw.sentTexts()) < 3 {
		select {
		case <-deadline:
			t.Fatalf("timed out, sends = %d", len(h.gw.sentTexts()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-runDone; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// ---------- Helper Tests ----------

func TestUserIDFromJID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"358401234567@s.whatsapp.net", "358401234567"},
		{"358401234567:12@s.whatsapp.net", "358401234567"},
		{"358401234567", "358401234567"},
		{"123456789-1234@g.us", "123456789-1234"},
	}
	for _, tt := range tests {
		if got := userIDFromJID(tt.in); got != tt.want {
			t.Errorf("userIDFromJID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	h := newHarness(t)
	if !h.a.isAdmin("358400000001:3@s.whatsapp.net") {
		t.Error("admin with device suffix not recognized")
	}
	if h.a.isAdmin("358409999999@s.whatsapp.net") {
		t.Error("stranger recognized as admin")
	}
}
