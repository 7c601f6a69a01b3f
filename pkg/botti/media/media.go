// Package media generates images and speech through OpenAI-compatible
// endpoints and stages the results as files for outbound delivery.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds endpoint settings for media generation.
type Config struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	ImageModel string `yaml:"image_model"`
	TTSModel   string `yaml:"tts_model"`
	TTSVoice   string `yaml:"tts_voice"`

	// OutputDir is where generated files are written.
	OutputDir string `yaml:"output_dir"`
}

func (c Config) effective() Config {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.ImageModel == "" {
		c.ImageModel = "gpt-image-1"
	}
	if c.TTSModel == "" {
		c.TTSModel = "gpt-4o-mini-tts"
	}
	if c.TTSVoice == "" {
		c.TTSVoice = "alloy"
	}
	if c.OutputDir == "" {
		c.OutputDir = os.TempDir()
	}
	return c
}

// Generator calls image and speech endpoints.
type Generator struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Generator from config.
func New(cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		cfg:        cfg.effective(),
		httpClient: &http.Client{Timeout: 180 * time.Second},
		logger:     logger.With("component", "media"),
	}
}

// imageResponse is the subset of the images API response we consume.
type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateImage creates an image from a text prompt and returns the path
// of the PNG written under OutputDir.
func (g *Generator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"model":  g.cfg.ImageModel,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/images/generations", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	return g.doImageRequest(req, "generate")
}

// EditImage modifies an existing image per the instructions and returns
// the path of the resulting PNG.
func (g *Generator) EditImage(ctx context.Context, image []byte, instructions string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "input.png")
	if err != nil {
		return "", fmt.Errorf("building multipart form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("writing image to form: %w", err)
	}
	if err := mw.WriteField("model", g.cfg.ImageModel); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if err := mw.WriteField("prompt", instructions); err != nil {
		return "", fmt.Errorf("writing prompt field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/images/edits", &body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	return g.doImageRequest(req, "edit")
}

func (g *Generator) doImageRequest(req *http.Request, op string) (string, error) {
	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading image response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image API returned %d: %s",
			resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed imageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing image response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("image API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return "", fmt.Errorf("image API returned no image data")
	}

	raw, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return "", fmt.Errorf("decoding image data: %w", err)
	}

	path, err := g.writeFile(raw, ".png")
	if err != nil {
		return "", err
	}

	g.logger.Info("image "+op+" done",
		"path", path,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

// SpeakText synthesizes speech for the given text and returns the path of
// the MP3 written under OutputDir.
func (g *Generator) SpeakText(ctx context.Context, text string) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"model": g.cfg.TTSModel,
		"voice": g.cfg.TTSVoice,
		"input": text,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.cfg.BaseURL+"/audio/speech", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("speech API returned %d: %s",
			resp.StatusCode, truncate(string(respBody), 200))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading speech response: %w", err)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("speech API returned empty audio")
	}

	path, err := g.writeFile(audio, ".mp3")
	if err != nil {
		return "", err
	}

	g.logger.Info("speech synthesis done",
		"path", path,
		"bytes", len(audio),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

func (g *Generator) writeFile(data []byte, ext string) (string, error) {
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(g.cfg.OutputDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing output file: %w", err)
	}
	return path, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
