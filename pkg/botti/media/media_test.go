package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		OutputDir: t.TempDir(),
	}, nil)
}

func imageJSON(data []byte) string {
	b, _ := json.Marshal(map[string]any{
		"data": []map[string]string{
			{"b64_json": base64.StdEncoding.EncodeToString(data)},
		},
	})
	return string(b)
}

func TestGenerateImage(t *testing.T) {
	var gotReq map[string]any
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		io.WriteString(w, imageJSON(pngBytes))
	})

	path, err := g.GenerateImage(context.Background(), "a red fox")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if gotReq["prompt"] != "a red fox" {
		t.Errorf("prompt = %v", gotReq["prompt"])
	}
	if filepath.Ext(path) != ".png" {
		t.Errorf("path = %q, want .png", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if string(data) != string(pngBytes) {
		t.Errorf("written bytes = %v", data)
	}
}

func TestGenerateImageUniquePaths(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, imageJSON(pngBytes))
	})
	p1, err := g.GenerateImage(context.Background(), "one")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	p2, err := g.GenerateImage(context.Background(), "two")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if p1 == p2 {
		t.Errorf("paths collide: %q", p1)
	}
}

func TestEditImage(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/edits" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("prompt"); got != "make it blue" {
			t.Errorf("prompt = %q", got)
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != string(pngBytes) {
			t.Errorf("uploaded image = %v", data)
		}
		io.WriteString(w, imageJSON(pngBytes))
	})

	path, err := g.EditImage(context.Background(), pngBytes, "make it blue")
	if err != nil {
		t.Fatalf("EditImage: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestGenerateImageAPIError(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"prompt rejected"}}`)
	})
	_, err := g.GenerateImage(context.Background(), "bad")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("err = %v", err)
	}
}

func TestSpeakText(t *testing.T) {
	var gotReq map[string]any
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		w.Write([]byte("ID3mp3data"))
	})

	path, err := g.SpeakText(context.Background(), "hei vaan")
	if err != nil {
		t.Fatalf("SpeakText: %v", err)
	}
	if gotReq["input"] != "hei vaan" {
		t.Errorf("input = %v", gotReq["input"])
	}
	if gotReq["voice"] == "" {
		t.Error("voice not set")
	}
	if filepath.Ext(path) != ".mp3" {
		t.Errorf("path = %q, want .mp3", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "ID3mp3data" {
		t.Errorf("written bytes = %q", data)
	}
}

func TestSpeakTextEmptyAudio(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := g.SpeakText(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty audio")
	}
}
