package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}, nil)
}

func chatJSON(content string, toolCalls ...ToolCall) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"content":    content,
					"tool_calls": toolCalls,
				},
				"finish_reason": "stop",
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestComplete(t *testing.T) {
	var gotReq chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotReq); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		io.WriteString(w, chatJSON("  hello there  "))
	})

	out, err := c.Complete(context.Background(), "you are helpful", "hi")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "hello there" {
		t.Errorf("out = %q, want trimmed reply", out)
	}
	if gotReq.Model != "test-model" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("roles = %q, %q", gotReq.Messages[0].Role, gotReq.Messages[1].Role)
	}
}

func TestCompleteShortSetsMaxTokens(t *testing.T) {
	var gotReq chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotReq)
		io.WriteString(w, chatJSON("ok"))
	})

	if _, err := c.CompleteShort(context.Background(), "", "hi"); err != nil {
		t.Fatalf("CompleteShort: %v", err)
	}
	if gotReq.MaxTokens == nil || *gotReq.MaxTokens == 0 {
		t.Error("expected max_tokens to be set")
	}
	if len(gotReq.Messages) != 1 {
		t.Errorf("empty system prompt should be omitted, got %d messages", len(gotReq.Messages))
	}
}

func TestCompleteWithTools(t *testing.T) {
	tools := []ToolDefinition{
		MakeToolDefinition("get_weather", "Gets weather", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []string{"city"},
		}),
	}

	t.Run("returns first tool call", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, chatJSON("",
				ToolCall{ID: "call_1", Type: "function", Function: FunctionCall{Name: "get_weather", Arguments: `{"city":"Oulu"}`}},
				ToolCall{ID: "call_2", Type: "function", Function: FunctionCall{Name: "get_weather", Arguments: `{"city":"Turku"}`}},
			))
		})
		call, err := c.CompleteWithTools(context.Background(), "sys", "weather in Oulu", tools)
		if err != nil {
			t.Fatalf("CompleteWithTools: %v", err)
		}
		if call == nil {
			t.Fatal("expected a tool call")
		}
		if call.Function.Name != "get_weather" {
			t.Errorf("name = %q", call.Function.Name)
		}
		args, err := call.Function.Args()
		if err != nil {
			t.Fatalf("Args: %v", err)
		}
		if args["city"] != "Oulu" {
			t.Errorf("city = %v, want the first call's arguments", args["city"])
		}
	})

	t.Run("nil when no tool needed", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, chatJSON("just chatting"))
		})
		call, err := c.CompleteWithTools(context.Background(), "sys", "hello", tools)
		if err != nil {
			t.Fatalf("CompleteWithTools: %v", err)
		}
		if call != nil {
			t.Errorf("call = %+v, want nil", call)
		}
	})
}

func TestCompleteAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	})
	_, err := c.Complete(context.Background(), "", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v, want status code mentioned", err)
	}
}

func TestDescribeImageUsesVisionModel(t *testing.T) {
	var raw map[string]any
	c := NewClient(Config{Model: "chat-model", VisionModel: "vision-model"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &raw)
		io.WriteString(w, chatJSON("a cat"))
	}))
	defer srv.Close()
	c.cfg.BaseURL = srv.URL

	url := ImageDataURL([]byte{0xff, 0xd8}, "image/jpeg")
	out, err := c.DescribeImage(context.Background(), url, "")
	if err != nil {
		t.Fatalf("DescribeImage: %v", err)
	}
	if out != "a cat" {
		t.Errorf("out = %q", out)
	}
	if raw["model"] != "vision-model" {
		t.Errorf("model = %v, want vision-model", raw["model"])
	}
	msgs := raw["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("content parts = %d, want text + image_url", len(content))
	}
	img := content[1].(map[string]any)
	if img["type"] != "image_url" {
		t.Errorf("part type = %v", img["type"])
	}
	u := img["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(u, "data:image/jpeg;base64,") {
		t.Errorf("url = %q, want data URL", u)
	}
}

func TestTranscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model field = %q", got)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "voice.ogg" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		data, _ := io.ReadAll(f)
		if string(data) != "OggS" {
			t.Errorf("file payload = %q", data)
		}
		io.WriteString(w, `{"text":" moi maailma "}`)
	})

	out, err := c.Transcribe(context.Background(), []byte("OggS"), "voice.ogg")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if out != "moi maailma" {
		t.Errorf("out = %q", out)
	}
}

func TestMakeToolDefinition(t *testing.T) {
	def := MakeToolDefinition("search", "Searches things", nil)
	if def.Type != "function" || def.Function.Name != "search" {
		t.Errorf("def = %+v", def)
	}
	var schema map[string]any
	if err := json.Unmarshal(def.Function.Parameters, &schema); err != nil {
		t.Fatalf("parameters not valid JSON: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("default schema type = %v", schema["type"])
	}
}
