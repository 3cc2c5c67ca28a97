package notifier

import (
	"context"
	"encoding/json"
	"io"
	"learntube-api-go/config"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNtfyNotifier_Send(t *testing.T) {
	var gotPath, gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := &NtfyNotifier{Topic: "learntube-alerts", Server: server.URL}
	if err := n.Send(context.Background(), "Subject", "Body text"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotPath != "/learntube-alerts" {
		t.Errorf("Expected path /learntube-alerts, got %q", gotPath)
	}
	if gotTitle != "Subject" {
		t.Errorf("Expected Title header %q, got %q", "Subject", gotTitle)
	}
	if gotBody != "Body text" {
		t.Errorf("Expected body %q, got %q", "Body text", gotBody)
	}
}

func TestNtfyNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	n := &NtfyNotifier{Topic: "t", Server: server.URL}
	err := n.Send(context.Background(), "s", "m")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestTelegramNotifier_Send(t *testing.T) {
	var payload map[string]interface{}
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := &TelegramNotifier{BotToken: "123:abc", ChatID: "42", APIBase: server.URL}
	if err := n.Send(context.Background(), "Subject", "Body"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("Unexpected path %q", gotPath)
	}
	if payload["chat_id"] != "42" {
		t.Errorf("Expected chat_id 42, got %v", payload["chat_id"])
	}
	if payload["text"] != "*Subject*\n\nBody" {
		t.Errorf("Unexpected text %q", payload["text"])
	}
}

func TestEmailNotifier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := &EmailNotifier{SMTPHost: "127.0.0.1", SMTPPort: "1"}
	if err := n.Send(ctx, "s", "m"); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	var c config.Config
	if got := len(FromConfig(c)); got != 0 {
		t.Errorf("Expected no notifiers without credentials, got %d", got)
	}

	c.Notifier.NtfyTopic = "topic"
	c.Notifier.TelegramBotToken = "token"
	c.Notifier.SMTPHost = "smtp.example.com"

	notifiers := FromConfig(c)
	if len(notifiers) != 3 {
		t.Fatalf("Expected 3 notifiers, got %d", len(notifiers))
	}
	if _, ok := notifiers[0].(*EmailNotifier); !ok {
		t.Errorf("Expected email notifier first, got %T", notifiers[0])
	}
	if _, ok := notifiers[2].(*NtfyNotifier); !ok {
		t.Errorf("Expected ntfy notifier last, got %T", notifiers[2])
	}
}
