package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOEmbedSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("Expected format=json, got %q", r.URL.Query().Get("format"))
		}
		if r.URL.Query().Get("url") != "https://www.youtube.com/watch?v=abc123" {
			t.Errorf("Unexpected url param %q", r.URL.Query().Get("url"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Intro to Go","author_name":"Gopher Academy","thumbnail_url":"https://i.ytimg.com/vi/abc123/hqdefault.jpg"}`))
	}))
	defer server.Close()

	c := NewOEmbedClient(time.Second)
	c.Endpoint = server.URL

	summary, err := c.Summary(context.Background(), "https://www.youtube.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.Title != "Intro to Go" {
		t.Errorf("Expected title, got %q", summary.Title)
	}
	if summary.AuthorName != "Gopher Academy" {
		t.Errorf("Expected author, got %q", summary.AuthorName)
	}
	if summary.ThumbnailURL == "" {
		t.Error("Expected thumbnail URL")
	}
}

func TestOEmbedSummary_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }},
		{"slow", func(w http.ResponseWriter, r *http.Request) { time.Sleep(200 * time.Millisecond) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewOEmbedClient(50 * time.Millisecond)
			c.Endpoint = server.URL

			_, err := c.Summary(context.Background(), "https://www.youtube.com/watch?v=abc123")
			if !errors.Is(err, ErrUpstreamUnavailable) {
				t.Errorf("Expected ErrUpstreamUnavailable, got %v", err)
			}
		})
	}
}
