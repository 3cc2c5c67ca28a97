package middleware

import (
	"learntube-api-go/logcolors"
	"learntube-api-go/stats"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetStatusColor(t *testing.T) {
	tests := []struct {
		statusCode int
		expected   string
	}{
		{http.StatusOK, logcolors.Green},
		{http.StatusNoContent, logcolors.Green},
		{http.StatusNotModified, logcolors.Cyan},
		{http.StatusBadRequest, logcolors.Yellow},
		{http.StatusNotFound, logcolors.Yellow},
		{http.StatusTooManyRequests, logcolors.Yellow},
		{http.StatusInternalServerError, logcolors.Red},
		{http.StatusBadGateway, logcolors.Red},
		{http.StatusGatewayTimeout, logcolors.Red},
		{http.StatusContinue, logcolors.Reset},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.statusCode), func(t *testing.T) {
			if got := getStatusColor(tt.statusCode); got != tt.expected {
				t.Errorf("Expected color %q for status %d, got %q", tt.expected, tt.statusCode, got)
			}
		})
	}
}

func TestResponseRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	if rec.StatusCode != http.StatusOK {
		t.Errorf("Expected default status code %d, got %d", http.StatusOK, rec.StatusCode)
	}

	rec.WriteHeader(http.StatusGatewayTimeout)
	rec.Write([]byte(`{"success":false,`))
	rec.Write([]byte(`"error":"Subtitle request timed out"}`))

	if rec.StatusCode != http.StatusGatewayTimeout {
		t.Errorf("Expected status code %d, got %d", http.StatusGatewayTimeout, rec.StatusCode)
	}
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected underlying writer to have status code %d, got %d", http.StatusGatewayTimeout, w.Code)
	}
	if rec.BodySize != w.Body.Len() {
		t.Errorf("Expected body size %d, got %d", w.Body.Len(), rec.BodySize)
	}
}

func TestResponseRecorder_Flush(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	rec.Write([]byte("WEBVTT\n\n"))
	rec.Flush()

	if !w.Flushed {
		t.Error("Expected Flush to reach the underlying writer")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		statusCode int
		body       string
	}{
		{"audio url", "GET", "/api/v1/video/audio-url", http.StatusOK, `{"success":true}`},
		{"invalid url", "GET", "/api/v1/video/info", http.StatusBadRequest, `{"success":false}`},
		{"cache clear", "POST", "/cache/clear", http.StatusOK, ""},
		{"upstream failure", "GET", "/api/v1/video/metadata", http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.statusCode {
				t.Errorf("Expected status code %d, got %d", tt.statusCode, rec.Code)
			}
			if rec.Body.String() != tt.body {
				t.Errorf("Expected body %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestLoggingMiddleware_RecordsStats(t *testing.T) {
	s := stats.Get()
	beforeTotal := s.TotalRequests.Load()
	beforeAudio := s.AudioRequests.Load()
	before5xx := s.Status5xx.Load()

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/video/audio-url", nil))

	if got := s.TotalRequests.Load() - beforeTotal; got != 1 {
		t.Errorf("Expected 1 request recorded, got %d", got)
	}
	if got := s.AudioRequests.Load() - beforeAudio; got != 1 {
		t.Errorf("Expected 1 audio request recorded, got %d", got)
	}
	if got := s.Status5xx.Load() - before5xx; got != 1 {
		t.Errorf("Expected 1 5xx response recorded, got %d", got)
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generated when absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		id := rec.Header().Get(RequestIDHeader)
		if len(id) != 36 {
			t.Errorf("Expected a generated UUID request id, got %q", id)
		}
	})

	t.Run("incoming id echoed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("Expected request id %q, got %q", "abc-123", got)
		}
	})
}
