package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAccessToken(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		header     string
		wantStatus int
	}{
		{"valid token", "secret", "secret", http.StatusOK},
		{"wrong token", "secret", "guess", http.StatusUnauthorized},
		{"token prefix", "secret", "secre", http.StatusUnauthorized},
		{"token with suffix", "secret", "secret2", http.StatusUnauthorized},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"token not configured", "", "", http.StatusUnauthorized},
		{"token not configured with header", "", "anything", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := RequireAccessToken(tt.token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/cache", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("Expected handler called = %v, got %v", tt.wantStatus == http.StatusOK, called)
			}
		})
	}
}
