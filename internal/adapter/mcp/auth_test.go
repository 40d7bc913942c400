package mcp_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	armcp "github.com/arbiterhq/arbiter/internal/adapter/mcp"
)

func TestAuthMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		key      string
		header   string
		wantCode int
	}{
		{"disabled when no key configured", "", "", http.StatusOK},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"bearer token", "s3cret", "Bearer s3cret", http.StatusOK},
		{"bare header value", "s3cret", "s3cret", http.StatusOK},
		{"wrong token", "s3cret", "Bearer nope", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := armcp.AuthMiddleware(tt.key, inner)
			req := httptest.NewRequest(http.MethodPost, "/mcp", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Code != http.StatusOK && rec.Header().Get("Content-Type") != "application/json" {
				t.Errorf("rejections must be JSON, got %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}
