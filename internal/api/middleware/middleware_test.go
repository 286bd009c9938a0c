package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func ownerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"owner_id": OwnerIDFromContext(r.Context())})
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

func TestAuth(t *testing.T) {
	valid, err := IssueToken(testSecret, "owner-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := IssueToken(testSecret, "owner-1", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := IssueToken("other-secret", "owner-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	noOwner, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{"missing", "", http.StatusUnauthorized, "message", MsgTokenMissing},
		{"valid bearer", "Bearer " + valid, http.StatusOK, "owner_id", "owner-1"},
		{"valid without prefix", valid, http.StatusOK, "owner_id", "owner-1"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "message", MsgTokenExpired},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "message", MsgTokenInvalid},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, "message", MsgTokenInvalid},
		{"no user_id claim", "Bearer " + noOwner, http.StatusUnauthorized, "message", MsgTokenInvalid},
	}

	h := Auth(testSecret)(ownerEcho())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/inventory/products", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decode(t, rec)[tt.wantKey]; got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.wantKey, got, tt.wantValue)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(logger.NewWithWriter(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "Panic recovered") {
		t.Errorf("log output missing panic entry: %s", buf.String())
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}), RequestID, Logger(logger.NewWithWriter(&buf)))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-42" {
		t.Errorf("request id in context = %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "req-42" {
		t.Errorf("X-Request-ID header = %q", rec.Header().Get("X-Request-ID"))
	}
	out := buf.String()
	if !strings.Contains(out, "req-42") || !strings.Contains(out, "418") {
		t.Errorf("log output = %s", out)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id")
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/health", nil))

	if rec.Code != http.StatusNoContent || called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
