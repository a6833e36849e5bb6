package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCorrelationIDPropagates(t *testing.T) {
	var seen string
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "abc-123" || rec.Header().Get(CorrelationIDHeader) != "abc-123" {
		t.Errorf("seen = %q, header = %q", seen, rec.Header().Get(CorrelationIDHeader))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(CorrelationIDHeader) != seen {
		t.Errorf("Expected a generated correlation id, got %q", seen)
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	tests := []struct {
		name       string
		config     CORSConfig
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"wildcard", CORSConfig{AllowedOrigins: "*"}, http.MethodGet, "http://a.test", "*", http.StatusTeapot},
		{"wildcard with credentials", CORSConfig{AllowedOrigins: "*", AllowCredentials: true}, http.MethodGet, "http://a.test", "http://a.test", http.StatusTeapot},
		{"listed origin", CORSConfig{AllowedOrigins: "http://a.test, http://b.test"}, http.MethodGet, "http://b.test", "http://b.test", http.StatusTeapot},
		{"unlisted origin", CORSConfig{AllowedOrigins: "http://a.test"}, http.MethodGet, "http://evil.test", "", http.StatusTeapot},
		{"preflight", CORSConfig{AllowedOrigins: "*"}, http.MethodOptions, "http://a.test", "*", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/devices", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			CORS(tt.config)(next).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestLoggingKeepsFlusher(t *testing.T) {
	var flushable bool
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	if !flushable {
		t.Error("Logging must keep the writer flushable")
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestOriginAllowed(t *testing.T) {
	listed := CORSConfig{AllowedOrigins: "http://a.test, http://b.test"}
	if !listed.OriginAllowed("http://b.test") {
		t.Error("listed origin rejected")
	}
	if listed.OriginAllowed("http://evil.test") {
		t.Error("unlisted origin accepted")
	}
	if !listed.OriginAllowed("") {
		t.Error("request without origin rejected")
	}
	if !(CORSConfig{AllowedOrigins: "*"}).OriginAllowed("http://any.test") {
		t.Error("wildcard rejected origin")
	}
}
