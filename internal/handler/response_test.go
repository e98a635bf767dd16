package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/microearn/internal/model"
)

func requestWithParam(key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestURLParam_DecodesPercentEncoding(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"w%40example.com", "w@example.com"},
		{"w@example.com", "w@example.com"},
		{"a%2Bb%40example.com", "a+b@example.com"},
		{"3f2b6c1e-0000-4000-8000-000000000001", "3f2b6c1e-0000-4000-8000-000000000001"},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		got, ok := urlParam(w, requestWithParam("workerEmail", tt.raw), "workerEmail")
		if !ok {
			t.Fatalf("urlParam(%q) failed: %s", tt.raw, w.Body.String())
		}
		if got != tt.want {
			t.Errorf("urlParam(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestURLParam_MalformedEscapeIs400(t *testing.T) {
	w := httptest.NewRecorder()
	_, ok := urlParam(w, requestWithParam("userID", "bad%zz"), "userID")
	if ok {
		t.Fatal("expected failure for malformed escape")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != model.ErrCodeInvalidInput {
		t.Errorf("code = %q", code)
	}
}
