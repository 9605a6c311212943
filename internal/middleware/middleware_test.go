package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskManager/internal/auth"
	"taskManager/internal/middleware"
	"taskManager/internal/models/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "given", seen)
}

func TestLogging_PassesStatusThrough(t *testing.T) {
	h := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestRecover(t *testing.T) {
	h := middleware.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"INTERNAL","message":"Internal server error"}`, w.Body.String())
}

type stubResolver struct {
	caller *user.Caller
	err    error
}

func (s stubResolver) ResolveCaller(string) (*user.Caller, error) {
	return s.caller, s.err
}

func TestAuthenticate(t *testing.T) {
	alice := &user.Caller{ID: "A"}

	tests := []struct {
		name     string
		resolver stubResolver
		want     *user.Caller
	}{
		{"valid token", stubResolver{caller: alice}, alice},
		{"no token", stubResolver{}, nil},
		{"bad token", stubResolver{caller: alice, err: errors.New("expired")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *user.Caller
			h := middleware.Authenticate(tt.resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.CallerFrom(r.Context())
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := middleware.RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000").Code)
	w := call("10.0.0.1:1001")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = call("10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// other clients keep their own budget
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := middleware.RateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}
