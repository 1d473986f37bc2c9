package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techtonic-plates-blog/posts-service/internal/auth"
)

func TestWrapStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("post %q: %w", "x", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("slug taken: %w", ErrConflict), http.StatusConflict},
		{fmt.Errorf("bad field: %w", ErrValidation), http.StatusBadRequest},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := Wrap(func(w http.ResponseWriter, r *http.Request) error {
			if tt.err == nil {
				WriteJSON(w, map[string]string{"ok": "yes"}, http.StatusOK)
			}
			return tt.err
		})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, tt.code, rec.Code, "err=%v", tt.err)
	}
}

func TestWrapHidesInternalDetail(t *testing.T) {
	h := Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("pq: connection reset by peer")
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestAuthMiddleware(t *testing.T) {
	parser := auth.NewTokenParser("test-secret")
	tok, err := parser.Make("user-1", []auth.Permission{auth.CreatePost}, time.Hour)
	require.NoError(t, err)

	var got *auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromCtx(r)
	})
	h := AuthMiddleware(parser, next)

	r := httptest.NewRequest(http.MethodPost, "/posts", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.Subject)
	assert.True(t, got.HasPermission(auth.CreatePost))
}

func TestAuthMiddlewareFailsClosed(t *testing.T) {
	parser := auth.NewTokenParser("test-secret")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without claims")
	})
	h := AuthMiddleware(parser, next)

	r := httptest.NewRequest(http.MethodPost, "/posts", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	r = httptest.NewRequest(http.MethodPost, "/posts", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClaimsFromCtxWithoutMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ClaimsFromCtx(r)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
