package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/techtonic-plates-blog/posts-service/internal/auth"
)

// Outcome sentinels shared across the service. Wrap maps them onto HTTP
// status codes; everything else is treated as a storage/internal failure and
// surfaced as a generic 500 without detail.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("invalid input")
)

type HandlerFunc func(http.ResponseWriter, *http.Request) error

func Wrap(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, ErrUnauthorized):
			WriteJSON(w, map[string]any{"error": err.Error()}, http.StatusUnauthorized)
		case errors.Is(err, ErrForbidden):
			// No detail: a denied caller learns nothing about the target.
			WriteJSON(w, map[string]any{"error": "forbidden"}, http.StatusForbidden)
		case errors.Is(err, ErrNotFound):
			WriteJSON(w, map[string]any{"error": err.Error()}, http.StatusNotFound)
		case errors.Is(err, ErrConflict):
			WriteJSON(w, map[string]any{"error": err.Error()}, http.StatusConflict)
		case errors.Is(err, ErrValidation):
			WriteJSON(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
		default:
			WriteJSON(w, map[string]any{"error": "internal error"}, http.StatusInternalServerError)
		}
	})
}

func Decode[T any](r *http.Request) (T, error) {
	var t T
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return t, errors.Join(ErrValidation, err)
	}
	return t, nil
}

func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func QueryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Stable string key to avoid mismatches if multiple copies of the package
// are linked.
var ctxClaimsKey = "httpx.claims"

// AuthMiddleware verifies the bearer token and attaches the parsed claims.
// It fails closed: no parsable token means no claims.
func AuthMiddleware(parser *auth.TokenParser, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			WriteJSON(w, map[string]any{"error": "unauthorized", "reason": "missing bearer"}, http.StatusUnauthorized)
			return
		}
		claims, err := parser.Parse(strings.TrimSpace(h[7:]))
		if err != nil {
			WriteJSON(w, map[string]any{"error": "unauthorized", "reason": "bad token"}, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromCtx(r *http.Request) (*auth.Claims, error) {
	claims, _ := r.Context().Value(ctxClaimsKey).(*auth.Claims)
	if claims == nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
