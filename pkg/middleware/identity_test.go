package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/babo/pkg/logger"
)

func TestIdentity_StoresTrimmedUsername(t *testing.T) {
	var got string
	handler := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logger.UsernameFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UsernameHeader, "  alice ")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "alice", got)
}

func TestRequireUsername_RejectsAnonymous(t *testing.T) {
	called := false
	handler := Identity(RequireUsername(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ratings", nil)
	req.Header.Set(UsernameHeader, "   ")
	handler.ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireUsername_PassesKnownUser(t *testing.T) {
	handler := Identity(RequireUsername(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ratings", nil)
	req.Header.Set(UsernameHeader, "bob")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
