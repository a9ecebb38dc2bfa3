package middleware

import (
	"net/http"
	"strings"

	apperrors "github.com/utafrali/babo/pkg/errors"
	"github.com/utafrali/babo/pkg/httputil"
	"github.com/utafrali/babo/pkg/logger"
)

// UsernameHeader carries the acting reader. The desktop client has already
// signed the user in; the local API trusts it.
const UsernameHeader = "X-Username"

// Identity copies the X-Username header into the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if username := strings.TrimSpace(r.Header.Get(UsernameHeader)); username != "" {
			r = r.WithContext(logger.WithUsername(r.Context(), username))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUsername rejects requests that reach it without an acting user.
// Mount it after Identity.
func RequireUsername(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logger.UsernameFromContext(r.Context()) == "" {
			httputil.WriteError(w, r, apperrors.Unauthorized("missing "+UsernameHeader+" header"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
