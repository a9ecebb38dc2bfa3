package http

import (
	"net/http"
	"strings"
)

// ContentTypeJSON refuses request bodies declared as anything but JSON.
// Requests without a Content-Type pass, since several POST routes take no body.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// maxBodyBytes caps request bodies of the local API.
const maxBodyBytes = 1 << 20
