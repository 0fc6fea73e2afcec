package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"fastslice/internal/logging"
)

// requireToken guards next with the configured bearer token. An empty token
// leaves the API open.
func (s *apiServer) requireToken(next http.HandlerFunc) http.HandlerFunc {
	token := strings.TrimSpace(s.cfg.API.Token)
	if token == "" {
		return next
	}
	want := []byte(token)
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, got, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "bearer") &&
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) == 1 {
			next(w, r)
			return
		}
		s.logger.Warn("rejected api request",
			logging.String(logging.FieldEventType, "api_unauthorized"),
			logging.String("path", r.URL.Path),
			logging.Bool("header_present", header != ""),
		)
		w.Header().Set("WWW-Authenticate", `Bearer realm="fastslice"`)
		s.writeError(w, http.StatusUnauthorized, "unauthorized")
	}
}
