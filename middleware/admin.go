package middleware

import (
	"crypto/subtle"
	"learntube-api-go/logcolors"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// RequireAccessToken guards operational endpoints with the shared access token
// sent verbatim in the Authorization header. An unset token locks the endpoints.
func RequireAccessToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				log.Warnf("%s Access token not configured, denying %s", logcolors.LogAuth, r.URL.Path)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(token)) != 1 {
				log.Warnf("%s Invalid access token from %s for %s", logcolors.LogAuth, ClientIP(r), r.URL.Path)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
