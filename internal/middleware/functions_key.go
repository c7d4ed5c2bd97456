package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// RequireFunctionsKey protege los endpoints /functions/*: solo pasan los requests
// que traen la clave de servicio en Authorization: Bearer o en X-Functions-Key.
// Con secret vacío las funciones quedan cerradas por HTTP (el ticker interno sigue).
func RequireFunctionsKey(secret string) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r.Header.Get("Authorization"))
			if key == "" {
				key = strings.TrimSpace(r.Header.Get("X-Functions-Key"))
			}
			if secret == "" || key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
