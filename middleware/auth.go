package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/golang-jwt/jwt/v4"
)

// Authenticate проверяет Bearer-токен (HS256), выданный внешней системой
// регистрации, и кладёт Identity вызывающего в контекст запроса.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, found := strings.CutPrefix(header, "Bearer ")
			if !found || tokenString == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			claims := &tokenClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				slog.DebugContext(r.Context(), "token rejected", slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}

			id, err := claims.identity()
			if err != nil {
				slog.DebugContext(r.Context(), "token claims rejected", slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, "unauthorized", "token carries no valid identity")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole пропускает только запросы с одной из перечисленных ролей.
// Должен стоять после Authenticate.
func RequireRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := IdentityFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusForbidden, "forbidden", "request has no identity")
				return
			}
			if id.Allowed(roles...) {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusForbidden, "forbidden", "operation not allowed for role "+string(id.Role))
		})
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{"kind": kind, "message": message},
	})
}
