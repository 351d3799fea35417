package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Dosada05/bp-tabulation/models"
	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the caller behind a verified access token. Judges submit
// ballots under their own UserID; admins run the tournament.
type Identity struct {
	UserID int
	Role   models.UserRole
}

// Allowed reports whether the identity holds one of roles.
func (i Identity) Allowed(roles ...models.UserRole) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// tokenClaims описывает токен внешней системы регистрации.
type tokenClaims struct {
	UserID subjectID       `json:"user_id"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// subjectID принимает user_id как JSON-число или как строку с числом.
type subjectID int

func (s *subjectID) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(data, `"`)
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		var f float64
		if json.Unmarshal(raw, &f) != nil || f != float64(int64(f)) {
			return fmt.Errorf("user_id %s is not an integer", data)
		}
		n = int64(f)
	}
	*s = subjectID(n)
	return nil
}

var errNoIdentity = errors.New("no identity in request context")

func (c *tokenClaims) identity() (Identity, error) {
	if c.UserID <= 0 {
		return Identity{}, fmt.Errorf("invalid user_id %d", c.UserID)
	}
	if c.Role == "" {
		return Identity{}, errors.New("missing role claim")
	}
	// Неизвестная роль не ошибка аутентификации: RequireRole ответит 403.
	return Identity{UserID: int(c.UserID), Role: c.Role}, nil
}

// WithIdentity кладёт identity в контекст так же, как это делает Authenticate.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext returns the caller set by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.UserID <= 0 {
		return Identity{}, errNoIdentity
	}
	return id, nil
}
