package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

type sessionKey struct{}

// SessionClaims are the claims the authentication provider puts in a shopper token.
// The subject is the provider's session identity.
type SessionClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

// SessionAuth validates the HS256 bearer token and stores the session in the request context.
func SessionAuth(secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "session-auth").Logger()
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				writeUnauthorised(w, "missing token")
				return
			}

			parts := strings.SplitN(raw, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeUnauthorised(w, "invalid token")
				return
			}

			claims := &SessionClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				event := logger.Warn().Str("path", r.URL.Path)
				if errors.Is(err, jwt.ErrTokenExpired) {
					event.Msg("expired session token")
				} else {
					event.Err(err).Msg("session token rejected")
				}
				writeUnauthorised(w, "invalid token")
				return
			}

			session := model.Session{
				ID:        claims.Subject,
				Email:     model.NormalizeEmail(claims.Email),
				FirstName: claims.GivenName,
				LastName:  claims.FamilyName,
			}
			if session.ID == "" || session.Email == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("session token missing subject or email")
				writeUnauthorised(w, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// WithSession returns a copy of ctx carrying session.
func WithSession(ctx context.Context, session model.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by SessionAuth.
func SessionFromContext(ctx context.Context) (model.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(model.Session)
	return session, ok
}
