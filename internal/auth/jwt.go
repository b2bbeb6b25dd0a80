package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/quickreply-be/internal/session"
	"github.com/rs/zerolog/log"
)

// CookieName is the cookie that carries the session token.
const CookieName = "token"

// Claims defines the JWT claims structure. The token only points at a server-side
// session; revoking the session invalidates the token.
type Claims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Tokens signs and validates session tokens.
type Tokens struct {
	key []byte
	ttl time.Duration
}

// NewTokens creates a signer using an HS256 secret.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{key: []byte(secret), ttl: ttl}
}

// TTL is how long issued tokens and their sessions live.
func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Generate creates a new JWT for a session.
func (t *Tokens) Generate(sess session.Session) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.key)
}

// Validate parses and validates a JWT string.
func (t *Tokens) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.SessionID == "" || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID    string
	SessionID string
}

type contextKey string

const identityKey = contextKey("identity")

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity resolved by Identify, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// UserID returns the verified user id, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}

// TokenFromRequest reads the token from the Authorization header, falling back to the cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if tokenStr, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(tokenStr)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Identify resolves token -> session -> user id and stores it in the request context.
// Requests without a valid session pass through anonymously; authorization decides
// what they may do.
func Identify(tokens *Tokens, sessions session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := TokenFromRequest(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Validate(tokenStr)
			if err != nil {
				log.Debug().Err(err).Msg("Rejected auth token")
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.Lookup(r.Context(), claims.SessionID)
			if err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					log.Error().Err(err).Msg("Session lookup failed")
				}
				next.ServeHTTP(w, r)
				return
			}
			if sess.UserID != claims.UserID {
				log.Warn().Str("session_id", sess.ID).Msg("Token user does not match session")
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: sess.UserID, SessionID: sess.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
