package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isdelr/quickreply-be/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	tok, err := tokens.Generate(session.Session{ID: "sess-1", UserID: "u1"})
	require.NoError(t, err)

	claims, err := tokens.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)

	_, err = NewTokens("other", time.Hour).Validate(tok)
	assert.Error(t, err)
}

func TestTokensRejectExpiredAndForeignAlgorithms(t *testing.T) {
	tokens := NewTokens("secret", -time.Minute)
	tok, err := tokens.Generate(session.Session{ID: "sess-1", UserID: "u1"})
	require.NoError(t, err)
	_, err = tokens.Validate(tok)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1", SessionID: "sess-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokens("secret", time.Hour).Validate(unsigned)
	assert.Error(t, err)
}

func identifyRequest(t *testing.T, tokens *Tokens, sessions session.Store, mutate func(r *http.Request)) (Identity, bool) {
	t.Helper()
	var got Identity
	var ok bool
	h := Identify(tokens, sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mutate(req)
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got, ok
}

func TestIdentify(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	sessions := session.NewMemoryStore()
	sess, err := sessions.Create(t.Context(), "u1", time.Hour)
	require.NoError(t, err)
	tok, err := tokens.Generate(sess)
	require.NoError(t, err)

	id, ok := identifyRequest(t, tokens, sessions, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	})
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: "u1", SessionID: sess.ID}, id)

	id, ok = identifyRequest(t, tokens, sessions, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)

	_, ok = identifyRequest(t, tokens, sessions, func(r *http.Request) {})
	assert.False(t, ok)

	_, ok = identifyRequest(t, tokens, sessions, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer garbage")
	})
	assert.False(t, ok)

	require.NoError(t, sessions.Revoke(t.Context(), sess.ID))
	_, ok = identifyRequest(t, tokens, sessions, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: tok})
	})
	assert.False(t, ok)
}

func TestIdentifyRejectsMismatchedUser(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	sessions := session.NewMemoryStore()
	sess, err := sessions.Create(t.Context(), "u1", time.Hour)
	require.NoError(t, err)

	forged, err := tokens.Generate(session.Session{ID: sess.ID, UserID: "admin"})
	require.NoError(t, err)
	_, ok := identifyRequest(t, tokens, sessions, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+forged)
	})
	assert.False(t, ok)
}

func TestCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "tok", time.Hour, true)
	c := rec.Result().Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

	rec = httptest.NewRecorder()
	ClearCookie(rec, false)
	c = rec.Result().Cookies()[0]
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
}

func TestKeyedLimiter(t *testing.T) {
	l := NewKeyedLimiter(1, 2, 0)
	defer l.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("1.1.1.1"))
}

func TestKeyedLimiterEvictsIdleKeys(t *testing.T) {
	l := NewKeyedLimiter(1, 1, time.Hour)
	defer l.Stop()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * time.Hour)
	l.Allow("b")
	l.evictIdle()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "a")
	assert.Contains(t, l.visitors, "b")
}
