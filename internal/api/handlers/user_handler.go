package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/isdelr/quickreply-be/internal/session"
	"github.com/rs/zerolog/log"
)

// UserHandler handles sign-in, sessions and the caller's own account.
type UserHandler struct {
	responder
	users    services.UserServiceProvider
	coord    services.CoordinatorProvider
	sessions session.Store
	tokens   *auth.Tokens
	limiter  *auth.KeyedLimiter
	secure   bool
}

// NewUserHandler creates a new UserHandler. secure marks cookies Secure.
func NewUserHandler(users services.UserServiceProvider, coord services.CoordinatorProvider, sessions session.Store, tokens *auth.Tokens, limiter *auth.KeyedLimiter, secure, detailed bool) *UserHandler {
	return &UserHandler{
		responder: responder{detailed: detailed},
		users:     users,
		coord:     coord,
		sessions:  sessions,
		tokens:    tokens,
		limiter:   limiter,
		secure:    secure,
	}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles self-service registration of a user-role account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterUser
	if err := decode(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.coord.Apply(r.Context(), services.Request{Meta: RequestMeta(r), Mutation: &payload})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusCreated, res.Reply)
}

// Login handles user authentication and session creation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	meta := RequestMeta(r)
	if h.limiter != nil && !h.limiter.Allow(meta.IP) {
		log.Warn().Str("ip", meta.IP).Msg("Login rate limit exceeded")
		h.json(w, http.StatusTooManyRequests, map[string]string{
			"code":    "RATE_LIMITED",
			"message": "Too many login attempts, try again later",
		})
		return
	}

	var payload AuthPayload
	if err := decode(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.users.AuthenticateUser(r.Context(), payload.Username, payload.Password, meta)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sess, err := h.sessions.Create(r.Context(), user.ID, h.tokens.TTL())
	if err != nil {
		h.fail(w, r, apperr.Internal(err))
		return
	}
	token, err := h.tokens.Generate(sess)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate JWT")
		h.fail(w, r, apperr.Internal(err))
		return
	}

	auth.SetCookie(w, token, h.tokens.TTL(), h.secure)
	h.json(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Logout revokes the caller's session.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.FromContext(r.Context()); ok {
		if err := h.sessions.Revoke(r.Context(), id.SessionID); err != nil {
			h.fail(w, r, apperr.Internal(err))
			return
		}
	}
	auth.ClearCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}

// GetMe returns the caller's account.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.coord.Me(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, user)
}

// Ping extends the caller's session and reissues the cookie.
func (h *UserHandler) Ping(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthenticated("authentication required"))
		return
	}

	if err := h.sessions.Touch(r.Context(), id.SessionID, h.tokens.TTL()); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.fail(w, r, apperr.Unauthenticated(msgSessionExpired))
			return
		}
		h.fail(w, r, apperr.Internal(err))
		return
	}
	token, err := h.tokens.Generate(session.Session{ID: id.SessionID, UserID: id.UserID})
	if err != nil {
		h.fail(w, r, apperr.Internal(err))
		return
	}
	auth.SetCookie(w, token, h.tokens.TTL(), h.secure)
	h.json(w, http.StatusOK, map[string]string{"status": "ok", "token": token})
}

// ChangePassword handles changing the caller's own password.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload services.ChangePassword
	if err := decode(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.coord.Apply(r.Context(), mutationRequest(r, &payload))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.json(w, http.StatusOK, res.Reply)
}
