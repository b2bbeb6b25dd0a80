package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/isdelr/quickreply-be/internal/apperr"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/isdelr/quickreply-be/internal/session"
	ws "github.com/isdelr/quickreply-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades connections and turns inbound messages into mutations.
type WebSocketHandler struct {
	hub      *ws.Hub
	coord    services.CoordinatorProvider
	sessions session.Store
	upgrader websocket.Upgrader
	detailed bool
}

// NewWebSocketHandler creates a new WebSocketHandler. Browser connections are only
// accepted from allowedOrigins; "*" allows any origin.
func NewWebSocketHandler(hub *ws.Hub, coord services.CoordinatorProvider, sessions session.Store, allowedOrigins []string, detailed bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		coord:    coord,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		detailed: detailed,
	}
}

// Serve handles the WebSocket connection request. The caller's identity is fixed
// at upgrade time; identifiers inside messages are ignored.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	identity, _ := auth.FromContext(r.Context())
	meta := RequestMeta(r)
	client := ws.NewClient(h.hub, conn, identity.UserID)
	if !h.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(func(c *ws.Client, message []byte) {
		h.handleIncomingWSMessage(c, identity.SessionID, meta, message)
	})
}

// sessionValid reports whether the session the socket was opened with is still live.
// Anonymous sockets have no session to lose.
func (h *WebSocketHandler) sessionValid(client *ws.Client, sessionID string) bool {
	if client.UserID() == "" {
		return true
	}
	sess, err := h.sessions.Lookup(context.Background(), sessionID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			log.Error().Err(err).Str("user_id", client.UserID()).Msg("Failed to look up websocket session")
		}
		return false
	}
	return sess.UserID == client.UserID()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, sessionID string, meta services.RequestMeta, message []byte) {
	if !h.sessionValid(client, sessionID) {
		log.Info().Str("user_id", client.UserID()).Msg("Closing websocket with revoked session")
		h.hub.SendAndClose(client, ws.NewErrorMessage(msgSessionExpired))
		return
	}

	var msg ws.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Str("user_id", client.UserID()).Msg("Error decoding websocket message")
		h.hub.SendTo(client, ws.NewErrorMessage("Invalid message format"))
		return
	}

	mutation, err := services.ParseMutation(msg.Type, msg.Payload)
	if errors.Is(err, services.ErrUnknownMutation) {
		log.Warn().Str("type", msg.Type).Str("user_id", client.UserID()).Msg("Unknown websocket message type received")
		return
	}
	if err != nil {
		h.reply(client, services.Kind(msg.Type), nil, err)
		return
	}

	res, err := h.coord.Apply(context.Background(), services.Request{
		ActorID:  client.UserID(),
		Meta:     meta,
		Mutation: mutation,
	})
	h.reply(client, mutation.Kind(), res.Reply, err)
}

// reply answers the requester only. Successful changes reach everyone through the
// data-updated broadcast; only acknowledged kinds also get a success message.
func (h *WebSocketHandler) reply(client *ws.Client, kind services.Kind, payload any, err error) {
	if err != nil {
		e := apperr.Render(err, h.detailed)
		if e.Code == apperr.CodeInternal {
			log.Error().Err(err).Str("kind", string(kind)).Str("user_id", client.UserID()).Msg("Websocket mutation failed")
		}
		if kind == services.KindRegisterUser {
			h.hub.SendTo(client, ws.NewMessage(ws.TypeRegisterFail, e.Message))
			return
		}
		h.hub.SendTo(client, ws.NewErrorMessage(e.Message))
		return
	}

	if !kind.Acknowledged() {
		return
	}
	msgType := ws.SuccessType(string(kind))
	if kind == services.KindRegisterUser {
		msgType = ws.TypeRegisterSuccess
	}
	h.hub.SendTo(client, ws.NewMessage(msgType, payload))
}
