package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/isdelr/quickreply-be/internal/auth"
	"github.com/isdelr/quickreply-be/internal/database"
	"github.com/isdelr/quickreply-be/internal/models"
	"github.com/isdelr/quickreply-be/internal/policy"
	"github.com/isdelr/quickreply-be/internal/services"
	"github.com/isdelr/quickreply-be/internal/session"
	"github.com/isdelr/quickreply-be/internal/store"
	"github.com/isdelr/quickreply-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	store *store.Store
	users *services.UserService
	coord *services.Coordinator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newLimitedTestServer(t, 20)
}

// newLimitedTestServer allows loginBurst login attempts per client before limiting.
func newLimitedTestServer(t *testing.T, loginBurst int) *testServer {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	audit := services.NewAuditRecorder(st, 256)
	t.Cleanup(audit.Close)

	live := services.NewLiveState()
	hub := websocket.NewHub(live.InitialMessage, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	sessions := session.NewMemoryStore()
	coord := services.NewCoordinator(st, audit, live, hub, sessions, 0)
	require.NoError(t, coord.Init(ctx))
	users := services.NewUserService(st, audit)

	limiter := auth.NewKeyedLimiter(0.01, loginBurst, 0)
	t.Cleanup(limiter.Stop)

	router := NewRouter(Dependencies{
		Hub:           hub,
		Coordinator:   coord,
		Users:         users,
		Audit:         audit,
		Sessions:      sessions,
		Tokens:        auth.NewTokens("test-secret", time.Hour),
		Limiter:       limiter,
		CORSOrigins:   []string{"http://localhost:3000"},
		LogRetention:  24 * time.Hour,
		LogMaxEntries: 100,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: st, users: users, coord: coord}
}

// account registers username, promotes it to role and logs in.
func (s *testServer) account(t *testing.T, username string, role policy.Role) string {
	t.Helper()
	ctx := context.Background()
	_, err := s.coord.Apply(ctx, services.Request{Mutation: &services.RegisterUser{Username: username, Password: username + "-pw"}})
	require.NoError(t, err)
	if role != policy.RoleUser {
		u, err := s.store.GetUserByUsername(ctx, username)
		require.NoError(t, err)
		require.NoError(t, s.store.UpdateUser(ctx, u.ID, store.UserUpdate{Role: role}))
	}
	return s.login(t, username, username+"-pw")
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := s.do(t, "", http.MethodPost, "/api/v1/auth/login", map[string]string{"username": username, "password": password})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func (s *testServer) do(t *testing.T, token, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	token := s.account(t, "ada", policy.RoleAdmin)

	me := decodeBody[models.User](t, s.do(t, token, http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, "ada", me.Username)
	assert.Equal(t, policy.RoleAdmin, me.Role)

	resp := s.do(t, "", http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "ada", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", decodeBody[errorBody](t, resp).Code)

	resp = s.do(t, "", http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginSetsCookieAndLogoutRevokes(t *testing.T) {
	s := newTestServer(t)
	s.account(t, "tom", policy.RoleUser)

	resp := s.do(t, "", http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "tom", "password": "tom-pw"})
	resp.Body.Close()
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/api/v1/auth/ping", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, cookie.Value, http.MethodPost, "/api/v1/auth/logout", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = s.do(t, cookie.Value, http.MethodGet, "/api/v1/auth/me", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newLimitedTestServer(t, 3)
	for i := 0; i < 3; i++ {
		resp := s.do(t, "", http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "x", "password": "y"})
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := s.do(t, "", http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "x", "password": "y"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", decodeBody[errorBody](t, resp).Code)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)
	editor := s.account(t, "eddie", policy.RoleEditor)
	plain := s.account(t, "ursula", policy.RoleUser)

	resp := s.do(t, plain, http.MethodPost, "/api/v1/categories", map[string]string{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decodeBody[errorBody](t, resp).Code)

	resp = s.do(t, editor, http.MethodPost, "/api/v1/categories", map[string]string{"title": "Delays"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cat := decodeBody[models.Category](t, resp)

	resp = s.do(t, editor, http.MethodPost, "/api/v1/categories", map[string]string{"title": "Delays"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, editor, http.MethodPost, "/api/v1/categories/"+cat.ID+"/templates",
		map[string]any{"text": "Your order is delayed", "tags": []string{"custom"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tmpl := decodeBody[models.Template](t, resp)
	assert.ElementsMatch(t, []string{"custom", "delay"}, tmpl.Tags)

	resp = s.do(t, editor, http.MethodPut, "/api/v1/categories/"+cat.ID+"/templates/"+tmpl.ID,
		map[string]any{"text": "All resolved"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	categories := decodeBody[[]models.Category](t, s.do(t, plain, http.MethodGet, "/api/v1/categories", nil))
	require.Len(t, categories, 1)
	require.Len(t, categories[0].Templates, 1)
	assert.Equal(t, "All resolved", categories[0].Templates[0].Text)

	resp = s.do(t, editor, http.MethodDelete, "/api/v1/categories/"+cat.ID+"/templates/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, editor, http.MethodDelete, "/api/v1/categories/"+cat.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, "", http.MethodGet, "/api/v1/categories", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestNotesEndpointsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t)
	alice := s.account(t, "alice", policy.RoleUser)
	bob := s.account(t, "bob", policy.RoleUser)

	resp := s.do(t, alice, http.MethodPost, "/api/v1/notes", map[string]string{"title": "Drafts"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	cat := decodeBody[models.PNCategory](t, resp)

	resp = s.do(t, alice, http.MethodPost, "/api/v1/notes/"+cat.ID+"/items", map[string]string{"title": "todo", "content": "call"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	note := decodeBody[models.Note](t, resp)

	resp = s.do(t, bob, http.MethodPut, "/api/v1/notes/"+cat.ID+"/items/"+note.ID, map[string]string{"title": "mine"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	assert.Empty(t, decodeBody[[]models.PNCategory](t, s.do(t, bob, http.MethodGet, "/api/v1/notes", nil)))
	mine := decodeBody[[]models.PNCategory](t, s.do(t, alice, http.MethodGet, "/api/v1/notes", nil))
	require.Len(t, mine, 1)
	assert.Len(t, mine[0].Notes, 1)
}

func TestAdminEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.account(t, "ada", policy.RoleAdmin)
	s.account(t, "tom", policy.RoleUser)

	users := decodeBody[[]models.User](t, s.do(t, admin, http.MethodGet, "/api/v1/admin/users", nil))
	require.Len(t, users, 2)
	var adminID, tomID string
	for _, u := range users {
		switch u.Username {
		case "ada":
			adminID = u.ID
		case "tom":
			tomID = u.ID
		}
	}

	resp := s.do(t, admin, http.MethodDelete, "/api/v1/admin/users/"+adminID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, policy.ReasonSelfDelete, decodeBody[errorBody](t, resp).Message)

	resp = s.do(t, admin, http.MethodPut, "/api/v1/admin/users/"+adminID+"/role", map[string]string{"role": "editor"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, policy.ReasonRemoveLastAdmin, decodeBody[errorBody](t, resp).Message)

	resp = s.do(t, admin, http.MethodPut, "/api/v1/admin/users/"+tomID+"/role", map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, admin, http.MethodPost, "/api/v1/admin/users/"+tomID+"/reset-password", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reset := decodeBody[map[string]string](t, resp)
	s.login(t, "tom", reset["tempPassword"])

	resp = s.do(t, admin, http.MethodPost, "/api/v1/admin/users/bulk", map[string]any{"usernames": []string{"Zed", "tom"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bulk := decodeBody[map[string][]services.CreatedAccount](t, resp)
	require.Len(t, bulk["createdUsers"], 1)
	assert.Equal(t, "zed", bulk["createdUsers"][0].Username)

	resp = s.do(t, admin, http.MethodPost, "/api/v1/admin/categories/import", map[string]any{
		"categories": []map[string]any{{"title": "Imported", "templates": []map[string]any{{"text": "hello"}}}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, admin, http.MethodDelete, "/api/v1/admin/users/"+tomID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestLogEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.account(t, "ada", policy.RoleAdmin)
	plain := s.account(t, "tom", policy.RoleUser)

	resp := s.do(t, plain, http.MethodGet, "/api/v1/admin/logs", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	logs := decodeBody[[]models.LogEntry](t, s.do(t, admin, http.MethodGet, "/api/v1/admin/logs?level=database", nil))
	require.NotEmpty(t, logs)
	for _, e := range logs {
		assert.Equal(t, models.LevelDatabase, e.Level)
		assert.NotContains(t, string(e.NewData), "-pw")
	}

	resp = s.do(t, admin, http.MethodPost, "/api/v1/admin/logs/cleanup", map[string]int{"days": 30, "limit": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[map[string]any](t, resp)
	assert.Positive(t, res["deletedByLimit"].(float64))

	resp = s.do(t, admin, http.MethodPost, "/api/v1/admin/logs/cleanup", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func dialWS(t *testing.T, s *testServer, token string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := gws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gws.Conn) websocket.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg websocket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil skips messages until one of the given type arrives.
func readUntil(t *testing.T, conn *gws.Conn, msgType string) websocket.Message {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type == msgType {
			return msg
		}
	}
}

func send(t *testing.T, conn *gws.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(websocket.Message{Type: msgType, Payload: raw}))
}

func TestWebSocketMutationsBroadcast(t *testing.T) {
	s := newTestServer(t)
	editor := s.account(t, "eddie", policy.RoleEditor)
	plain := s.account(t, "ursula", policy.RoleUser)

	editorConn := dialWS(t, s, editor)
	plainConn := dialWS(t, s, plain)

	initial := readMessage(t, editorConn)
	require.Equal(t, websocket.TypeInitialData, initial.Type)
	var view models.View
	require.NoError(t, json.Unmarshal(initial.Payload, &view))
	require.NotNil(t, view.Me)
	assert.Equal(t, "eddie", view.Me.Username)
	require.Equal(t, websocket.TypeInitialData, readMessage(t, plainConn).Type)

	// Unknown types are ignored without closing the connection.
	send(t, editorConn, "launch-rockets", map[string]string{})
	send(t, editorConn, "create-category", map[string]string{"title": "Greetings"})

	for _, conn := range []*gws.Conn{editorConn, plainConn} {
		msg := readUntil(t, conn, websocket.TypeDataUpdated)
		var v models.View
		require.NoError(t, json.Unmarshal(msg.Payload, &v))
		require.Len(t, v.Categories, 1)
		assert.Equal(t, "Greetings", v.Categories[0].Title)
	}

	send(t, plainConn, "create-category", map[string]string{"title": "Nope"})
	msg := readUntil(t, plainConn, websocket.TypeError)
	var reason string
	require.NoError(t, json.Unmarshal(msg.Payload, &reason))
	assert.NotEmpty(t, reason)
}

func TestWebSocketRegistration(t *testing.T) {
	s := newTestServer(t)
	conn := dialWS(t, s, "")

	initial := readMessage(t, conn)
	require.Equal(t, websocket.TypeInitialData, initial.Type)
	assert.JSONEq(t, `{"me":null,"users":[],"categories":[],"pnCategories":[],"messages":[]}`, string(initial.Payload))

	send(t, conn, "register-user", map[string]string{"username": "newbie", "password": "secret1"})
	msg := readUntil(t, conn, websocket.TypeRegisterSuccess)
	var u models.User
	require.NoError(t, json.Unmarshal(msg.Payload, &u))
	assert.Equal(t, "newbie", u.Username)

	send(t, conn, "register-user", map[string]string{"username": "NEWBIE", "password": "secret2"})
	msg = readUntil(t, conn, websocket.TypeRegisterFail)
	var reason string
	require.NoError(t, json.Unmarshal(msg.Payload, &reason))
	assert.Equal(t, "Username already exists", reason)
}

func TestWebSocketStopsAcceptingMutationsAfterLogout(t *testing.T) {
	s := newTestServer(t)
	editor := s.account(t, "eddie", policy.RoleEditor)

	conn := dialWS(t, s, editor)
	require.Equal(t, websocket.TypeInitialData, readMessage(t, conn).Type)

	resp := s.do(t, editor, http.MethodPost, "/api/v1/auth/logout", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	send(t, conn, "create-category", map[string]string{"title": "After logout"})
	msg := readUntil(t, conn, websocket.TypeError)
	var reason string
	require.NoError(t, json.Unmarshal(msg.Payload, &reason))
	assert.Equal(t, "Session expired", reason)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	categories, err := s.store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestMessageEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.account(t, "ada", policy.RoleAdmin)
	plain := s.account(t, "ursula", policy.RoleUser)

	resp := s.do(t, plain, http.MethodPost, "/api/v1/admin/messages", map[string]any{
		"title": "x", "content": "y", "endDate": time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, admin, http.MethodPost, "/api/v1/admin/messages", map[string]any{
		"title": "Release", "content": "New templates", "priority": "high", "endDate": time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[models.Message](t, resp)
	assert.Equal(t, "ada", created.AuthorName)

	resp = s.do(t, plain, http.MethodGet, "/api/v1/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inbox := decodeBody[[]models.Announcement](t, resp)
	require.Len(t, inbox, 1)
	assert.False(t, inbox[0].Read)

	resp = s.do(t, plain, http.MethodPost, "/api/v1/messages/"+created.ID+"/read", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = s.do(t, plain, http.MethodGet, "/api/v1/messages", nil)
	inbox = decodeBody[[]models.Announcement](t, resp)
	require.Len(t, inbox, 1)
	assert.True(t, inbox[0].Read)

	resp = s.do(t, admin, http.MethodPut, "/api/v1/admin/messages/"+created.ID, map[string]any{"title": "Release notes"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Release notes", decodeBody[models.Message](t, resp).Title)

	resp = s.do(t, admin, http.MethodGet, "/api/v1/admin/messages?priority=high&limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeBody[models.MessagePage](t, resp)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Messages, 1)
	require.Len(t, page.Messages[0].ReadBy, 1)

	resp = s.do(t, admin, http.MethodPost, "/api/v1/admin/messages/cleanup", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, decodeBody[map[string]any](t, resp)["deletedCount"])

	resp = s.do(t, admin, http.MethodDelete, "/api/v1/admin/messages/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	resp = s.do(t, plain, http.MethodPost, "/api/v1/messages/"+created.ID+"/read", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestFeedbackEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.account(t, "ada", policy.RoleAdmin)
	author := s.account(t, "ursula", policy.RoleUser)
	other := s.account(t, "olga", policy.RoleUser)

	resp := s.do(t, author, http.MethodPost, "/api/v1/feedback", map[string]any{
		"type": "feature_request", "title": "Shortcuts", "description": "Keyboard shortcuts please",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	public := decodeBody[models.Feedback](t, resp)

	resp = s.do(t, author, http.MethodPost, "/api/v1/feedback", map[string]any{
		"type": "general", "title": "Private", "description": "Just for admins", "isPublic": false,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, other, http.MethodGet, "/api/v1/feedback", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeBody[models.FeedbackPage](t, resp).Total)

	resp = s.do(t, author, http.MethodGet, "/api/v1/feedback/mine", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decodeBody[models.FeedbackPage](t, resp).Total)

	resp = s.do(t, other, http.MethodPost, "/api/v1/feedback/"+public.ID+"/vote", map[string]string{"vote": "upvote"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[models.Feedback](t, resp).Upvotes, 1)

	resp = s.do(t, other, http.MethodPut, "/api/v1/feedback/"+public.ID+"/status", map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, admin, http.MethodPut, "/api/v1/feedback/"+public.ID+"/status", map[string]string{
		"status": "resolved", "adminResponse": "Shipped",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, models.FeedbackResolved, decodeBody[models.Feedback](t, resp).Status)

	resp = s.do(t, admin, http.MethodDelete, "/api/v1/feedback/"+public.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}
