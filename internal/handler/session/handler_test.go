package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/seance/backend/internal/handler/session"
	"github.com/zhouzirui/seance/backend/internal/model/event"
	"github.com/zhouzirui/seance/backend/internal/realtime"
	sessionService "github.com/zhouzirui/seance/backend/internal/service/session"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Meta struct {
		Timestamp string `json:"timestamp"`
	} `json:"meta"`
}

type stubConn struct{ id string }

func (c stubConn) ID() string { return c.id }
func (c stubConn) Send(event.Envelope) error { return nil }
func (c stubConn) Close() error { return nil }

func setupRouter(t *testing.T) (*chi.Mux, *sessionService.Service, *realtime.Registry) {
	t.Helper()
	store, err := sessionService.NewStore(sessionService.StoreTypeMemory)
	require.NoError(t, err)
	svc := sessionService.NewService(store, 6, logs.GetLoggerFromLevel(slog.LevelError))
	registry := realtime.NewRegistry()

	r := chi.NewRouter()
	r.Route("/api", session.New(svc, registry).RegisterRoutes)
	return r, svc, registry
}

func do(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}

func TestCreateSession(t *testing.T) {
	req := require.New(t)
	r, svc, _ := setupRouter(t)

	// Given a valid payload without max_users
	// When the session is created
	resp := do(r, http.MethodPost, "/api/sessions", []byte(`{"name":"Midnight circle"}`))

	// Then it is persisted with the configured default capacity
	req.Equal(http.StatusCreated, resp.Code)
	env := decode(t, resp)
	req.True(env.Success)
	req.NotEmpty(env.Meta.Timestamp)

	var created struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		MaxUsers int    `json:"max_users"`
		IsActive bool   `json:"is_active"`
	}
	req.NoError(json.Unmarshal(env.Data, &created))
	req.Equal("Midnight circle", created.Name)
	req.Equal(6, created.MaxUsers)
	req.True(created.IsActive)

	stored, err := svc.GetSession(context.Background(), created.ID)
	req.NoError(err)
	req.Equal(created.Name, stored.Name)
}

func TestCreateSessionValidation(t *testing.T) {
	r, _, _ := setupRouter(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing name", body: `{"max_users":4}`, field: "name"},
		{name: "blank name", body: `{"name":"   "}`, field: "name"},
		{name: "too few users", body: `{"name":"circle","max_users":1}`, field: "max_users"},
		{name: "too many users", body: `{"name":"circle","max_users":13}`, field: "max_users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			resp := do(r, http.MethodPost, "/api/sessions", []byte(tt.body))

			req.Equal(http.StatusBadRequest, resp.Code)
			env := decode(t, resp)
			req.False(env.Success)
			req.NotNil(env.Error)
			req.Equal("VALIDATION_ERROR", env.Error.Code)
			req.Contains(env.Error.Details, tt.field)
		})
	}
}

func TestCreateSessionMalformedBody(t *testing.T) {
	req := require.New(t)
	r, _, _ := setupRouter(t)

	resp := do(r, http.MethodPost, "/api/sessions", []byte(`{"name":`))

	req.Equal(http.StatusBadRequest, resp.Code)
	req.Equal("VALIDATION_ERROR", decode(t, resp).Error.Code)
}

func TestGetSession(t *testing.T) {
	req := require.New(t)
	r, svc, _ := setupRouter(t)

	// Given an existing session
	created, err := svc.CreateSession(context.Background(), "circle", 3)
	req.NoError(err)

	// When it is fetched
	resp := do(r, http.MethodGet, "/api/sessions/"+created.ID, nil)

	// Then the stored session is returned
	req.Equal(http.StatusOK, resp.Code)
	env := decode(t, resp)
	req.True(env.Success)
	req.Contains(string(env.Data), created.ID)
}

func TestGetSessionNotFound(t *testing.T) {
	req := require.New(t)
	r, _, _ := setupRouter(t)

	resp := do(r, http.MethodGet, "/api/sessions/nope", nil)

	req.Equal(http.StatusNotFound, resp.Code)
	env := decode(t, resp)
	req.False(env.Success)
	req.Equal("SESSION_NOT_FOUND", env.Error.Code)
}

func TestListSessionUsers(t *testing.T) {
	req := require.New(t)
	r, _, registry := setupRouter(t)

	// Given two connections joined to a live session
	joined := time.Now().UTC()
	req.NoError(registry.Register("live", stubConn{id: "c1"}, event.UserInfo{ID: "u1", Name: "Ada", JoinedAt: joined}))
	req.NoError(registry.Register("live", stubConn{id: "c2"}, event.UserInfo{ID: "u2", Name: "Bo", JoinedAt: joined}))

	// When the users are listed
	resp := do(r, http.MethodGet, "/api/sessions/live/users", nil)

	// Then both appear in join order
	req.Equal(http.StatusOK, resp.Code)
	var data struct {
		SessionID string           `json:"session_id"`
		Users     []event.UserInfo `json:"users"`
		Count     int              `json:"count"`
	}
	req.NoError(json.Unmarshal(decode(t, resp).Data, &data))
	req.Equal("live", data.SessionID)
	req.Equal(2, data.Count)
	req.Equal("Ada", data.Users[0].Name)
	req.Equal("Bo", data.Users[1].Name)
}

func TestListSessionUsersEmpty(t *testing.T) {
	req := require.New(t)
	r, _, _ := setupRouter(t)

	resp := do(r, http.MethodGet, "/api/sessions/ghost/users", nil)

	req.Equal(http.StatusOK, resp.Code)
	req.Contains(string(decode(t, resp).Data), `"users":[]`)
}
