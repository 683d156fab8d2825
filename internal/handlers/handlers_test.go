package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dounie/opshub/internal/domain"
	"github.com/dounie/opshub/internal/messaging"
	"github.com/dounie/opshub/internal/notifications"
	"github.com/dounie/opshub/internal/presence"
	"github.com/dounie/opshub/internal/websocket"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNotificationHandler(t *testing.T) {
	reg := websocket.NewRegistry()
	svc := notifications.NewService(notifications.NewStore(0), reg, nil)
	h := NewNotificationHandler(svc)

	e := newEcho()
	e.GET("/api/notifications", h.List)
	e.POST("/api/notifications", h.Create)
	e.POST("/api/notifications/:id/resolve", h.Resolve)

	rec := serve(e, http.MethodPost, "/api/notifications", `{"type":"backup","message":"nightly backup done"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"backup"`)

	rec = serve(e, http.MethodPost, "/api/notifications", `{"type":"panic","message":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list := svc.List(1)
	require.Len(t, list, 1)

	rec = serve(e, http.MethodPost, "/api/notifications/"+list[0].ID+"/resolve", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(e, http.MethodPost, "/api/notifications/missing/resolve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(e, http.MethodGet, "/api/notifications?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resolved":true`)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestMessageHandler(t *testing.T) {
	router := messaging.NewRouter(websocket.NewRegistry())
	h := NewMessageHandler(router)

	e := newEcho()
	e.GET("/api/messages", h.List)
	e.POST("/api/messages", h.Send)
	e.POST("/api/messages/:id/read", h.MarkRead)

	rec := serve(e, http.MethodPost, "/api/messages", `{"from":"ops","content":"fire drill at 3pm","priority":"urgent"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"to":"all"`)
	assert.Contains(t, rec.Body.String(), `"type":"broadcast"`)

	rec = serve(e, http.MethodPost, "/api/messages", `{"from":"ops","to":"bob","content":"see me"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	history := router.Messages("bob", 10)
	require.Len(t, history, 2)
	direct := history[0]
	assert.Equal(t, domain.MessageDirect, direct.Type)

	rec = serve(e, http.MethodPost, "/api/messages/"+direct.ID+"/read", `{"userId":"mallory"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	got, _ := router.Get(direct.ID)
	assert.False(t, got.Read)

	rec = serve(e, http.MethodPost, "/api/messages/"+direct.ID+"/read", `{"userId":"bob"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	got, _ = router.Get(direct.ID)
	assert.True(t, got.Read)

	rec = serve(e, http.MethodPost, "/api/messages/"+direct.ID+"/read", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodGet, "/api/messages?userId=bob&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
}

func TestUserHandler(t *testing.T) {
	tracker := presence.NewTracker(websocket.NewRegistry())
	h := NewUserHandler(tracker)

	e := newEcho()
	e.GET("/api/users", h.List)
	e.GET("/api/users/online", h.Online)
	e.POST("/api/users", h.Register)

	rec := serve(e, http.MethodPost, "/api/users", `{"id":"maria","username":"Maria","role":"manager"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isOnline":false`)

	rec = serve(e, http.MethodPost, "/api/users", `{"id":"maria","role":"superuser"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tracker.Connected(domain.Identity{UserID: "bob"})

	rec = serve(e, http.MethodGet, "/api/users", "")
	assert.Contains(t, rec.Body.String(), `"count":2`)

	rec = serve(e, http.MethodGet, "/api/users/online", "")
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), `"id":"bob"`)
}
