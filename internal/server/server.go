package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/dounie/opshub/internal/config"
	"github.com/dounie/opshub/internal/handlers"
	"github.com/dounie/opshub/internal/hub"
	"github.com/dounie/opshub/internal/metrics"
	"github.com/dounie/opshub/internal/middleware"
	"github.com/dounie/opshub/internal/websocket"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E       *echo.Echo
	Cfg     *config.Config
	hub     *hub.Hub
	metrics *metrics.Metrics
}

// New creates the echo server for the hub.
func New(cfg *config.Config, h *hub.Hub, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)

	secret := cfg.SessionSecret
	if secret == "" {
		slog.Warn("SESSION_SECRET is not set; session identities cannot be verified across restarts")
		secret = "opshub-insecure-development-secret"
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))
	e.Use(middleware.SessionUser(cfg.SessionName))

	s := &Server{E: e, Cfg: cfg, hub: h, metrics: m}
	s.RegisterRoutes()
	return s
}

// Hub returns the hub served by s.
func (s *Server) Hub() *hub.Hub { return s.hub }

func (s *Server) websocketHandler() *websocket.Handler {
	return websocket.NewHandler(
		websocket.NewIdentityResolver(s.hub.Presence()),
		s.hub,
		websocket.HandlerOptions{
			SendBuffer:     s.Cfg.WSSendBuffer,
			WriteTimeout:   s.Cfg.WSWriteTimeout,
			MaxMessageSize: s.Cfg.WSMaxMessageSize,
			AllowedOrigins: s.Cfg.WSAllowedOrigins,
		},
	)
}
