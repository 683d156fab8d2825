package server

import (
	"github.com/labstack/echo/v4"

	"github.com/dounie/opshub/internal/handlers"
	"github.com/dounie/opshub/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	notificationHandler := handlers.NewNotificationHandler(s.hub.Notifications())
	messageHandler := handlers.NewMessageHandler(s.hub.Router())
	userHandler := handlers.NewUserHandler(s.hub.Presence())
	healthHandler := handlers.NewHealthHandler(s.hub)
	rateLimiter := middleware.RateLimiter(middleware.DefaultRateLimit)

	s.E.GET("/ws", s.websocketHandler().Serve)
	s.E.GET("/health", healthHandler.Check)
	s.E.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))

	api := s.E.Group("/api")

	api.GET("/notifications", notificationHandler.List)
	api.POST("/notifications", notificationHandler.Create, rateLimiter)
	api.POST("/notifications/:id/resolve", notificationHandler.Resolve, rateLimiter)

	api.GET("/messages", messageHandler.List)
	api.POST("/messages", messageHandler.Send, rateLimiter)
	api.POST("/messages/:id/read", messageHandler.MarkRead, rateLimiter)

	api.GET("/users", userHandler.List)
	api.GET("/users/online", userHandler.Online)
	api.POST("/users", userHandler.Register, rateLimiter)
}
