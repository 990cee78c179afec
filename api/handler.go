// Package api provides HTTP handlers for the coordination service.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Darlinghurst56/taskmaster/config"
	"github.com/Darlinghurst56/taskmaster/hub"
	"github.com/Darlinghurst56/taskmaster/registry"
	"github.com/Darlinghurst56/taskmaster/tracker"
	"github.com/Darlinghurst56/taskmaster/workflow"
)

// Handler handles HTTP requests.
type Handler struct {
	workflow *workflow.Workflow
	registry *registry.Registry
	tracker  *tracker.Tracker
	hub      *hub.Hub
	config   *config.Config
}

// NewHandler creates a new handler. tracker and hub may be nil when the
// corresponding feature is disabled.
func NewHandler(w *workflow.Workflow, r *registry.Registry, t *tracker.Tracker, h *hub.Hub, cfg *config.Config) *Handler {
	return &Handler{
		workflow: w,
		registry: r,
		tracker:  t,
		hub:      h,
		config:   cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	coord := e.Group("/api/coordination")

	// Suggestion approval workflow
	coord.GET("/suggestions/pending", h.PendingSuggestions)
	coord.GET("/suggestions", h.ListSuggestions)
	coord.POST("/suggestions", h.CreateSuggestion)
	coord.GET("/suggestions/:id", h.GetSuggestion)
	coord.POST("/suggestions/:id/approve", h.ApproveSuggestion)
	coord.POST("/suggestions/:id/reject", h.RejectSuggestion)
	coord.POST("/suggestions/bulk/:action", h.BulkDecide)
	coord.GET("/stats", h.Stats)

	// Agent registry
	coord.POST("/agents/register", h.RegisterAgent)
	coord.GET("/agents", h.ListAgents)
	coord.GET("/agents/:id", h.GetAgent)
	coord.POST("/agents/:id/heartbeat", h.AgentHeartbeat)
	coord.POST("/agents/:id/status", h.UpdateAgentStatus)
	coord.DELETE("/agents/:id", h.UnregisterAgent)

	// Server tracker
	if h.tracker != nil {
		servers := e.Group("/api/servers")
		servers.POST("", h.RegisterServer)
		servers.GET("", h.ListServers)
		servers.GET("/:id", h.GetServer)
		servers.POST("/:id/status", h.UpdateServerStatus)
		servers.DELETE("/:id", h.UnregisterServer)
	}

	// Dashboard event stream
	if h.hub != nil {
		e.GET("/ws", h.HandleWebSocket)
	}

	e.GET("/health", h.Health)
}

// Health returns liveness and a feature summary.
func (h *Handler) Health(c echo.Context) error {
	features := map[string]bool{
		"tracker":   h.tracker != nil,
		"websocket": h.hub != nil,
	}
	resp := map[string]interface{}{
		"success":  true,
		"status":   "healthy",
		"version":  "1.0.0",
		"features": features,
	}
	if h.hub != nil {
		resp["connections"] = h.hub.ConnectionCount()
	}
	return c.JSON(http.StatusOK, resp)
}
