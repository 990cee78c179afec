package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Darlinghurst56/taskmaster/domain"
	"github.com/Darlinghurst56/taskmaster/tracker"
)

// RegisterServer starts tracking a local server process.
// POST /api/servers
func (h *Handler) RegisterServer(c echo.Context) error {
	var req tracker.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	server, err := h.tracker.Register(req)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"server":  server,
	})
}

// ListServers lists all tracked servers.
// GET /api/servers
func (h *Handler) ListServers(c echo.Context) error {
	servers := h.tracker.List()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(servers),
		"servers": servers,
	})
}

// GetServer retrieves a tracked server by id, pid or port.
// GET /api/servers/:id
func (h *Handler) GetServer(c echo.Context) error {
	server, err := h.tracker.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"server":  server,
	})
}

type serverStatusRequest struct {
	Status domain.ServerStatus `json:"status"`
	Reason string              `json:"reason,omitempty"`
}

// UpdateServerStatus applies an explicit status transition.
// POST /api/servers/:id/status
func (h *Handler) UpdateServerStatus(c echo.Context) error {
	var req serverStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	server, err := h.tracker.UpdateStatus(c.Param("id"), req.Status, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"server":  server,
	})
}

// UnregisterServer stops tracking a server.
// DELETE /api/servers/:id
func (h *Handler) UnregisterServer(c echo.Context) error {
	id := c.Param("id")
	if err := h.tracker.Unregister(id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Server " + id + " unregistered",
	})
}
