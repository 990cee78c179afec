package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Darlinghurst56/taskmaster/domain"
)

// AgentRegisterRequest is the request to register an agent.
type AgentRegisterRequest struct {
	ID           string             `json:"id"`
	Capabilities []string           `json:"capabilities,omitempty"`
	Status       domain.AgentStatus `json:"status,omitempty"`
}

// RegisterAgent registers a new agent.
// POST /api/coordination/agents/register
func (h *Handler) RegisterAgent(c echo.Context) error {
	var req AgentRegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	agent, err := h.registry.Register(c.Request().Context(), req.ID, req.Capabilities, req.Status)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success": true,
		"agent":   agent,
	})
}

// ListAgents lists all agents, merged with the working-copy overlay.
// GET /api/coordination/agents
func (h *Handler) ListAgents(c echo.Context) error {
	agents, err := h.registry.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if agents == nil {
		agents = []domain.Agent{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(agents),
		"agents":  agents,
	})
}

// GetAgent gets a specific agent by ID.
// GET /api/coordination/agents/:id
func (h *Handler) GetAgent(c echo.Context) error {
	agent, err := h.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"agent":   agent,
	})
}

// AgentHeartbeat records that an agent is alive.
// POST /api/coordination/agents/:id/heartbeat
func (h *Handler) AgentHeartbeat(c echo.Context) error {
	agent, err := h.registry.Heartbeat(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"agent":   agent,
	})
}

type agentStatusRequest struct {
	Status      domain.AgentStatus `json:"status"`
	CurrentTask string             `json:"currentTask,omitempty"`
}

// UpdateAgentStatus mutates an agent's status and current task.
// POST /api/coordination/agents/:id/status
func (h *Handler) UpdateAgentStatus(c echo.Context) error {
	var req agentStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	agent, err := h.registry.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status, req.CurrentTask)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"agent":   agent,
	})
}

// UnregisterAgent removes an agent.
// DELETE /api/coordination/agents/:id
func (h *Handler) UnregisterAgent(c echo.Context) error {
	id := c.Param("id")
	if err := h.registry.Unregister(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Agent " + id + " unregistered",
	})
}
