package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darlinghurst56/taskmaster/api"
	"github.com/Darlinghurst56/taskmaster/domain"
)

func TestRegisterAgentEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{
		ID: "frontend-agent",
	})
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)

	err := env.handler.RegisterAgent(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool         `json:"success"`
		Agent   domain.Agent `json:"agent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "frontend-agent", resp.Agent.ID)
	assert.Equal(t, "frontend", resp.Agent.Role)
	assert.Equal(t, domain.AgentStatusAvailable, resp.Agent.Status)
	assert.NotEmpty(t, resp.Agent.Capabilities)
}

func TestRegisterAgentDuplicate(t *testing.T) {
	env := newTestEnv(t)

	register := func() int {
		req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{
			ID: "backend-agent",
		})
		rec := httptest.NewRecorder()
		c := env.echo.NewContext(req, rec)
		require.NoError(t, env.handler.RegisterAgent(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, register())
	assert.Equal(t, http.StatusConflict, register())
}

func TestRegisterAgentValidation(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{})
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)

	err := env.handler.RegisterAgent(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAgentsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{"frontend-agent", "qa-specialist"} {
		req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{ID: id})
		rec := httptest.NewRecorder()
		require.NoError(t, env.handler.RegisterAgent(env.echo.NewContext(req, rec)))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/coordination/agents", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)

	err := env.handler.ListAgents(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count  int            `json:"count"`
		Agents []domain.Agent `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Agents, 2)
}

func TestAgentHeartbeatEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{ID: "qa-agent"})
	rec := httptest.NewRecorder()
	require.NoError(t, env.handler.RegisterAgent(env.echo.NewContext(req, rec)))

	req = jsonRequest(http.MethodPost, "/api/coordination/agents/qa-agent/heartbeat", nil)
	rec = httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetPath("/api/coordination/agents/:id/heartbeat")
	c.SetParamNames("id")
	c.SetParamValues("qa-agent")

	err := env.handler.AgentHeartbeat(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentHeartbeatNotFound(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/coordination/agents/ghost/heartbeat", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetPath("/api/coordination/agents/:id/heartbeat")
	c.SetParamNames("id")
	c.SetParamValues("ghost")

	err := env.handler.AgentHeartbeat(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAgentStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{ID: "backend-agent"})
	rec := httptest.NewRecorder()
	require.NoError(t, env.handler.RegisterAgent(env.echo.NewContext(req, rec)))

	req = jsonRequest(http.MethodPost, "/api/coordination/agents/backend-agent/status", map[string]string{
		"status":      "working",
		"currentTask": "T1",
	})
	rec = httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetPath("/api/coordination/agents/:id/status")
	c.SetParamNames("id")
	c.SetParamValues("backend-agent")

	err := env.handler.UpdateAgentStatus(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Agent domain.Agent `json:"agent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.AgentStatusWorking, resp.Agent.Status)
	assert.Equal(t, "T1", resp.Agent.CurrentTask)
}

func TestUpdateAgentStatusInvalid(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{ID: "backend-agent"})
	rec := httptest.NewRecorder()
	require.NoError(t, env.handler.RegisterAgent(env.echo.NewContext(req, rec)))

	req = jsonRequest(http.MethodPost, "/api/coordination/agents/backend-agent/status", map[string]string{
		"status": "sleeping",
	})
	rec = httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetPath("/api/coordination/agents/:id/status")
	c.SetParamNames("id")
	c.SetParamValues("backend-agent")

	err := env.handler.UpdateAgentStatus(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnregisterAgentEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPost, "/api/coordination/agents/register", api.AgentRegisterRequest{ID: "devops-agent"})
	rec := httptest.NewRecorder()
	require.NoError(t, env.handler.RegisterAgent(env.echo.NewContext(req, rec)))

	req = httptest.NewRequest(http.MethodDelete, "/api/coordination/agents/devops-agent", nil)
	rec = httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetPath("/api/coordination/agents/:id")
	c.SetParamNames("id")
	c.SetParamValues("devops-agent")

	err := env.handler.UnregisterAgent(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second delete reports not found.
	rec = httptest.NewRecorder()
	c = env.echo.NewContext(httptest.NewRequest(http.MethodDelete, "/api/coordination/agents/devops-agent", nil), rec)
	c.SetPath("/api/coordination/agents/:id")
	c.SetParamNames("id")
	c.SetParamValues("devops-agent")

	err = env.handler.UnregisterAgent(c)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
